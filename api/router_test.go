package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"api_presale/internal/ledger"
	"api_presale/internal/presale"
)

const (
	ownerHex    = "0x0000000000000000000000000000000000000001"
	investorHex = "0x0000000000000000000000000000000000000010"
	strangerHex = "0x0000000000000000000000000000000000000011"
)

var (
	saleAddr    = common.HexToAddress("0x0000000000000000000000000000000000000002")
	fundsWallet = common.HexToAddress("0x0000000000000000000000000000000000000003")
	tokenWallet = common.HexToAddress("0x0000000000000000000000000000000000000004")
	lockWallet  = common.HexToAddress("0x0000000000000000000000000000000000000005")
)

type testServer struct {
	router *gin.Engine
	token  *ledger.Token
	vault  *ledger.Vault
}

func newTestServer(t *testing.T, limiter *RateLimiter) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	token := ledger.NewToken(tokenWallet, uint256.MustFromDecimal("200000000000000000000000000"))
	require.NoError(t, token.Approve(ctx, tokenWallet, saleAddr, uint256.MustFromDecimal("4000000000000000000000000")))
	vault := ledger.NewVault()
	for _, buyer := range []string{investorHex, strangerHex} {
		require.NoError(t, vault.Deposit(common.HexToAddress(buyer), uint256.MustFromDecimal("10000000000000000000")))
	}

	svc, err := presale.NewService(presale.Params{
		Owner:               common.HexToAddress(ownerHex),
		SaleAddress:         saleAddr,
		FundsWallet:         fundsWallet,
		TokenWallet:         tokenWallet,
		LockWallet:          lockWallet,
		Rate:                uint256.NewInt(2000),
		MaxTokensForSale:    uint256.MustFromDecimal("1000000000000000000000"),
		MinInvestmentTokens: uint256.MustFromDecimal("10000000000000000000"),
	}, token, vault, presale.NewLocalStorage(), zaptest.NewLogger(t))
	require.NoError(t, err)

	router := gin.New()
	InitRoutes(router, svc, zaptest.NewLogger(t), limiter)
	return testServer{router: router, token: token, vault: vault}
}

func (s testServer) do(method, path, caller string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set(callerHeader, caller)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// TestPresaleHappyPath_FullFlow prueba el flujo completo whitelist -> compra -> consulta.
func TestPresaleHappyPath_FullFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	var purchaseID string

	t.Run("POST_Whitelist", func(t *testing.T) {
		w := srv.do(http.MethodPost, "/whitelist", ownerHex, map[string]any{"addresses": []string{investorHex}})
		assert.Equal(t, http.StatusOK, w.Code)

		w = srv.do(http.MethodGet, "/whitelist/"+investorHex, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Member bool `json:"member"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Member)
	})

	t.Run("POST_CreatePurchase", func(t *testing.T) {
		w := srv.do(http.MethodPost, "/purchases", investorHex, map[string]string{
			"investor": investorHex,
			"amount":   "500000000000000000",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var purchase presale.Purchase
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &purchase))
		assert.NotEmpty(t, purchase.ID)
		assert.Equal(t, common.HexToAddress(investorHex), purchase.Investor)
		assert.True(t, purchase.Tokens.Eq(uint256.MustFromDecimal("1000000000000000000000")))
		purchaseID = purchase.ID

		assert.True(t, srv.vault.BalanceOf(fundsWallet).Eq(uint256.MustFromDecimal("500000000000000000")))
	})

	if purchaseID == "" {
		t.Fatal("purchase ID was not generated in POST_CreatePurchase step")
	}

	t.Run("GET_Status", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/sale", "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Sale      presale.Status `json:"sale"`
			Allowance *uint256.Int   `json:"allowance"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Sale.CapReached)
		assert.True(t, resp.Sale.TokensIssued.Eq(uint256.MustFromDecimal("1000000000000000000000")))
		assert.True(t, resp.Allowance.Eq(uint256.MustFromDecimal("3999000000000000000000000")))
	})

	t.Run("POST_PurchaseOverCap", func(t *testing.T) {
		w := srv.do(http.MethodPost, "/purchases", investorHex, map[string]string{"amount": "1"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("GET_SearchPurchases", func(t *testing.T) {
		w := srv.do(http.MethodGet, "/purchases?investor="+investorHex, "", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Results  []presale.Purchase       `json:"results"`
			Metadata presale.PurchaseMetadata `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 1)
		assert.Equal(t, purchaseID, resp.Results[0].ID)
		assert.Equal(t, 1, resp.Metadata.Quantity)

		w = srv.do(http.MethodGet, "/purchases/"+purchaseID, "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		w = srv.do(http.MethodGet, "/purchases/unknown", "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestPurchaseErrors(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/whitelist", ownerHex, map[string]any{"addresses": []string{investorHex}}).Code)

	tests := []struct {
		name   string
		caller string
		body   any
		status int
	}{
		{"not whitelisted", strangerHex, map[string]string{"amount": "10000000000000000"}, http.StatusForbidden},
		{"zero amount", investorHex, map[string]string{"amount": "0"}, http.StatusBadRequest},
		{"below minimum", investorHex, map[string]string{"amount": "1"}, http.StatusBadRequest},
		{"bad amount", investorHex, map[string]string{"amount": "-5"}, http.StatusBadRequest},
		{"bad investor", investorHex, map[string]string{"investor": "nope", "amount": "1"}, http.StatusBadRequest},
		{"bad payload", investorHex, "not-an-object", http.StatusBadRequest},
		{"missing caller", "", map[string]string{"amount": "10000000000000000"}, http.StatusBadRequest},
		{"over cap", investorHex, map[string]string{"amount": "500000000000000001"}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(http.MethodPost, "/purchases", tt.caller, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	bal, err := srv.token.BalanceOf(context.Background(), lockWallet)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestPurchaseBuyerIsCaller(t *testing.T) {
	srv := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/whitelist", ownerHex, map[string]any{"addresses": []string{investorHex}}).Code)
	buy := map[string]string{"investor": investorHex, "amount": "10000000000000000"}

	w := srv.do(http.MethodPost, "/purchases", strangerHex, buy)
	assert.Equal(t, http.StatusForbidden, w.Code, w.Body.String())

	w = srv.do(http.MethodPost, "/purchases", "", buy)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	bal, err := srv.token.BalanceOf(context.Background(), lockWallet)
	require.NoError(t, err)
	assert.True(t, bal.IsZero(), "no tokens move for a purchase on behalf of someone else")
	assert.True(t, srv.vault.BalanceOf(fundsWallet).IsZero())

	w = srv.do(http.MethodPost, "/purchases", investorHex, buy)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var purchase presale.Purchase
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &purchase))
	assert.Equal(t, common.HexToAddress(investorHex), purchase.Investor)
	assert.True(t, srv.vault.BalanceOf(common.HexToAddress(investorHex)).Eq(uint256.MustFromDecimal("9990000000000000000")))
}

func TestAdminEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)
	buy := map[string]string{"investor": investorHex, "amount": "10000000000000000"}

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodPost, "/sale/pause", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/sale/pause", strangerHex, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/whitelist", strangerHex, map[string]any{"addresses": []string{investorHex}}).Code)

	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/whitelist", ownerHex, map[string]any{"addresses": []string{investorHex}}).Code)
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/sale/pause", ownerHex, nil).Code)
	assert.Equal(t, http.StatusConflict, srv.do(http.MethodPost, "/purchases", investorHex, buy).Code)

	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/sale/unpause", ownerHex, nil).Code)
	assert.Equal(t, http.StatusCreated, srv.do(http.MethodPost, "/purchases", investorHex, buy).Code)

	require.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/whitelist/"+investorHex, ownerHex, nil).Code)
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/purchases", investorHex, buy).Code)

	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/sale/close", ownerHex, nil).Code)
	assert.Equal(t, http.StatusConflict, srv.do(http.MethodPost, "/sale/unpause", ownerHex, nil).Code)
	assert.Equal(t, http.StatusConflict, srv.do(http.MethodPost, "/sale/pause", ownerHex, nil).Code)
}

func TestWhitelistRejectsZeroAddressBatch(t *testing.T) {
	srv := newTestServer(t, nil)
	zero := "0x0000000000000000000000000000000000000000"

	w := srv.do(http.MethodPost, "/whitelist", ownerHex, map[string]any{"addresses": []string{investorHex, zero}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(http.MethodGet, "/whitelist/"+investorHex, "", nil)
	assert.Contains(t, w.Body.String(), `"member":false`)
}

func TestRateLimiter(t *testing.T) {
	srv := newTestServer(t, NewRateLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		w := srv.do(http.MethodPost, "/sale/pause", ownerHex, nil)
		assert.Equal(t, http.StatusOK, w.Code, fmt.Sprintf("request %d", i))
	}
	w := srv.do(http.MethodPost, "/sale/pause", ownerHex, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// other callers have their own bucket; reads are not limited
	assert.Equal(t, http.StatusForbidden, srv.do(http.MethodPost, "/sale/pause", strangerHex, nil).Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/ping", ownerHex, nil).Code)
}
