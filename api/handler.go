package api

import (
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_presale/internal/config"
	"api_presale/internal/presale"
)

// callerHeader carries the hex address of the identity making the request.
const callerHeader = "X-Caller"

// presaleHandler holds the presale service and implements HTTP handlers for sale operations.
type presaleHandler struct {
	presaleService *presale.Service
	logger         *zap.Logger
}

// NewPresaleHandler creates a new presale handler.
func NewPresaleHandler(presaleService *presale.Service, logger *zap.Logger) *presaleHandler {
	return &presaleHandler{
		presaleService: presaleService,
		logger:         logger,
	}
}

// writeError maps service errors to HTTP status codes.
func writeError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, presale.ErrAccessDenied), errors.Is(err, presale.ErrNotWhitelisted):
		status = http.StatusForbidden
	case errors.Is(err, presale.ErrSaleClosed), errors.Is(err, presale.ErrSalePaused), errors.Is(err, presale.ErrCapExceeded):
		status = http.StatusConflict
	case errors.Is(err, presale.ErrInvalidAmount), errors.Is(err, presale.ErrBelowMinimum),
		errors.Is(err, presale.ErrArithmeticOverflow), errors.Is(err, presale.ErrInvalidAddress):
		status = http.StatusBadRequest
	case errors.Is(err, presale.ErrExternalTransferFailed):
		status = http.StatusBadGateway
	case errors.Is(err, presale.ErrNotFound):
		status = http.StatusNotFound
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	ctx.JSON(status, gin.H{"error": msg})
}

// caller reads the caller identity; it writes a 400 and returns false when missing or malformed.
func (h *presaleHandler) caller(ctx *gin.Context) (common.Address, bool) {
	addr, err := config.ParseAddress(ctx.GetHeader(callerHeader))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid " + callerHeader + " header"})
		return common.Address{}, false
	}
	return addr, true
}

// handleCreatePurchase handles the POST /purchases endpoint. The buyer is the
// caller; an investor field in the body, if present, must name the caller.
func (h *presaleHandler) handleCreatePurchase(ctx *gin.Context) {
	investor, ok := h.caller(ctx)
	if !ok {
		return
	}

	var req struct {
		Investor string `json:"investor"`
		Amount   string `json:"amount"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if req.Investor != "" {
		named, err := config.ParseAddress(req.Investor)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if named != investor {
			h.logger.Warn("purchase on behalf of another address rejected",
				zap.String("caller", investor.Hex()),
				zap.String("investor", named.Hex()),
			)
			writeError(ctx, presale.ErrAccessDenied)
			return
		}
	}

	amount, err := config.ParseAmount(req.Amount)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, err := h.presaleService.AcceptPayment(ctx.Request.Context(), investor, amount)
	if err != nil {
		h.logger.Warn("purchase rejected", zap.Error(err), zap.String("investor", investor.Hex()), zap.String("amount", amount.Dec()))
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, purchase)
}

func (h *presaleHandler) handleSearchPurchases(ctx *gin.Context) {
	var filter *common.Address
	if raw := ctx.Query("investor"); raw != "" {
		addr, err := config.ParseAddress(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filter = &addr
	}

	results, metadata, err := h.presaleService.SearchPurchases(filter)
	if err != nil {
		h.logger.Error("error searching purchases", zap.Error(err))
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": results, "metadata": metadata})
}

func (h *presaleHandler) handleGetPurchase(ctx *gin.Context) {
	purchase, err := h.presaleService.GetPurchase(ctx.Param("id"))
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, purchase)
}

func (h *presaleHandler) handleStatus(ctx *gin.Context) {
	allowance, err := h.presaleService.Allowance(ctx.Request.Context())
	if err != nil {
		h.logger.Error("failed to read allowance", zap.Error(err))
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sale": h.presaleService.Status(), "allowance": allowance})
}

// handleAddToWhitelist adds every address of the body, or none.
func (h *presaleHandler) handleAddToWhitelist(ctx *gin.Context) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}

	var req struct {
		Addresses []string `json:"addresses"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil || len(req.Addresses) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	addrs := make([]common.Address, 0, len(req.Addresses))
	for _, raw := range req.Addresses {
		addr, err := config.ParseAddress(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		addrs = append(addrs, addr)
	}

	if err := h.presaleService.AddManyToWhitelist(caller, addrs); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"added": len(addrs)})
}

func (h *presaleHandler) handleRemoveFromWhitelist(ctx *gin.Context) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}
	addr, err := config.ParseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.presaleService.RemoveFromWhitelist(caller, addr); err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *presaleHandler) handleIsWhitelisted(ctx *gin.Context) {
	addr, err := config.ParseAddress(ctx.Param("address"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"address": addr, "member": h.presaleService.IsWhitelisted(addr)})
}

// adminHandler wraps an owner-only service call taking just the caller.
func (h *presaleHandler) adminHandler(action string, op func(common.Address) error) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		caller, ok := h.caller(ctx)
		if !ok {
			return
		}
		if err := op(caller); err != nil {
			h.logger.Warn("admin action rejected", zap.String("action", action), zap.String("caller", caller.Hex()), zap.Error(err))
			writeError(ctx, err)
			return
		}
		st := h.presaleService.Status()
		ctx.JSON(http.StatusOK, gin.H{"paused": st.Paused, "closed": st.Closed})
	}
}
