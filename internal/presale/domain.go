package presale

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Params holds the immutable configuration of a sale. It is fixed at
// construction and never changes afterwards.
type Params struct {
	Owner               common.Address // only identity allowed to run admin operations
	SaleAddress         common.Address // spender identity the token wallet granted its allowance to
	FundsWallet         common.Address
	TokenWallet         common.Address
	LockWallet          common.Address
	Rate                *uint256.Int // tokens per wei
	MaxTokensForSale    *uint256.Int
	MinInvestmentTokens *uint256.Int
}

// Validate checks that every field is usable.
func (p Params) Validate() error {
	addrs := []struct {
		name string
		addr common.Address
	}{
		{"owner", p.Owner},
		{"sale_address", p.SaleAddress},
		{"funds_wallet", p.FundsWallet},
		{"token_wallet", p.TokenWallet},
		{"lock_wallet", p.LockWallet},
	}
	for _, a := range addrs {
		if a.addr == (common.Address{}) {
			return fmt.Errorf("%w: %s is the zero address", ErrInvalidConfig, a.name)
		}
	}

	if p.Rate == nil || p.Rate.IsZero() {
		return fmt.Errorf("%w: rate must be greater than zero", ErrInvalidConfig)
	}
	if p.MaxTokensForSale == nil || p.MaxTokensForSale.IsZero() {
		return fmt.Errorf("%w: max tokens for sale must be greater than zero", ErrInvalidConfig)
	}
	if p.MinInvestmentTokens == nil {
		return fmt.Errorf("%w: min investment is required", ErrInvalidConfig)
	}
	if p.MinInvestmentTokens.Gt(p.MaxTokensForSale) {
		return fmt.Errorf("%w: min investment exceeds max tokens for sale", ErrInvalidConfig)
	}
	return nil
}

// Purchase is the record emitted for every accepted payment.
type Purchase struct {
	ID        string         `json:"id"`
	Seq       uint64         `json:"seq"`
	Investor  common.Address `json:"investor"`
	Paid      *uint256.Int   `json:"paid"`
	Tokens    *uint256.Int   `json:"tokens"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of p.
func (p *Purchase) Clone() *Purchase {
	c := *p
	if p.Paid != nil {
		c.Paid = p.Paid.Clone()
	}
	if p.Tokens != nil {
		c.Tokens = p.Tokens.Clone()
	}
	return &c
}

// Status is a point-in-time view of the sale.
type Status struct {
	Owner               common.Address `json:"owner"`
	FundsWallet         common.Address `json:"funds_wallet"`
	TokenWallet         common.Address `json:"token_wallet"`
	LockWallet          common.Address `json:"lock_wallet"`
	Rate                *uint256.Int   `json:"rate"`
	MaxTokensForSale    *uint256.Int   `json:"max_tokens_for_sale"`
	MinInvestmentTokens *uint256.Int   `json:"min_investment_tokens"`
	TokensIssued        *uint256.Int   `json:"tokens_issued"`
	TokensRemaining     *uint256.Int   `json:"tokens_remaining"`
	CapReached          bool           `json:"cap_reached"`
	Paused              bool           `json:"paused"`
	Closed              bool           `json:"closed"`
}
