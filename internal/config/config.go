package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"api_presale/internal/presale"
)

const (
	defaultListenAddr     = ":8081"
	defaultRateLimitRPS   = 20
	defaultRateLimitBurst = 40

	// DefaultFile is read when no path is given.
	DefaultFile = "presale.json"
)

// Config is the on-disk sale configuration. Amounts are decimal strings.
type Config struct {
	ListenAddr string `json:"listen_addr"`

	Owner       string `json:"owner"`
	SaleAddress string `json:"sale_address"`
	FundsWallet string `json:"funds_wallet"`
	TokenWallet string `json:"token_wallet"`
	LockWallet  string `json:"lock_wallet"`

	Rate                string `json:"rate"`
	MaxTokensForSale    string `json:"max_tokens_for_sale"`
	MinInvestmentTokens string `json:"min_investment_tokens"`

	// Seed for the in-memory token ledger.
	TokenSupply    string `json:"token_supply"`
	TokenAllowance string `json:"token_allowance"`
	// Native-currency balances investors start with, keyed by hex address.
	NativeBalances map[string]string `json:"native_balances"`

	RateLimitRPS   float64 `json:"rate_limit_rps"`
	RateLimitBurst int     `json:"rate_limit_burst"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:          defaultListenAddr,
		Rate:                "100000",
		MaxTokensForSale:    "4000000000000000000000000",
		MinInvestmentTokens: "0",
		TokenSupply:         "200000000000000000000000000",
		TokenAllowance:      "4000000000000000000000000",
		RateLimitRPS:        defaultRateLimitRPS,
		RateLimitBurst:      defaultRateLimitBurst,
	}
}

// Load reads config from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Params converts the config into sale parameters and validates them.
func (c *Config) Params() (presale.Params, error) {
	var p presale.Params
	var err error

	addrs := []struct {
		name string
		raw  string
		dst  *common.Address
	}{
		{"owner", c.Owner, &p.Owner},
		{"sale_address", c.SaleAddress, &p.SaleAddress},
		{"funds_wallet", c.FundsWallet, &p.FundsWallet},
		{"token_wallet", c.TokenWallet, &p.TokenWallet},
		{"lock_wallet", c.LockWallet, &p.LockWallet},
	}
	for _, a := range addrs {
		if *a.dst, err = ParseAddress(a.raw); err != nil {
			return presale.Params{}, fmt.Errorf("%s: %w", a.name, err)
		}
	}

	amounts := []struct {
		name string
		raw  string
		dst  **uint256.Int
	}{
		{"rate", c.Rate, &p.Rate},
		{"max_tokens_for_sale", c.MaxTokensForSale, &p.MaxTokensForSale},
		{"min_investment_tokens", c.MinInvestmentTokens, &p.MinInvestmentTokens},
	}
	for _, a := range amounts {
		if *a.dst, err = ParseAmount(a.raw); err != nil {
			return presale.Params{}, fmt.Errorf("%s: %w", a.name, err)
		}
	}

	if err := p.Validate(); err != nil {
		return presale.Params{}, err
	}
	return p, nil
}

// Seed returns the in-memory ledger supply and the allowance granted to the sale.
func (c *Config) Seed() (supply, allowance *uint256.Int, err error) {
	if supply, err = ParseAmount(c.TokenSupply); err != nil {
		return nil, nil, fmt.Errorf("token_supply: %w", err)
	}
	if allowance, err = ParseAmount(c.TokenAllowance); err != nil {
		return nil, nil, fmt.Errorf("token_allowance: %w", err)
	}
	return supply, allowance, nil
}

// Balances parses the native-currency balances to seed the vault with.
func (c *Config) Balances() (map[common.Address]*uint256.Int, error) {
	out := make(map[common.Address]*uint256.Int, len(c.NativeBalances))
	for raw, amount := range c.NativeBalances {
		addr, err := ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("native_balances: %w", err)
		}
		if addr == (common.Address{}) {
			return nil, fmt.Errorf("native_balances: %w: zero address", presale.ErrInvalidAddress)
		}
		n, err := ParseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("native_balances[%s]: %w", raw, err)
		}
		out[addr] = n
	}
	return out, nil
}

// ParseAddress parses a 0x-prefixed hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %q", presale.ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAmount parses a base-10 amount.
func ParseAmount(s string) (*uint256.Int, error) {
	n, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return n, nil
}
