package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Vault tracks native-currency balances. Payments move between accounts;
// only Deposit creates funds.
type Vault struct {
	mu       sync.Mutex
	balances map[common.Address]*uint256.Int
}

func NewVault() *Vault {
	return &Vault{balances: map[common.Address]*uint256.Int{}}
}

func (v *Vault) balance(addr common.Address) *uint256.Int {
	if b, ok := v.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

// Deposit credits amount to addr.
func (v *Vault) Deposit(addr common.Address, amount *uint256.Int) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("deposit: %w", ErrZeroAddress)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	next, overflow := new(uint256.Int).AddOverflow(v.balance(addr), amount)
	if overflow {
		return fmt.Errorf("deposit to %s: %w", addr.Hex(), ErrOverflow)
	}
	v.balances[addr] = next
	return nil
}

// Forward moves amount from from to to. On failure no balance changes.
func (v *Vault) Forward(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return fmt.Errorf("forward: %w", ErrZeroAddress)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	fromBal := v.balance(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("forward from %s: %w: balance %s", from.Hex(), ErrInsufficientBalance, fromBal.Dec())
	}
	if from == to {
		return nil
	}
	toBal, overflow := new(uint256.Int).AddOverflow(v.balance(to), amount)
	if overflow {
		return fmt.Errorf("forward to %s: %w", to.Hex(), ErrOverflow)
	}
	v.balances[from] = new(uint256.Int).Sub(fromBal, amount)
	v.balances[to] = toBal
	return nil
}

func (v *Vault) BalanceOf(addr common.Address) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance(addr).Clone()
}
