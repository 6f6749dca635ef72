// Package ledger provides in-memory stand-ins for the collaborators a sale
// talks to: a fungible-token ledger with ERC-20 allowance semantics and a
// native-currency vault.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrZeroAddress           = errors.New("zero address")
	ErrOverflow              = errors.New("balance overflow")
)

// Token is an in-memory ERC-20 ledger. Every method is atomic.
type Token struct {
	mu          sync.Mutex
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

// NewToken mints supply to owner.
func NewToken(owner common.Address, supply *uint256.Int) *Token {
	t := &Token{
		totalSupply: supply.Clone(),
		balances:    map[common.Address]*uint256.Int{},
		allowances:  map[common.Address]map[common.Address]*uint256.Int{},
	}
	t.balances[owner] = supply.Clone()
	return t
}

func (t *Token) balance(addr common.Address) *uint256.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	return new(uint256.Int)
}

func (t *Token) allowance(owner, spender common.Address) *uint256.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return a
	}
	return new(uint256.Int)
}

func (t *Token) TotalSupply() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalSupply.Clone()
}

func (t *Token) BalanceOf(_ context.Context, owner common.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balance(owner).Clone(), nil
}

func (t *Token) Allowance(_ context.Context, owner, spender common.Address) (*uint256.Int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allowance(owner, spender).Clone(), nil
}

// Approve sets the amount spender may move out of owner's balance.
func (t *Token) Approve(_ context.Context, owner, spender common.Address, amount *uint256.Int) error {
	if spender == (common.Address{}) {
		return fmt.Errorf("approve: %w", ErrZeroAddress)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[owner] == nil {
		t.allowances[owner] = map[common.Address]*uint256.Int{}
	}
	t.allowances[owner][spender] = amount.Clone()
	return nil
}

// Transfer moves amount from the sender's own balance.
func (t *Token) Transfer(_ context.Context, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, amount)
}

// TransferFrom moves amount from from to to, spending spender's allowance.
// On any failure neither the balances nor the allowance change.
func (t *Token) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.allowance(from, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("transferFrom %s: %w: allowed %s", from.Hex(), ErrInsufficientAllowance, allowed.Dec())
	}
	if err := t.move(from, to, amount); err != nil {
		return err
	}
	if t.allowances[from] == nil {
		t.allowances[from] = map[common.Address]*uint256.Int{}
	}
	t.allowances[from][spender] = new(uint256.Int).Sub(allowed, amount)
	return nil
}

// RevertTransfer undoes a TransferFrom that succeeded, restoring both the
// balances and the spender's allowance.
func (t *Token) RevertTransfer(_ context.Context, spender, from, to common.Address, amount *uint256.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	restored, overflow := new(uint256.Int).AddOverflow(t.allowance(from, spender), amount)
	if overflow {
		return fmt.Errorf("revert allowance: %w", ErrOverflow)
	}
	if err := t.move(to, from, amount); err != nil {
		return fmt.Errorf("revert: %w", err)
	}
	if t.allowances[from] == nil {
		t.allowances[from] = map[common.Address]*uint256.Int{}
	}
	t.allowances[from][spender] = restored
	return nil
}

// move must be called with mu held.
func (t *Token) move(from, to common.Address, amount *uint256.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer: %w", ErrZeroAddress)
	}
	fromBal := t.balance(from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("transfer from %s: %w: balance %s", from.Hex(), ErrInsufficientBalance, fromBal.Dec())
	}
	if from == to {
		return nil
	}
	toBal, overflow := new(uint256.Int).AddOverflow(t.balance(to), amount)
	if overflow {
		return fmt.Errorf("transfer to %s: %w", to.Hex(), ErrOverflow)
	}
	t.balances[from] = new(uint256.Int).Sub(fromBal, amount)
	t.balances[to] = toBal
	return nil
}
