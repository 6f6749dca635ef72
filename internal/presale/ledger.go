package presale

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenLedger is the external fungible-token ledger holding the sellable supply.
// TransferFrom must either move the full amount or fail with no effect.
type TokenLedger interface {
	BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error)
	Allowance(ctx context.Context, owner, spender common.Address) (*uint256.Int, error)
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error
}

// FundsForwarder moves the native-currency payment of a purchase from the
// investor to the funds wallet. Forward must either move the full amount or
// fail with no effect.
type FundsForwarder interface {
	Forward(ctx context.Context, from, to common.Address, amount *uint256.Int) error
}

// Reverter is implemented by ledgers able to undo a TransferFrom that already
// succeeded. Service uses it when forwarding funds fails after the token leg.
type Reverter interface {
	RevertTransfer(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error
}
