package presale

import "errors"

var (
	// ErrAccessDenied is returned when a non-owner calls an owner-only operation.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotWhitelisted is returned when the investor is not on the whitelist.
	ErrNotWhitelisted = errors.New("investor not whitelisted")
	// ErrSaleClosed is returned for purchases, pause and unpause after the sale was closed.
	ErrSaleClosed = errors.New("sale closed")
	// ErrSalePaused is returned for purchases while the sale is paused.
	ErrSalePaused = errors.New("sale paused")
	// ErrInvalidAmount is returned for a zero payment.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrBelowMinimum is returned when the converted token amount is under the minimum investment.
	ErrBelowMinimum = errors.New("below minimum investment")
	// ErrCapExceeded is returned when the purchase would push tokens issued past the cap.
	ErrCapExceeded = errors.New("cap exceeded")
	// ErrArithmeticOverflow is returned when paid * rate does not fit in 256 bits.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
	// ErrExternalTransferFailed is returned when the token ledger or the funds wallet refused a transfer.
	ErrExternalTransferFailed = errors.New("external transfer failed")

	ErrInvalidAddress = errors.New("invalid address")
	ErrInvalidConfig  = errors.New("invalid sale config")
)
