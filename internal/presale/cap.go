package presale

import (
	"github.com/holiman/uint256"
)

// RateConverter turns a wei payment into a token amount at a fixed rate.
type RateConverter struct {
	rate *uint256.Int
}

func NewRateConverter(rate *uint256.Int) RateConverter {
	return RateConverter{rate: rate.Clone()}
}

// Convert returns paid * rate, or ErrArithmeticOverflow when the product does not fit.
func (r RateConverter) Convert(paid *uint256.Int) (*uint256.Int, error) {
	tokens, overflow := new(uint256.Int).MulOverflow(paid, r.rate)
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	return tokens, nil
}

// CapTracker keeps the running total of tokens issued against the sale cap.
// The total never decreases and never passes the cap.
type CapTracker struct {
	max    *uint256.Int
	issued *uint256.Int
}

func NewCapTracker(max *uint256.Int) *CapTracker {
	return &CapTracker{
		max:    max.Clone(),
		issued: new(uint256.Int),
	}
}

// Check reports whether amount still fits under the cap. There is no partial fill.
func (c *CapTracker) Check(amount *uint256.Int) error {
	next, overflow := new(uint256.Int).AddOverflow(c.issued, amount)
	if overflow {
		return ErrCapExceeded
	}
	if next.Gt(c.max) {
		return ErrCapExceeded
	}
	return nil
}

// Record adds amount to the total. Callers must Check first.
func (c *CapTracker) Record(amount *uint256.Int) {
	c.issued.Add(c.issued, amount)
}

func (c *CapTracker) Issued() *uint256.Int {
	return c.issued.Clone()
}

func (c *CapTracker) Remaining() *uint256.Int {
	return new(uint256.Int).Sub(c.max, c.issued)
}

// Reached reports whether tokens issued is at or above the cap.
func (c *CapTracker) Reached() bool {
	return !c.issued.Lt(c.max)
}
