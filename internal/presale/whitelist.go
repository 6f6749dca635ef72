package presale

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Whitelist is the set of investor addresses allowed to buy.
// It is not safe for concurrent use; Service serializes access.
type Whitelist struct {
	members map[common.Address]struct{}
}

// NewWhitelist creates an empty whitelist.
func NewWhitelist() *Whitelist {
	return &Whitelist{members: map[common.Address]struct{}{}}
}

// Add inserts addr. Adding an existing member is a no-op.
func (w *Whitelist) Add(addr common.Address) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidAddress)
	}
	w.members[addr] = struct{}{}
	return nil
}

// AddMany inserts every address in order, or none of them if any is invalid.
func (w *Whitelist) AddMany(addrs []common.Address) error {
	for i, addr := range addrs {
		if addr == (common.Address{}) {
			return fmt.Errorf("%w: zero address at index %d", ErrInvalidAddress, i)
		}
	}
	for _, addr := range addrs {
		w.members[addr] = struct{}{}
	}
	return nil
}

// Remove deletes addr. Removing a non-member is a no-op.
func (w *Whitelist) Remove(addr common.Address) {
	delete(w.members, addr)
}

// Contains reports whether addr is a member.
func (w *Whitelist) Contains(addr common.Address) bool {
	_, ok := w.members[addr]
	return ok
}

// Len returns the number of members.
func (w *Whitelist) Len() int {
	return len(w.members)
}
