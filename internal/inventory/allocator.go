package inventory

import (
	"fmt"
	"strings"
)

// Allocator constants.
const (
	// idSpace is the number of distinct identifiers before the counter wraps.
	idSpace = 100

	// idWidth is the zero-padded width of a formatted identifier.
	idWidth = 2
)

// IDPolicy controls what happens when the allocator wraps around.
type IDPolicy string

const (
	// IDPolicyChecked skips identifiers still held by a live record and
	// fails with ErrCapacityExhausted when none are free.
	IDPolicyChecked IDPolicy = "checked"

	// IDPolicyLegacy reissues identifiers after wraparound even if a live
	// record still carries them.
	IDPolicyLegacy IDPolicy = "legacy"
)

// ParseIDPolicy converts a configuration string to an IDPolicy.
// Empty input selects IDPolicyChecked.
func ParseIDPolicy(s string) (IDPolicy, error) {
	switch IDPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", IDPolicyChecked:
		return IDPolicyChecked, nil
	case IDPolicyLegacy:
		return IDPolicyLegacy, nil
	default:
		return "", fmt.Errorf("unknown id policy %q", s)
	}
}

// Allocator hands out short decimal identifiers for one entity kind.
//
// The counter starts at 0 and advances modulo 100; identifiers are the
// counter formatted as two zero-padded digits ("00" … "99").
//
// Allocator is not safe for concurrent use; the Registry serialises access.
type Allocator struct {
	counter int
	policy  IDPolicy
}

// NewAllocator creates an allocator starting at "00".
func NewAllocator(policy IDPolicy) *Allocator {
	if policy == "" {
		policy = IDPolicyChecked
	}
	return &Allocator{policy: policy}
}

// Policy returns the wraparound policy.
func (a *Allocator) Policy() IDPolicy {
	return a.policy
}

// Next returns the next identifier.
//
// inUse reports whether an identifier currently belongs to a live record.
// It is consulted only under IDPolicyChecked and may be nil.
func (a *Allocator) Next(inUse func(id string) bool) (string, error) {
	if a.policy == IDPolicyLegacy || inUse == nil {
		return a.advance(), nil
	}

	for range idSpace {
		id := a.advance()
		if !inUse(id) {
			return id, nil
		}
	}
	return "", ErrCapacityExhausted
}

// advance formats the current counter and moves it on.
func (a *Allocator) advance() string {
	id := fmt.Sprintf("%0*d", idWidth, a.counter)
	a.counter = (a.counter + 1) % idSpace
	return id
}
