package inventory

import "errors"

// Domain errors for the inventory package.
//
// Lookup failures wrap ErrNotFound so the transport layer can map every
// missing-entity case with a single check:
//
//	if errors.Is(err, inventory.ErrNotFound) {
//	    // 404
//	}
var (
	// ErrNotFound is the common parent of all missing-entity errors.
	ErrNotFound = errors.New("inventory: not found")

	// ErrDeviceNotFound is returned when a device ID does not resolve.
	ErrDeviceNotFound = notFound("inventory: device not found")

	// ErrUserNotFound is returned when a user ID does not resolve.
	ErrUserNotFound = notFound("inventory: user not found")

	// ErrNoImage is returned when a device exists but has no image reference.
	ErrNoImage = notFound("inventory: device has no image")

	// ErrDuplicateName is returned when a name is already used in the same store.
	ErrDuplicateName = errors.New("inventory: name already registered")

	// ErrConflict is returned for an illegal assignment state transition.
	ErrConflict = errors.New("inventory: conflicting assignment state")

	// ErrInvalidName is returned when a record is registered or renamed with an empty name.
	ErrInvalidName = errors.New("inventory: invalid name")

	// ErrCapacityExhausted is returned when the allocator has no free identifier left.
	ErrCapacityExhausted = errors.New("inventory: identifier space exhausted")
)

// kindError is a sentinel that also reports itself as ErrNotFound.
type kindError struct {
	msg    string
	parent error
}

func notFound(msg string) error {
	return &kindError{msg: msg, parent: ErrNotFound}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.parent }
