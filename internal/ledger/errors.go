// Package ledger implements the reservation engine: the weekly slot grid,
// quota enforcement, the privileged-group rule, the admin force-write path
// and the availability gate.  Every operation is transactional against the
// store; a failed operation leaves the grid and settings untouched.
package ledger

import (
	"errors"
	"fmt"

	"github.com/mugeunji/studio-reservation/internal/model"
)

// ErrUnknownUser is returned when the booking user has no quota record.
var ErrUnknownUser = errors.New("unknown user")

// ErrPrivilegedSlotDenied is returned when a plain user requests any of
// the pre-dawn slots.
var ErrPrivilegedSlotDenied = errors.New("pre-dawn slots require a privileged account")

// ErrPrivilegedGroupNotAtomic is returned when a privileged caller
// requests part of the pre-dawn group without the rest; the four slots
// are only ever booked together.
var ErrPrivilegedGroupNotAtomic = errors.New("pre-dawn slots must be requested together as a group")

// NotOpenError reports that the gate refused the booking.  Reason is a
// human-readable explanation suitable for returning to the client.
type NotOpenError struct {
	Reason string
}

func (e *NotOpenError) Error() string { return e.Reason }

// QuotaExceededError reports that the request would push the user past
// their allowed hours.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("exceeds your allowed limit of %d hours", e.Limit)
}

// SlotConflictError reports that a requested slot is already occupied.
type SlotConflictError struct {
	Slot model.Slot
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("slot %s at index %d is already reserved", e.Slot.Day, e.Slot.TimeIndex)
}

// StoreError wraps any unclassified failure from the underlying store.
// The enclosing transaction has already been rolled back when it surfaces.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) *StoreError { return &StoreError{Op: op, Err: err} }
