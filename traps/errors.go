package traps

import (
	"errors"
	"fmt"

	"github.com/Urethramancer/m68kmac/rsrc"
)

var (
	// ErrUnknownTrap is wrapped by UnknownTrapError.
	ErrUnknownTrap = errors.New("unknown trap")
	// ErrResourceNotFound is wrapped by ResourceNotFoundError.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrReentrant is returned when a trap is dispatched from inside a handler.
	ErrReentrant = errors.New("trap dispatched while another trap is running")
)

// UnknownTrapError reports a trap word with no registry entry.
type UnknownTrapError struct {
	ID uint16
}

func (e *UnknownTrapError) Error() string {
	return fmt.Sprintf("unknown trap %04X", e.ID)
}

func (e *UnknownTrapError) Unwrap() error {
	return ErrUnknownTrap
}

// ResourceNotFoundError reports a _GetResource miss.
type ResourceNotFoundError struct {
	Type rsrc.Type
	ID   int16
	// Err is the store's own error.
	Err error
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("missing resource '%s' ID %d", e.Type, e.ID)
}

func (e *ResourceNotFoundError) Unwrap() []error {
	return []error{ErrResourceNotFound, e.Err}
}

// OverlapWarning is reported when _BlockMove is asked to copy between
// overlapping ranges. The copy still runs front to back.
type OverlapWarning struct {
	Src, Dst, Count uint32
}

func (w *OverlapWarning) Error() string {
	return fmt.Sprintf("_BlockMove source %08X and destination %08X overlap for %d bytes", w.Src, w.Dst, w.Count)
}
