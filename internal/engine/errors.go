package engine

import (
	"errors"

	"github.com/GriffinCanCode/AgentOS/desktop/internal/operation"
	"github.com/GriffinCanCode/AgentOS/desktop/internal/remotefs"
)

var (
	// ErrConflict wraps same-name conflicts surfaced without a prompt
	ErrConflict = errors.New("an item with the same name already exists")

	// ErrImmutable is returned when every item of a request is immutable
	ErrImmutable = errors.New("item is immutable")

	// ErrInvalidDestination is returned for destinations an operation
	// may not target, such as folders inside the Trash
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrNoItems is returned when a request names no items
	ErrNoItems = errors.New("operation needs at least one item")

	// ErrUnknownKind is returned for unsupported operation kinds
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrInvalidArchive is returned when an archive cannot be expanded
	ErrInvalidArchive = errors.New("invalid archive")
)

// IsConflict reports whether err is a same-name conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || remotefs.IsConflict(err)
}

// IsCancelled reports whether err stems from user cancellation
func IsCancelled(err error) bool {
	return errors.Is(err, operation.ErrCancelled)
}
