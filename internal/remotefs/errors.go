package remotefs

import (
	"errors"
	"fmt"
)

// Server error codes
const (
	CodeItemWithSameNameExists = "item_with_same_name_exists"
	CodeImmutable              = "immutable"
	CodeNotFound               = "subject_does_not_exist"
	CodeForbidden              = "forbidden"
)

// Error is a failure reported by the filesystem API
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	EntryName string `json:"entry_name,omitempty"`
	Status    int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code == CodeItemWithSameNameExists && e.EntryName != "" {
		return fmt.Sprintf("an item with name `%s` already exists", e.EntryName)
	}
	return fmt.Sprintf("filesystem error %s (status %d)", e.Code, e.Status)
}

// NewConflict returns the error reported when name already exists
func NewConflict(name string) *Error {
	return &Error{
		Code:      CodeItemWithSameNameExists,
		Message:   fmt.Sprintf("An item with name `%s` already exists.", name),
		EntryName: name,
		Status:    409,
	}
}

// IsConflict reports whether err is a same-name conflict
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == CodeItemWithSameNameExists
}

// ConflictName returns the conflicting entry name of a conflict error
func ConflictName(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.EntryName
	}
	return ""
}

// IsNotFound reports whether err says the subject does not exist
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Code == CodeNotFound || e.Status == 404)
}
