package sobject

import (
	"errors"
	"fmt"
)

// Sentinel errors for record mutation.
var (
	// ErrEmptyFieldName is returned when Set is called with an empty field name.
	ErrEmptyFieldName = errors.New("field name cannot be empty")
	// ErrIdentityAssigned is returned when AssignID would replace an existing identity.
	ErrIdentityAssigned = errors.New("record identity already assigned")
)

// ReservedFieldError is returned when a reserved field is assigned through Set.
type ReservedFieldError struct {
	Field string
}

func (e *ReservedFieldError) Error() string {
	return fmt.Sprintf("field %q cannot be modified", e.Field)
}

// Hint returns a user-friendly suggestion for resolving this error.
func (e *ReservedFieldError) Hint() string {
	return fmt.Sprintf("%q is managed by the server. Save the record to obtain an identity.", e.Field)
}
