package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a write violates a store-enforced uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// Fields guarded by uniqueness constraints.
const (
	FieldID            = "id"
	FieldUsername      = "username"
	FieldEmail         = "email"
	FieldActivationKey = "activation_key"
)

// DuplicateError names the field whose uniqueness constraint rejected a write.
// It matches ErrDuplicate under errors.Is.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s", e.Field)
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// DuplicateField extracts the violated field from err, if any.
func DuplicateField(err error) (string, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup.Field, true
	}
	return "", false
}
