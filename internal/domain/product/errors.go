package product

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced product has no event stream.
	ErrNotFound = errors.New("product not found")

	// ErrConcurrencyConflict indicates another writer appended to the
	// stream between load and save. The losing command is never
	// retried automatically.
	ErrConcurrencyConflict = errors.New("concurrency conflict: stream version mismatch")

	// ErrDuplicateIdentity is the creation-specific translation of a
	// concurrency conflict: somebody else already created this product.
	ErrDuplicateIdentity = errors.New("product with this id already exists")
)

type ValidationError struct {
	Field string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("required field '%s' is missing or empty", e.Field)
}

type InvalidStateTransitionError struct {
	Id     string
	Reason string
}

func (e InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for product %s: %s", e.Id, e.Reason)
}
