package utils

import "fmt"

// OpError reports that an operation against the backing store or the
// allocator failed, together with the underlying cause. The store and
// allocator packages wrap the errors they return in one so a caller walking
// up from Tree.Insert/Remove sees which operation failed without losing
// the original error for errors.Is/As.
type OpError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e *OpError) Unwrap() error {
	return e.Cause
}

// WrapError wraps cause with the operation that was being attempted when it
// occurred. Returns nil if cause is nil, so call sites can write
// `return utils.WrapError("op", err)` unconditionally after an err check.
func WrapError(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return &OpError{Op: op, Cause: cause}
}
