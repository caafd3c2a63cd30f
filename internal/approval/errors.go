package approval

import (
	"errors"
	"fmt"
)

// Sentinel errors for workflow operations. Callers distinguish these with
// errors.Is; anything else is a backend failure.
var (
	ErrNotFound     = errors.New("document not found")
	ErrUnauthorized = errors.New("user is not the current approver")
	ErrInvalidState = errors.New("document is not in an approvable state")
	ErrNoApprovers  = errors.New("approver chain must not be empty")
)

// StoreError wraps a failure from one of the underlying stores. The engine
// never retries or suppresses these; the caller decides retry policy.
type StoreError struct {
	Store string
	Op    string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(store, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Store: store, Op: op, Err: err}
}
