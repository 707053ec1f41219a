package store

import (
	"errors"

	"github.com/samber/oops"
)

// Error classes. Every error returned by a store operation matches exactly
// one of them with errors.Is.
var (
	ErrInsertion = errors.New("could not insert into store")
	ErrUpdate    = errors.New("could not update store")
	ErrQuery     = errors.New("could not query store")
)

// Causes.
var (
	ErrEntityDoesNotExist    = errors.New("entity does not exist")
	ErrRaceConditionOnUpdate = errors.New("race condition on update")
	ErrUnknownEntityType     = errors.New("unknown entity type")
	ErrNoMatch               = errors.New("no record matched the filter")
	ErrAmbiguousMatch        = errors.New("more than one record matched the filter")
)

// Error pairs an error class with the cause that produced it.
type Error struct {
	class error
	cause error
}

func (e *Error) Error() string {
	return e.class.Error() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() []error {
	return []error{e.class, e.cause}
}

// Class returns ErrInsertion, ErrUpdate or ErrQuery.
func (e *Error) Class() error {
	return e.class
}

func NewInsertionError(cause error) error {
	return newError(ErrInsertion, cause)
}

func NewUpdateError(cause error) error {
	return newError(ErrUpdate, cause)
}

func NewQueryError(cause error) error {
	return newError(ErrQuery, cause)
}

func newError(class, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, class) {
		return cause
	}
	return &Error{class: class, cause: cause}
}

// IsRetryable reports whether the operation failed only because a concurrent
// writer won. Retrying from scratch is expected to succeed eventually.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRaceConditionOnUpdate)
}

// ContextOf returns the structured context attached anywhere in the chain of
// err, or nil.
func ContextOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

// ContextKeyvals flattens ContextOf into logger key/value pairs.
func ContextKeyvals(err error) []any {
	ctx := ContextOf(err)
	out := make([]any, 0, len(ctx)*2)
	for k, v := range ctx {
		out = append(out, k, v)
	}
	return out
}
