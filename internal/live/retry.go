package live

import (
	"context"
	"errors"
	"fmt"
)

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient: %v", e.err)
}

func (e *transientError) Unwrap() error {
	return e.err
}

// MarkTransient wraps an error so that Attempt will retry the command
// exactly once. Services mark network and availability failures this
// way; validation and permission errors are never marked.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether the error was marked retryable.
func IsTransient(err error) bool {
	var target *transientError
	return errors.As(err, &target)
}

// Attempt runs a mutating command with at most one retry on a
// transient failure. Anything beyond a single retry risks duplicate
// sends, so persistent failures surface to the caller instead.
func Attempt(ctx context.Context, command func(ctx context.Context) error) error {
	err := command(ctx)
	if err == nil || !IsTransient(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	return command(ctx)
}
