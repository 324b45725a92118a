// Package errs provides sentinel-wrapping helpers used throughout chariot.
//
// Every package declares its own sentinel errors with errors.New and wraps
// causes with Wrap/Wrapf so that errors.Is/errors.As keep working across
// package boundaries while still letting the CLI print a full causal chain.
package errs

import "fmt"

// Wraps cause under sentinel, preserving both in the error chain so that
// errors.Is(err, sentinel) and errors.Is(err, cause) both succeed.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Like Wrap, but with a formatted message inserted between the sentinel and
// the final %w verb. The format string's final verb must be %w.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
