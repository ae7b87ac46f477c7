// Package fetch provides the resilient fetch primitive shared by every
// remote call the resolver makes: bounded quadratic-backoff retry plus a
// per-run issue cache that de-duplicates concurrent fetches for the same key.
package fetch

import "errors"

// TerminalError marks a remote failure that retrying cannot fix: bad query,
// not-found, unauthorized. Raised to the caller immediately without
// consuming retry budget.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return "terminal: " + e.Err.Error() }

func (e *TerminalError) Unwrap() error { return e.Err }

// TransientError marks a remote failure worth retrying: timeout, 5xx,
// connection failure. Any error that is not terminal is treated as
// transient; the explicit type exists so adapters can label failures at the
// classification point.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Terminal wraps err as a TerminalError. Returns nil for a nil err.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Err: err}
}

// Transient wraps err as a TransientError. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTerminal reports whether err carries a TerminalError anywhere in its
// chain.
func IsTerminal(err error) bool {
	var t *TerminalError
	return errors.As(err, &t)
}
