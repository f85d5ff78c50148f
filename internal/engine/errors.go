// ABOUTME: Engine error taxonomy
// ABOUTME: Precondition sentinel and fatal initialization error type
package engine

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned (and logged) when a command arrives before
// Initialize or after Dispose. The command has no effect.
var ErrNotInitialized = errors.New("engine not initialized")

// InitError means the audio output could not be brought up. It is fatal
// for the engine instance and is not retried.
type InitError struct {
	Backend string
	Err     error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("failed to initialize %s audio output: %v", e.Backend, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}
