// Command reco computes friend recommendations over a social graph.
//
//	reco recommend --subject Vince --limit 2
//	reco precompute
//	reco serve
//	reco seed --fixture people.yaml
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ahrav/go-reco/internal/application"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Command succeeded
	ExitRuntime    = 1 // Store, cache or engine failure
	ExitBadRequest = 2 // Invalid flags, configuration or subject
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage), application.IsInvalidRequest(err):
		return ExitBadRequest
	default:
		return ExitRuntime
	}
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}
