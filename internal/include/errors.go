package include

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath marks a directive whose path cannot name a unit.
var ErrInvalidPath = errors.New("include: invalid path")

// FetchError describes a directive that could not be satisfied by any
// location. The resolver records it and moves on.
type FetchError struct {
	Unit      string // unit containing the directive
	Directive Directive
	Tried     []string // names attempted, in order
	Err       error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s:%d: %s %q not found", e.Unit, e.Directive.Line, e.Directive.Kind, e.Directive.Path)
	if len(e.Tried) > 0 {
		msg += " (tried " + strings.Join(e.Tried, ", ") + ")"
	}
	if e.Err != nil && !errors.Is(e.Err, ErrNotFound) {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// TransportError is a fault other than a miss while reading Name. It aborts
// the whole resolution.
type TransportError struct {
	Name     string
	Location string // "local", "primary" or "fallback"
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("include: %s fetch of %s: %v", e.Location, e.Name, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
