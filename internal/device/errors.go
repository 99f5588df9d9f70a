package device

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNumber is returned when a dial target fails minimal phone
	// number shape validation. Recoverable; surface inline.
	ErrInvalidNumber = errors.New("device: invalid phone number")

	// ErrNotStarted is returned when the controller is used before Start.
	ErrNotStarted = errors.New("device: controller not started")

	// ErrCallCapReached is returned when the workspace's concurrent live
	// call limit is exhausted.
	ErrCallCapReached = errors.New("device: workspace call limit reached")
)

// TransportError wraps a provider failure. It is always recoverable: the
// session it belonged to moves to failed and the device stays usable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("device: transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
