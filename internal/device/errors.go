package device

import (
	"errors"
	"fmt"
)

// ConnState represents the specific kind of connection failure.
type ConnState string

const (
	NotConnected           ConnState = "not_connected"
	AlreadyConnected       ConnState = "already_connected"
	ServiceNotFound        ConnState = "service_not_found"
	CharacteristicNotFound ConnState = "characteristic_not_found"
	Timeout                ConnState = "timeout"
	RetriesExhausted       ConnState = "retries_exhausted"
	AdapterError           ConnState = "adapter_error"
)

// ConnError represents any connection-related problem.
type ConnError struct {
	State ConnState
	Msg   string
}

// Error implements the error interface.
func (e *ConnError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return string(e.State)
	}
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// Is allows errors.Is to compare ConnError values by State.
func (e *ConnError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states.
var (
	ErrNotConnected           = &ConnError{State: NotConnected}
	ErrAlreadyConnected       = &ConnError{State: AlreadyConnected}
	ErrServiceNotFound        = &ConnError{State: ServiceNotFound}
	ErrCharacteristicNotFound = &ConnError{State: CharacteristicNotFound}
	ErrTimeout                = &ConnError{State: Timeout}
	ErrRetriesExhausted       = &ConnError{State: RetriesExhausted}
	ErrAdapterError           = &ConnError{State: AdapterError}
)

// Errf builds a ConnError with a formatted message.
func Errf(state ConnState, format string, args ...interface{}) error {
	return &ConnError{State: state, Msg: fmt.Sprintf(format, args...)}
}

// Transient reports whether err is a connection failure worth retrying
// locally. Timeouts and adapter hiccups are transient; topology and
// configuration problems (missing service or characteristic, a second
// session on the same identity, an exhausted retry budget) are not.
func Transient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrAdapterError)
}

// IsConnState reports whether err is a ConnError with the given state.
func IsConnState(err error, state ConnState) bool {
	var cerr *ConnError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}
