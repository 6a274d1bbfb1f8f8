package goPrereg

import (
	"errors"

	"github.com/MrEthical07/goPrereg/internal/flows"
)

var (
	// ErrInvalidInput matches failures caused by a malformed email or code.
	ErrInvalidInput = flows.ErrInvalidInput
	// ErrNetworkFailure matches failures reported by, or on the way to, the backend.
	ErrNetworkFailure = flows.ErrNetworkFailure
	// ErrRateLimited matches dispatches refused by the shared dispatch limiter.
	ErrRateLimited = flows.ErrRateLimited
	// ErrBackendPanic wraps a panic recovered from a Backend call.
	ErrBackendPanic = flows.ErrBackendPanic
	// ErrEngineNotReady is returned when an Engine has no backend.
	ErrEngineNotReady = flows.ErrEngineNotReady
	// ErrStateViolation is returned by Flow commands issued in a state that
	// does not accept them, when Flow.StrictTransitions is set.
	ErrStateViolation = errors.New("command not valid in current flow state")
	// ErrPreRegistrationDisabled is returned by Flow.Open when pre-registration
	// is switched off.
	ErrPreRegistrationDisabled = errors.New("pre-registration disabled")
	// ErrBackendRequired is returned by Build when no backend can be resolved.
	ErrBackendRequired = errors.New("verification backend required")
)
