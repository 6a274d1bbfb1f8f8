package flows

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNetworkFailure = errors.New("network failure")
	ErrRateLimited    = errors.New("code dispatch rate limited")
	ErrBackendPanic   = errors.New("verification backend panicked")
	ErrEngineNotReady = errors.New("engine not initialized")
)

// FailureKind classifies a user-visible failure.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureInvalidInput
	FailureNetwork
	FailureRateLimited
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureInvalidInput:
		return "invalid_input"
	case FailureNetwork:
		return "network_failure"
	case FailureRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name so JSON snapshots stay readable.
func (k FailureKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *FailureKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*k = FailureNone
	case "invalid_input":
		*k = FailureInvalidInput
	case "network_failure":
		*k = FailureNetwork
	case "rate_limited":
		*k = FailureRateLimited
	default:
		return fmt.Errorf("unknown failure kind %q", text)
	}
	return nil
}

// Failure is the normalized outcome of a failed verification operation.
// Message is always safe to show to the end user.
type Failure struct {
	Kind    FailureKind
	Message string
	Status  int
	Err     error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(f.Kind.String())
	if f.Message != "" {
		b.WriteString(": ")
		b.WriteString(f.Message)
	}
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Is matches the kind sentinels so callers can use errors.Is on a Failure.
func (f *Failure) Is(target error) bool {
	if f == nil {
		return false
	}
	switch target {
	case ErrInvalidInput:
		return f.Kind == FailureInvalidInput
	case ErrNetworkFailure:
		return f.Kind == FailureNetwork
	case ErrRateLimited:
		return f.Kind == FailureRateLimited
	}
	return false
}

// AsFailure extracts a *Failure from err. Any other non-nil error is reported
// as a network failure carrying fallback.
func AsFailure(err error, fallback string) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: FailureNetwork, Message: fallback, Err: err}
}

type userMessager interface {
	UserMessage() string
}

type statusCoder interface {
	StatusCode() int
}

// BackendMessage returns the human-readable message a backend error carries,
// or "" when it has none.
func BackendMessage(err error) string {
	var m userMessager
	if errors.As(err, &m) {
		return strings.TrimSpace(m.UserMessage())
	}
	return ""
}

// BackendStatus returns the HTTP status a backend error carries, or 0.
func BackendStatus(err error) int {
	var s statusCoder
	if errors.As(err, &s) {
		return s.StatusCode()
	}
	return 0
}
