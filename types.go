package goPrereg

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/MrEthical07/goPrereg/internal/audit"
	"github.com/MrEthical07/goPrereg/internal/cooldown"
	"github.com/MrEthical07/goPrereg/internal/flows"
	internalmetrics "github.com/MrEthical07/goPrereg/internal/metrics"
)

// Step is the screen a [Flow] is currently showing.
type Step string

const (
	// StepEmail collects the email address.
	StepEmail Step = "EMAIL"
	// StepVerify collects the code that was sent to the email.
	StepVerify Step = "VERIFY"
	// StepSuccess is terminal until the flow is closed.
	StepSuccess Step = "SUCCESS"
)

// FlowState is the observable state of a [Flow]. Values are snapshots and
// never alias the flow's internal state.
type FlowState struct {
	Open                  bool        `json:"open"`
	Step                  Step        `json:"step"`
	Email                 string      `json:"email"`
	Loading               bool        `json:"loading"`
	Error                 string      `json:"error"`
	Failure               FailureKind `json:"failure"`
	ResendCooldownSeconds int         `json:"resend_cooldown_seconds"`
}

// CanResend reports whether a resend would be dispatched right now.
func (s FlowState) CanResend() bool {
	return s.Open && s.Step == StepVerify && !s.Loading && s.ResendCooldownSeconds == 0
}

// Backend is the verification service the engine talks to. Implementations
// return nil on success. Errors that implement UserMessage() string have that
// message shown to the user; StatusCode() int is recorded in audit metadata.
//
// [github.com/MrEthical07/goPrereg/httpclient.Client] is the HTTP
// implementation.
type Backend interface {
	SendCode(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) error
	ResendCode(ctx context.Context, email string) error
}

// Clock supplies time and the ticker that drives resend cooldowns. Tests
// swap it for a manual clock.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	return cooldown.RealTicker(d)
}

// FailureKind classifies the error shown in [FlowState].
type FailureKind = flows.FailureKind

const (
	FailureNone         = flows.FailureNone
	FailureInvalidInput = flows.FailureInvalidInput
	FailureNetwork      = flows.FailureNetwork
	FailureRateLimited  = flows.FailureRateLimited
)

// Failure is the error type returned by [Engine.SendCode],
// [Engine.VerifyCode], and [Engine.ResendCode]. Its Message is always safe to
// display.
type Failure = flows.Failure

// AsFailure converts any error to a *Failure, using fallback as the user
// message when err carries none.
func AsFailure(err error, fallback string) *Failure {
	return flows.AsFailure(err, fallback)
}

// AuditEvent is a structured audit record emitted by the engine. Emails are
// masked before they reach a sink.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a counter or histogram in the in-process metrics
// system.
type MetricID = internalmetrics.MetricID

const (
	MetricFlowOpened          = internalmetrics.MetricFlowOpened
	MetricFlowClosed          = internalmetrics.MetricFlowClosed
	MetricFlowCompleted       = internalmetrics.MetricFlowCompleted
	MetricSendCodeSuccess     = internalmetrics.MetricSendCodeSuccess
	MetricSendCodeFailure     = internalmetrics.MetricSendCodeFailure
	MetricVerifySuccess       = internalmetrics.MetricVerifySuccess
	MetricVerifyFailure       = internalmetrics.MetricVerifyFailure
	MetricResendSuccess       = internalmetrics.MetricResendSuccess
	MetricResendFailure       = internalmetrics.MetricResendFailure
	MetricResendSuppressed    = internalmetrics.MetricResendSuppressed
	MetricInvalidInput        = internalmetrics.MetricInvalidInput
	MetricDispatchRateLimited = internalmetrics.MetricDispatchRateLimited
	MetricLimiterUnavailable  = internalmetrics.MetricLimiterUnavailable
	MetricStateViolation      = internalmetrics.MetricStateViolation
	MetricStaleResultDropped  = internalmetrics.MetricStaleResultDropped
	MetricBackendLatency      = internalmetrics.MetricBackendLatency
)

// HistBucketCount is the number of latency buckets, +Inf included.
const HistBucketCount = internalmetrics.HistBucketCount

// Metrics is the engine's lock-free counter store.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by cfg. When
// Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	})
}
