package goPrereg

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goPrereg/internal/audit"
	"github.com/MrEthical07/goPrereg/internal/flows"
	"github.com/MrEthical07/goPrereg/internal/limiters"
	"go.uber.org/zap"
)

// Engine holds the shared, immutable parts of pre-registration: the backend,
// limiter, metrics, audit, and logger. It is safe for concurrent use. Create
// per-dialog state with [Engine.NewFlow].
type Engine struct {
	config       Config
	backend      Backend
	limiter      *limiters.DispatchLimiter
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *zap.Logger
	ownsLogger   bool
	clock        Clock
	registration flows.RegistrationDeps
}

// Close drains the audit dispatcher and flushes a logger the engine created.
// Flows created by the engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsLogger && e.logger != nil {
		_ = e.logger.Sync()
	}
}

// Enabled reports whether pre-registration is switched on.
func (e *Engine) Enabled() bool {
	return e != nil && e.config.Enabled
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *zap.Logger {
	if e == nil || e.logger == nil {
		return zap.NewNop()
	}
	return e.logger
}

// AuditDropped reports audit events lost to a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// SendCode validates email and asks the backend to send it a code. The error
// is nil or a *Failure whose Message is safe to display.
func (e *Engine) SendCode(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunSendCode(ctx, email, e.registration)
}

// VerifyCode validates code and submits it for email.
func (e *Engine) VerifyCode(ctx context.Context, email, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunVerifyCode(ctx, email, code, e.registration)
}

// ResendCode asks the backend for a fresh code. Cooldown enforcement belongs
// to [Flow.Resend]; callers using the engine directly get only the dispatch
// limiter.
func (e *Engine) ResendCode(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return flows.RunResendCode(ctx, email, e.registration)
}

// DispatchRetryAfter reports how long until email may request another code
// under the dispatch limiter. It is zero when no limiter is configured.
func (e *Engine) DispatchRetryAfter(ctx context.Context, email string) (time.Duration, error) {
	if e == nil || e.limiter == nil {
		return 0, nil
	}
	return e.limiter.RetryAfter(ctx, email)
}

func (e *Engine) registrationDeps() flows.RegistrationDeps {
	deps := flows.RegistrationDeps{
		MinCodeDigits: e.config.Flow.MinCodeDigits,
		MaxCodeDigits: e.config.Flow.MaxCodeDigits,
		Now:           e.clock.Now,

		IsRateLimited: func(err error) bool {
			return errors.Is(err, limiters.ErrDispatchRateLimited)
		},
		LimiterUnavailable: func(ctx context.Context, email string, err error) {
			e.logger.Warn("dispatch limiter unavailable, allowing request",
				zap.String("flow_id", flowIDFromContext(ctx)),
				zap.Error(err),
			)
		},

		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		ObserveLatency: func(d time.Duration) {
			e.metrics.Observe(MetricBackendLatency, d)
		},
		EmitAudit: e.emitAudit,
		BackendFailed: func(ctx context.Context, op string, email string, err error) {
			e.logger.Warn("verification backend call failed",
				zap.String("op", op),
				zap.String("flow_id", flowIDFromContext(ctx)),
				zap.String("email", internalaudit.MaskEmail(email)),
				zap.Error(err),
			)
		},

		Metrics: flows.RegistrationMetrics{
			SendSuccess:        int(MetricSendCodeSuccess),
			SendFailure:        int(MetricSendCodeFailure),
			VerifySuccess:      int(MetricVerifySuccess),
			VerifyFailure:      int(MetricVerifyFailure),
			ResendSuccess:      int(MetricResendSuccess),
			ResendFailure:      int(MetricResendFailure),
			InvalidInput:       int(MetricInvalidInput),
			RateLimited:        int(MetricDispatchRateLimited),
			LimiterUnavailable: int(MetricLimiterUnavailable),
		},
		Events: flows.RegistrationEvents{
			SendCode:    auditEventSendCode,
			VerifyCode:  auditEventVerifyCode,
			ResendCode:  auditEventResendCode,
			RateLimited: auditEventRateLimited,
		},
		Messages: e.config.registrationMessages(),
	}

	if e.backend != nil {
		deps.SendCode = e.backend.SendCode
		deps.VerifyCode = e.backend.VerifyCode
		deps.ResendCode = e.backend.ResendCode
	}
	if e.limiter != nil {
		deps.CheckDispatch = e.limiter.Check
	}

	return deps
}
