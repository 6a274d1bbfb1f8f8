package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type RegistrationMetrics struct {
	SendSuccess        int
	SendFailure        int
	VerifySuccess      int
	VerifyFailure      int
	ResendSuccess      int
	ResendFailure      int
	InvalidInput       int
	RateLimited        int
	LimiterUnavailable int
}

type RegistrationEvents struct {
	SendCode    string
	VerifyCode  string
	ResendCode  string
	RateLimited string
}

type RegistrationMessages struct {
	InvalidEmail string
	InvalidCode  string
	SendFailed   string
	VerifyFailed string
	ResendFailed string
	RateLimited  string
}

type RegistrationDeps struct {
	MinCodeDigits int
	MaxCodeDigits int
	Now           func() time.Time

	SendCode   func(context.Context, string) error
	VerifyCode func(context.Context, string, string) error
	ResendCode func(context.Context, string) error

	CheckDispatch      func(context.Context, string) error
	IsRateLimited      func(error) bool
	LimiterUnavailable func(context.Context, string, error)

	MetricInc      func(int)
	ObserveLatency func(time.Duration)
	EmitAudit      func(ctx context.Context, eventType string, success bool, email string, err error, took time.Duration, metadata func() map[string]string)
	BackendFailed  func(ctx context.Context, op string, email string, err error)

	Metrics  RegistrationMetrics
	Events   RegistrationEvents
	Messages RegistrationMessages
}

type dispatchOp struct {
	name     string
	event    string
	fallback string
	success  int
	failure  int
	limited  bool
	call     func(context.Context) error
}

// RunSendCode validates email, consults the dispatch limiter and asks the
// backend to send a code. The returned error is nil or a *Failure.
func RunSendCode(ctx context.Context, email string, deps RegistrationDeps) error {
	normalizeRegistrationDeps(&deps)
	if deps.SendCode == nil {
		return ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	return runOp(ctx, email, dispatchOp{
		name:     "send_code",
		event:    deps.Events.SendCode,
		fallback: deps.Messages.SendFailed,
		success:  deps.Metrics.SendSuccess,
		failure:  deps.Metrics.SendFailure,
		limited:  true,
		call: func(ctx context.Context) error {
			return deps.SendCode(ctx, email)
		},
	}, deps)
}

// RunResendCode is RunSendCode against the resend endpoint. The cooldown gate
// is the caller's responsibility.
func RunResendCode(ctx context.Context, email string, deps RegistrationDeps) error {
	normalizeRegistrationDeps(&deps)
	if deps.ResendCode == nil {
		return ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	return runOp(ctx, email, dispatchOp{
		name:     "resend_code",
		event:    deps.Events.ResendCode,
		fallback: deps.Messages.ResendFailed,
		success:  deps.Metrics.ResendSuccess,
		failure:  deps.Metrics.ResendFailure,
		limited:  true,
		call: func(ctx context.Context) error {
			return deps.ResendCode(ctx, email)
		},
	}, deps)
}

// RunVerifyCode validates code and submits it for email.
func RunVerifyCode(ctx context.Context, email, code string, deps RegistrationDeps) error {
	normalizeRegistrationDeps(&deps)
	if deps.VerifyCode == nil {
		return ErrEngineNotReady
	}

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if !ValidateCode(code, deps.MinCodeDigits, deps.MaxCodeDigits) {
		deps.MetricInc(deps.Metrics.InvalidInput)
		failure := &Failure{Kind: FailureInvalidInput, Message: deps.Messages.InvalidCode, Err: ErrInvalidInput}
		deps.EmitAudit(ctx, deps.Events.VerifyCode, false, email, failure, 0, func() map[string]string {
			return map[string]string{"reason": "invalid_code"}
		})
		return failure
	}

	return runOp(ctx, email, dispatchOp{
		name:     "verify_code",
		event:    deps.Events.VerifyCode,
		fallback: deps.Messages.VerifyFailed,
		success:  deps.Metrics.VerifySuccess,
		failure:  deps.Metrics.VerifyFailure,
		call: func(ctx context.Context) error {
			return deps.VerifyCode(ctx, email, code)
		},
	}, deps)
}

func runOp(ctx context.Context, email string, op dispatchOp, deps RegistrationDeps) error {
	if !ValidateEmail(email) {
		deps.MetricInc(deps.Metrics.InvalidInput)
		failure := &Failure{Kind: FailureInvalidInput, Message: deps.Messages.InvalidEmail, Err: ErrInvalidInput}
		deps.EmitAudit(ctx, op.event, false, email, failure, 0, func() map[string]string {
			return map[string]string{"reason": "invalid_email"}
		})
		return failure
	}

	if op.limited && deps.CheckDispatch != nil {
		if err := deps.CheckDispatch(ctx, email); err != nil {
			if deps.IsRateLimited(err) {
				deps.MetricInc(deps.Metrics.RateLimited)
				failure := &Failure{Kind: FailureRateLimited, Message: deps.Messages.RateLimited, Err: err}
				deps.EmitAudit(ctx, deps.Events.RateLimited, false, email, failure, 0, func() map[string]string {
					return map[string]string{"scope": op.name}
				})
				return failure
			}
			// advisory limiter: an outage must not block registration
			deps.MetricInc(deps.Metrics.LimiterUnavailable)
			deps.LimiterUnavailable(ctx, email, err)
		}
	}

	start := deps.Now()
	err := callBackend(ctx, op.call)
	took := deps.Now().Sub(start)
	deps.ObserveLatency(took)

	if err != nil {
		message := BackendMessage(err)
		if message == "" {
			message = op.fallback
		}
		failure := &Failure{
			Kind:    FailureNetwork,
			Message: message,
			Status:  BackendStatus(err),
			Err:     err,
		}
		deps.MetricInc(op.failure)
		deps.BackendFailed(ctx, op.name, email, err)
		deps.EmitAudit(ctx, op.event, false, email, failure, took, func() map[string]string {
			if failure.Status == 0 {
				return nil
			}
			return map[string]string{"status": fmt.Sprint(failure.Status)}
		})
		return failure
	}

	deps.MetricInc(op.success)
	deps.EmitAudit(ctx, op.event, true, email, nil, took, nil)
	return nil
}

// callBackend turns a panicking backend into an ordinary error so callers
// always get to run their completion path.
func callBackend(ctx context.Context, call func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBackendPanic, r)
		}
	}()
	return call(ctx)
}

func normalizeRegistrationDeps(deps *RegistrationDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, time.Duration, func() map[string]string) {}
	}
	if deps.BackendFailed == nil {
		deps.BackendFailed = func(context.Context, string, string, error) {}
	}
	if deps.LimiterUnavailable == nil {
		deps.LimiterUnavailable = func(context.Context, string, error) {}
	}
	if deps.IsRateLimited == nil {
		deps.IsRateLimited = func(err error) bool { return errors.Is(err, ErrRateLimited) }
	}
}
