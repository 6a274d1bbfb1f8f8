package goPrereg

import (
	"context"
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goPrereg/internal/audit"
)

const (
	auditEventFlowOpen    = "prereg_flow_open"
	auditEventFlowClose   = "prereg_flow_close"
	auditEventSendCode    = "prereg_send_code"
	auditEventVerifyCode  = "prereg_verify_code"
	auditEventResendCode  = "prereg_resend_code"
	auditEventRateLimited = "prereg_rate_limited"
)

// AuditErrorCode is the coarse error classification written to
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidInput AuditErrorCode = "invalid_input"
	auditErrRateLimited  AuditErrorCode = "rate_limited"
	auditErrBackendPanic AuditErrorCode = "backend_panic"
	auditErrCanceled     AuditErrorCode = "canceled"
	auditErrTimeout      AuditErrorCode = "timeout"
	auditErrBackend      AuditErrorCode = "backend_error"
	auditErrNotReady     AuditErrorCode = "not_ready"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	err error,
	took time.Duration,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if ip := ClientIPFromContext(ctx); ip != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["ip"] = ip
	}

	event := AuditEvent{
		Timestamp: e.clock.Now().UTC(),
		EventType: eventType,
		FlowID:    flowIDFromContext(ctx),
		Email:     internalaudit.MaskEmail(email),
		Success:   success,
		Duration:  took,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	// order matters: a panic or timeout is also a network failure
	switch {
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrBackendPanic):
		return auditErrBackendPanic
	case errors.Is(err, context.Canceled):
		return auditErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return auditErrTimeout
	case errors.Is(err, ErrEngineNotReady):
		return auditErrNotReady
	default:
		return auditErrBackend
	}
}
