package goPrereg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goPrereg/internal/cooldown"
	"github.com/MrEthical07/goPrereg/internal/flows"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Flow is one pre-registration dialog. Commands may be called from any
// goroutine; they are serialized internally and each returns the state it
// committed. While a backend call is in flight (Loading), only Close is
// accepted.
//
// A command issued in a state that does not accept it leaves the state
// unchanged. It returns ErrStateViolation when Flow.StrictTransitions is
// configured and nil otherwise.
type Flow struct {
	id     string
	engine *Engine
	timer  *cooldown.Timer

	mu         sync.Mutex
	state      FlowState
	epoch      uint64
	timerGen   uint64
	cancelCall context.CancelFunc

	pubMu   sync.Mutex
	subs    map[uint64]*subscriber
	nextSub uint64
}

// NewFlow creates a closed flow. Call Open to show it.
func (e *Engine) NewFlow() *Flow {
	f := &Flow{
		id:     uuid.NewString(),
		engine: e,
		state:  FlowState{Step: StepEmail},
		subs:   make(map[uint64]*subscriber),
	}
	f.timer = cooldown.New(e.clock.NewTicker, time.Second, f.onCooldownTick)
	return f
}

// ID is a random identifier used to correlate logs and audit events.
func (f *Flow) ID() string {
	return f.id
}

// State returns the current state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// IsOpen reports whether the dialog is showing.
func (f *Flow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Open
}

// Open shows the dialog at the email step with a clean state.
func (f *Flow) Open(ctx context.Context) (FlowState, error) {
	if !f.engine.Enabled() {
		return f.State(), ErrPreRegistrationDisabled
	}

	f.mu.Lock()
	if f.state.Open {
		return f.rejectLocked("open")
	}
	f.epoch++
	f.state = FlowState{Open: true, Step: StepEmail}
	state := f.commitLocked()

	f.engine.metricInc(MetricFlowOpened)
	f.engine.emitAudit(f.ctx(ctx), auditEventFlowOpen, true, "", nil, 0, nil)
	f.logTransition("open", state)
	return state, nil
}

// SubmitEmail sends a verification code to email and moves to the verify
// step on success. A malformed email is rejected locally without a backend
// call.
func (f *Flow) SubmitEmail(ctx context.Context, email string) (FlowState, error) {
	email = strings.TrimSpace(email)

	f.mu.Lock()
	if !f.state.Open || f.state.Loading || f.state.Step != StepEmail {
		return f.rejectLocked("submit_email")
	}
	f.clearErrorLocked()

	if !flows.ValidateEmail(email) {
		f.engine.metricInc(MetricInvalidInput)
		f.state.Error = f.engine.config.Messages.InvalidEmail
		f.state.Failure = FailureInvalidInput
		return f.commitLocked(), nil
	}

	callCtx, epoch := f.beginLocked(ctx)
	f.commitLocked()

	state := f.await(callCtx, epoch, f.engine.config.Messages.SendFailed,
		func(ctx context.Context) error {
			return f.engine.SendCode(ctx, email)
		},
		func(s *FlowState) {
			s.Step = StepVerify
			s.Email = email
			f.startCooldownLocked(s)
		},
	)
	f.logTransition("submit_email", state)
	return state, nil
}

// SubmitCode verifies code for the email entered earlier and moves to the
// success step on success.
func (f *Flow) SubmitCode(ctx context.Context, code string) (FlowState, error) {
	code = strings.TrimSpace(code)

	f.mu.Lock()
	if !f.state.Open || f.state.Loading || f.state.Step != StepVerify {
		return f.rejectLocked("submit_code")
	}
	f.clearErrorLocked()

	cfg := f.engine.config.Flow
	if !flows.ValidateCode(code, cfg.MinCodeDigits, cfg.MaxCodeDigits) {
		f.engine.metricInc(MetricInvalidInput)
		f.state.Error = f.engine.config.Messages.InvalidCode
		f.state.Failure = FailureInvalidInput
		return f.commitLocked(), nil
	}

	email := f.state.Email
	callCtx, epoch := f.beginLocked(ctx)
	f.commitLocked()

	state := f.await(callCtx, epoch, f.engine.config.Messages.VerifyFailed,
		func(ctx context.Context) error {
			return f.engine.VerifyCode(ctx, email, code)
		},
		func(s *FlowState) {
			s.Step = StepSuccess
			f.cancelCooldownLocked(s)
			f.engine.metricInc(MetricFlowCompleted)
		},
	)
	f.logTransition("submit_code", state)
	return state, nil
}

// Resend asks for a fresh code and restarts the cooldown. While the cooldown
// is running the call is a no-op.
func (f *Flow) Resend(ctx context.Context) (FlowState, error) {
	f.mu.Lock()
	if !f.state.Open || f.state.Loading || f.state.Step != StepVerify {
		return f.rejectLocked("resend")
	}
	if f.state.ResendCooldownSeconds > 0 {
		state := f.state
		f.mu.Unlock()
		f.engine.metricInc(MetricResendSuppressed)
		return state, nil
	}
	f.clearErrorLocked()

	email := f.state.Email
	callCtx, epoch := f.beginLocked(ctx)
	f.commitLocked()

	state := f.await(callCtx, epoch, f.engine.config.Messages.ResendFailed,
		func(ctx context.Context) error {
			return f.engine.ResendCode(ctx, email)
		},
		func(s *FlowState) {
			f.startCooldownLocked(s)
		},
	)
	f.logTransition("resend", state)
	return state, nil
}

// BackToEmail returns from the verify step to the email step, forgetting the
// email and cancelling the cooldown.
func (f *Flow) BackToEmail() (FlowState, error) {
	f.mu.Lock()
	if !f.state.Open || f.state.Loading || f.state.Step != StepVerify {
		return f.rejectLocked("back_to_email")
	}

	f.cancelCooldownLocked(&f.state)
	f.state.Step = StepEmail
	f.state.Email = ""
	f.clearErrorLocked()
	state := f.commitLocked()

	f.logTransition("back_to_email", state)
	return state, nil
}

// Close hides the dialog from any state. An in-flight backend call is
// cancelled and its result discarded. Closing a closed flow is a no-op.
func (f *Flow) Close() FlowState {
	f.mu.Lock()
	if !f.state.Open {
		state := f.state
		f.mu.Unlock()
		return state
	}

	f.epoch++
	if f.cancelCall != nil {
		f.cancelCall()
		f.cancelCall = nil
	}
	f.timer.Cancel()
	f.timerGen = 0
	prev := f.state.Step
	f.state = FlowState{Step: StepEmail}
	state := f.commitLocked()

	f.engine.metricInc(MetricFlowClosed)
	f.engine.emitAudit(f.ctx(context.Background()), auditEventFlowClose, true, "", nil, 0, func() map[string]string {
		return map[string]string{"step": string(prev)}
	})
	f.logTransition("close", state)
	return state
}

// ctx tags parent with the flow ID.
func (f *Flow) ctx(parent context.Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return withFlowID(parent, f.id)
}

// beginLocked marks the flow loading and returns the context for the backend
// call together with the epoch its result must match.
func (f *Flow) beginLocked(parent context.Context) (context.Context, uint64) {
	callCtx, cancel := context.WithCancel(f.ctx(parent))
	f.cancelCall = cancel
	f.state.Loading = true
	return callCtx, f.epoch
}

// await runs call without holding the lock, then commits its outcome unless
// the flow was closed in the meantime. Loading is cleared exactly once even
// if call panics.
func (f *Flow) await(
	callCtx context.Context,
	epoch uint64,
	fallback string,
	call func(context.Context) error,
	onSuccess func(*FlowState),
) (state FlowState) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrBackendPanic, r)
		}
		state = f.finish(epoch, err, fallback, onSuccess)
	}()

	err = call(callCtx)
	return state
}

func (f *Flow) finish(epoch uint64, err error, fallback string, onSuccess func(*FlowState)) FlowState {
	f.mu.Lock()
	if epoch != f.epoch {
		// closed while the call was in flight
		state := f.state
		f.mu.Unlock()
		f.engine.metricInc(MetricStaleResultDropped)
		return state
	}

	if f.cancelCall != nil {
		f.cancelCall()
		f.cancelCall = nil
	}
	f.state.Loading = false
	if err != nil {
		failure := flows.AsFailure(err, fallback)
		f.state.Error = failure.Message
		f.state.Failure = failure.Kind
	} else {
		onSuccess(&f.state)
	}
	return f.commitLocked()
}

func (f *Flow) clearErrorLocked() {
	f.state.Error = ""
	f.state.Failure = FailureNone
}

func (f *Flow) startCooldownLocked(s *FlowState) {
	seconds := f.engine.config.CooldownSeconds()
	gen := f.timer.Start(seconds)
	if seconds > 0 {
		f.timerGen = gen
	} else {
		f.timerGen = 0
	}
	s.ResendCooldownSeconds = seconds
}

func (f *Flow) cancelCooldownLocked(s *FlowState) {
	f.timer.Cancel()
	f.timerGen = 0
	s.ResendCooldownSeconds = 0
}

func (f *Flow) onCooldownTick(gen uint64, remaining int) {
	f.mu.Lock()
	if gen != f.timerGen || !f.state.Open || f.state.Step != StepVerify {
		f.mu.Unlock()
		return
	}
	if remaining < 0 {
		remaining = 0
	}
	f.state.ResendCooldownSeconds = remaining
	if remaining == 0 {
		f.timerGen = 0
	}
	f.commitLocked()
}

// rejectLocked handles a command the current state does not accept. It
// releases f.mu.
func (f *Flow) rejectLocked(command string) (FlowState, error) {
	state := f.state
	f.mu.Unlock()

	f.engine.metricInc(MetricStateViolation)
	f.engine.Logger().Debug("flow command ignored",
		zap.String("flow_id", f.id),
		zap.String("command", command),
		zap.Bool("open", state.Open),
		zap.String("step", string(state.Step)),
		zap.Bool("loading", state.Loading),
	)
	if f.engine.config.Flow.StrictTransitions {
		return state, fmt.Errorf("%w: %s (open=%t step=%s loading=%t)",
			ErrStateViolation, command, state.Open, state.Step, state.Loading)
	}
	return state, nil
}

func (f *Flow) logTransition(command string, state FlowState) {
	f.engine.Logger().Debug("flow transition",
		zap.String("flow_id", f.id),
		zap.String("command", command),
		zap.Bool("open", state.Open),
		zap.String("step", string(state.Step)),
		zap.Bool("loading", state.Loading),
		zap.Stringer("failure", state.Failure),
		zap.Int("cooldown_s", state.ResendCooldownSeconds),
	)
}
