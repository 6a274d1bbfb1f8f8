package goPrereg

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backendError mimics an HTTP backend error with a displayable message.
type backendError struct {
	status  int
	message string
}

func (e *backendError) Error() string       { return e.message }
func (e *backendError) UserMessage() string { return e.message }
func (e *backendError) StatusCode() int     { return e.status }

type fakeBackend struct {
	mu        sync.Mutex
	calls     []string
	sendErr   error
	verifyErr error
	resendErr error
	panicMsg  string

	// when gate is set, calls block until it is closed or ctx ends
	gate    chan struct{}
	started chan string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{started: make(chan string, 64)}
}

func (b *fakeBackend) SendCode(ctx context.Context, email string) error {
	return b.call(ctx, "send:"+email, func() error { return b.sendErr })
}

func (b *fakeBackend) VerifyCode(ctx context.Context, email, code string) error {
	return b.call(ctx, "verify:"+email+":"+code, func() error { return b.verifyErr })
}

func (b *fakeBackend) ResendCode(ctx context.Context, email string) error {
	return b.call(ctx, "resend:"+email, func() error { return b.resendErr })
}

func (b *fakeBackend) call(ctx context.Context, name string, result func() error) error {
	b.mu.Lock()
	b.calls = append(b.calls, name)
	gate := b.gate
	panicMsg := b.panicMsg
	b.mu.Unlock()

	select {
	case b.started <- name:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if panicMsg != "" {
		panic(panicMsg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return result()
}

func (b *fakeBackend) set(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// manualClock hands out tickers the test fires by hand.
type manualClock struct {
	created chan *manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{created: make(chan *manualTicker, 64)}
}

func (c *manualClock) Now() time.Time {
	return time.Unix(1700000000, 0)
}

func (c *manualClock) NewTicker(time.Duration) (<-chan time.Time, func()) {
	tk := &manualTicker{
		ch:      make(chan time.Time),
		stopped: make(chan struct{}),
	}
	c.created <- tk
	return tk.ch, tk.stop
}

func (c *manualClock) nextTicker(t *testing.T) *manualTicker {
	t.Helper()
	select {
	case tk := <-c.created:
		return tk
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cooldown ticker")
		return nil
	}
}

func (c *manualClock) noTicker(t *testing.T) {
	t.Helper()
	select {
	case <-c.created:
		t.Fatal("unexpected cooldown ticker")
	default:
	}
}

type manualTicker struct {
	ch       chan time.Time
	stopped  chan struct{}
	stopOnce sync.Once
}

func (tk *manualTicker) stop() {
	tk.stopOnce.Do(func() { close(tk.stopped) })
}

// tick delivers one tick; it fails if the countdown goroutine is gone.
func (tk *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case tk.ch <- time.Now():
	case <-tk.stopped:
		t.Fatal("tick on stopped ticker")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out delivering tick")
	}
}

func (tk *manualTicker) waitStopped(t *testing.T) {
	t.Helper()
	select {
	case <-tk.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("ticker was not released")
	}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Log.Level = ""
	return cfg
}

func newTestEngine(t *testing.T, cfg Config, backend Backend, clock Clock) *Engine {
	t.Helper()

	e, err := New().
		WithConfig(cfg).
		WithBackend(backend).
		WithClock(clock).
		WithLogger(zap.NewNop()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return e
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitStarted(t *testing.T, b *fakeBackend) string {
	t.Helper()
	select {
	case name := <-b.started:
		return name
	case <-time.After(2 * time.Second):
		t.Fatal("backend call did not start")
		return ""
	}
}

var errBoom = errors.New("connection refused")
