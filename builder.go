package goPrereg

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goPrereg/httpclient"
	internalaudit "github.com/MrEthical07/goPrereg/internal/audit"
	"github.com/MrEthical07/goPrereg/internal/limiters"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	backend    Backend
	httpClient *http.Client
	auditSink  AuditSink
	logger     *zap.Logger
	clock      Clock

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithBackend sets the verification backend. Without it, Build creates an
// HTTP client from Config.Backend.
func (b *Builder) WithBackend(backend Backend) *Builder {
	b.backend = backend
	return b
}

// WithHTTPClient sets the transport used by the HTTP backend built from
// Config.Backend. Ignored when WithBackend is used.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithRedis sets the Redis client backing the dispatch limiter.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets where audit events go when Config.Audit is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger. Without it, Build creates one from Config.Log.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock replaces the wall clock and cooldown ticker.
func (b *Builder) WithClock(clock Clock) *Builder {
	b.clock = clock
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the backend latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DispatchLimit.Enabled && b.redis == nil {
		return nil, errors.New("DispatchLimit requires redis client")
	}

	logger := b.logger
	ownsLogger := false
	if logger == nil {
		var err error
		logger, err = NewLogger(cfg.Log)
		if err != nil {
			return nil, err
		}
		ownsLogger = true
	}

	clock := b.clock
	if clock == nil {
		clock = realClock{}
	}

	backend := b.backend
	if backend == nil {
		if cfg.Backend.BaseURL == "" {
			return nil, ErrBackendRequired
		}
		client, err := httpclient.New(httpclient.Config{
			BaseURL:        cfg.Backend.BaseURL,
			SendCodePath:   cfg.Backend.SendCodePath,
			VerifyCodePath: cfg.Backend.VerifyCodePath,
			ResendCodePath: cfg.Backend.ResendCodePath,
			Timeout:        cfg.Backend.Timeout,
			UserAgent:      cfg.Backend.UserAgent,
			Signing: httpclient.SigningConfig{
				Method:   cfg.Backend.SigningMethod,
				Key:      cfg.Backend.SigningKey,
				KeyID:    cfg.Backend.KeyID,
				Issuer:   cfg.Backend.Issuer,
				Audience: cfg.Backend.Audience,
				TTL:      cfg.Backend.AssertionTTL,
			},
			HTTPClient: b.httpClient,
			Logger:     logger.Named("backend"),
			Now:        clock.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("backend client: %w", err)
		}
		backend = client
	}

	var limiter *limiters.DispatchLimiter
	if cfg.DispatchLimit.Enabled {
		limiter = limiters.NewDispatchLimiter(b.redis, limiters.DispatchConfig{
			MaxPerWindow: cfg.DispatchLimit.MaxPerWindow,
			Window:       cfg.DispatchLimit.Window,
			Prefix:       cfg.DispatchLimit.RedisPrefix,
		})
	}

	e := &Engine{
		config:     cfg,
		backend:    backend,
		limiter:    limiter,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
		ownsLogger: ownsLogger,
		clock:      clock,
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	e.registration = e.registrationDeps()

	b.built = true

	logger.Info("pre-registration engine built",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("resend_cooldown_s", cfg.CooldownSeconds()),
		zap.Int("max_code_digits", cfg.Flow.MaxCodeDigits),
		zap.Bool("dispatch_limit", limiter != nil),
		zap.Bool("audit", cfg.Audit.Enabled),
	)

	return e, nil
}
