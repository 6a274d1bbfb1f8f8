package goPrereg

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goPrereg/internal/flows"
)

// Config is the complete engine configuration. Obtain one from
// [DefaultConfig], [LoadConfigFile], or [LoadConfigFromEnv] and adjust it
// before passing it to [Builder.WithConfig].
type Config struct {
	// Enabled switches pre-registration on. Flow.Open fails with
	// ErrPreRegistrationDisabled when false.
	Enabled bool `yaml:"enabled"`

	Flow          FlowConfig          `yaml:"flow"`
	Backend       BackendConfig       `yaml:"backend"`
	Messages      MessagesConfig      `yaml:"messages"`
	DispatchLimit DispatchLimitConfig `yaml:"dispatch_limit"`
	Audit         AuditConfig         `yaml:"audit"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Log           LogConfig           `yaml:"log"`
}

// FlowConfig controls the per-dialog state machine.
type FlowConfig struct {
	// ResendCooldown is how long Resend stays disabled after a code is
	// dispatched. It is counted down in whole seconds.
	ResendCooldown time.Duration `yaml:"resend_cooldown"`
	MinCodeDigits  int           `yaml:"min_code_digits"`
	MaxCodeDigits  int           `yaml:"max_code_digits"`

	// StrictTransitions makes commands issued in the wrong state return
	// ErrStateViolation instead of being silently ignored.
	StrictTransitions bool `yaml:"strict_transitions"`

	// SubscriberBuffer is the default channel capacity for Flow.Subscribe.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
}

// BackendConfig describes the HTTP verification backend. It is only used
// when no Backend is passed to [Builder.WithBackend].
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	SendCodePath   string        `yaml:"send_code_path"`
	VerifyCodePath string        `yaml:"verify_code_path"`
	ResendCodePath string        `yaml:"resend_code_path"`
	Timeout        time.Duration `yaml:"timeout"`
	UserAgent      string        `yaml:"user_agent"`

	// SigningMethod enables service assertions on every request: "" (off),
	// "hs256", or "ed25519". SigningKey is the raw HMAC secret for hs256 and
	// a base64 ed25519 private key (seed or full key) for ed25519.
	SigningMethod string        `yaml:"signing_method"`
	SigningKey    string        `yaml:"signing_key"`
	KeyID         string        `yaml:"key_id"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	AssertionTTL  time.Duration `yaml:"assertion_ttl"`
}

// MessagesConfig holds the user-visible fallback messages.
type MessagesConfig struct {
	InvalidEmail string `yaml:"invalid_email"`
	InvalidCode  string `yaml:"invalid_code"`
	SendFailed   string `yaml:"send_failed"`
	VerifyFailed string `yaml:"verify_failed"`
	ResendFailed string `yaml:"resend_failed"`
	RateLimited  string `yaml:"rate_limited"`
	Success      string `yaml:"success"`
}

// DispatchLimitConfig caps code dispatches per email across all processes
// sharing a Redis. The limiter is advisory: a Redis outage lets requests
// through.
type DispatchLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	MaxPerWindow int           `yaml:"max_per_window"`
	Window       time.Duration `yaml:"window"`
	RedisPrefix  string        `yaml:"redis_prefix"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process metrics.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig configures the zap logger built when none is supplied.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	defaultSendCodePath   = "/api/auth/pre-register/send-code"
	defaultVerifyCodePath = "/api/auth/pre-register/verify"
	defaultResendCodePath = "/api/auth/pre-register/resend-code"
	maxCodeDigitsLimit    = 12
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Flow: FlowConfig{
			ResendCooldown:   120 * time.Second,
			MinCodeDigits:    1,
			MaxCodeDigits:    6,
			SubscriberBuffer: 16,
		},
		Backend: BackendConfig{
			SendCodePath:   defaultSendCodePath,
			VerifyCodePath: defaultVerifyCodePath,
			ResendCodePath: defaultResendCodePath,
			Timeout:        10 * time.Second,
			UserAgent:      "goPrereg",
			Issuer:         "goPrereg",
			AssertionTTL:   time.Minute,
		},
		Messages: MessagesConfig{
			InvalidEmail: "Please enter a valid email address.",
			InvalidCode:  "Please enter a valid verification code.",
			SendFailed:   "Failed to send verification code. Please try again.",
			VerifyFailed: "Invalid verification code. Please try again.",
			ResendFailed: "Failed to send verification code. Please try again.",
			RateLimited:  "Too many verification codes requested. Please try again later.",
			Success:      "You're on the list! We'll notify you when registrations open.",
		},
		DispatchLimit: DispatchLimitConfig{
			Enabled:      false,
			MaxPerWindow: 5,
			Window:       time.Hour,
			RedisPrefix:  "ppd",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

// Redacted returns a copy of c with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	out := cloneConfig(c)
	if out.Backend.SigningKey != "" {
		out.Backend.SigningKey = "***"
	}
	return out
}

// CooldownSeconds is ResendCooldown rounded down to whole seconds.
func (c Config) CooldownSeconds() int {
	return int(c.Flow.ResendCooldown / time.Second)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	// Flow
	if c.Flow.ResendCooldown < 0 {
		return errors.New("Flow ResendCooldown must be >= 0")
	}
	if c.Flow.ResendCooldown > 24*time.Hour {
		return errors.New("Flow ResendCooldown must be <= 24h")
	}
	if c.Flow.MinCodeDigits < 1 {
		return errors.New("Flow MinCodeDigits must be >= 1")
	}
	if c.Flow.MaxCodeDigits < c.Flow.MinCodeDigits {
		return errors.New("Flow MaxCodeDigits must be >= MinCodeDigits")
	}
	if c.Flow.MaxCodeDigits > maxCodeDigitsLimit {
		return errors.New("Flow MaxCodeDigits must be <= 12")
	}
	if c.Flow.SubscriberBuffer < 0 {
		return errors.New("Flow SubscriberBuffer must be >= 0")
	}

	// Backend
	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("Backend BaseURL must be an absolute URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Backend BaseURL scheme must be http or https")
		}
	}
	for _, p := range []string{c.Backend.SendCodePath, c.Backend.VerifyCodePath, c.Backend.ResendCodePath} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("Backend paths must start with '/'")
		}
	}
	if c.Backend.Timeout < 0 {
		return errors.New("Backend Timeout must be >= 0")
	}
	switch c.Backend.SigningMethod {
	case "":
	case "hs256", "ed25519":
		if c.Backend.SigningKey == "" {
			return errors.New("Backend SigningKey required when SigningMethod is set")
		}
		if strings.TrimSpace(c.Backend.Issuer) == "" {
			return errors.New("Backend Issuer must not be blank when signing")
		}
		if c.Backend.AssertionTTL <= 0 {
			return errors.New("Backend AssertionTTL must be > 0 when signing")
		}
	default:
		return errors.New("Backend SigningMethod must be '', 'hs256' or 'ed25519'")
	}

	// Messages
	m := c.Messages
	for _, msg := range []string{m.InvalidEmail, m.InvalidCode, m.SendFailed, m.VerifyFailed, m.ResendFailed, m.RateLimited} {
		if strings.TrimSpace(msg) == "" {
			return errors.New("Messages must not be blank")
		}
	}

	// Dispatch limit
	if c.DispatchLimit.Enabled {
		if c.DispatchLimit.MaxPerWindow <= 0 {
			return errors.New("DispatchLimit MaxPerWindow must be > 0")
		}
		if c.DispatchLimit.Window <= 0 {
			return errors.New("DispatchLimit Window must be > 0")
		}
		if strings.TrimSpace(c.DispatchLimit.RedisPrefix) == "" {
			return errors.New("DispatchLimit RedisPrefix must not be blank")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.New("Log Level must be debug, info, warn or error")
	}

	return nil
}

func (c *Config) registrationMessages() flows.RegistrationMessages {
	return flows.RegistrationMessages{
		InvalidEmail: c.Messages.InvalidEmail,
		InvalidCode:  c.Messages.InvalidCode,
		SendFailed:   c.Messages.SendFailed,
		VerifyFailed: c.Messages.VerifyFailed,
		ResendFailed: c.Messages.ResendFailed,
		RateLimited:  c.Messages.RateLimited,
	}
}
