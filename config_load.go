package goPrereg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by LoadConfigFromEnv.
const (
	EnvEnabled           = "PREREG_ENABLED"
	EnvPublicEnabled     = "NEXT_PUBLIC_PRE_REGISTRATION_ENABLED"
	EnvBackendURL        = "PREREG_BACKEND_URL"
	EnvBackendTimeout    = "PREREG_BACKEND_TIMEOUT"
	EnvSigningMethod     = "PREREG_SIGNING_METHOD"
	EnvSigningKey        = "PREREG_SIGNING_KEY"
	EnvSigningKeyID      = "PREREG_SIGNING_KEY_ID"
	EnvIssuer            = "PREREG_ISSUER"
	EnvAudience          = "PREREG_AUDIENCE"
	EnvResendCooldown    = "PREREG_RESEND_COOLDOWN"
	EnvMinCodeDigits     = "PREREG_CODE_MIN_DIGITS"
	EnvMaxCodeDigits     = "PREREG_CODE_MAX_DIGITS"
	EnvStrictTransitions = "PREREG_STRICT_TRANSITIONS"
	EnvDispatchLimit     = "PREREG_DISPATCH_LIMIT"
	EnvDispatchWindow    = "PREREG_DISPATCH_WINDOW"
	EnvAuditEnabled      = "PREREG_AUDIT_ENABLED"
	EnvMetricsEnabled    = "PREREG_METRICS_ENABLED"
	EnvLogLevel          = "PREREG_LOG_LEVEL"
)

// LoadConfigFile reads a YAML configuration file on top of DefaultConfig.
// Keys missing from the file keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// YAML renders c with secrets redacted.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}

// LoadConfigFromEnv loads dotenv files (".env" when none are named) into the
// process environment without overriding variables that are already set,
// then applies PREREG_* variables on top of DefaultConfig. Missing dotenv
// files are ignored.
func LoadConfigFromEnv(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment settings read through lookup onto cfg.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	integer := func(key string, dst *int) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	duration := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		d, err := parseEnvDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	// The public frontend flag is honoured first so PREREG_ENABLED wins.
	if v, ok := lookup(EnvPublicEnabled); ok {
		cfg.Enabled = strings.TrimSpace(v) == "true"
	}
	boolean(EnvEnabled, &cfg.Enabled)

	str(EnvBackendURL, &cfg.Backend.BaseURL)
	duration(EnvBackendTimeout, &cfg.Backend.Timeout)
	str(EnvSigningMethod, &cfg.Backend.SigningMethod)
	cfg.Backend.SigningMethod = strings.ToLower(cfg.Backend.SigningMethod)
	str(EnvSigningKey, &cfg.Backend.SigningKey)
	str(EnvSigningKeyID, &cfg.Backend.KeyID)
	str(EnvIssuer, &cfg.Backend.Issuer)
	str(EnvAudience, &cfg.Backend.Audience)

	duration(EnvResendCooldown, &cfg.Flow.ResendCooldown)
	integer(EnvMinCodeDigits, &cfg.Flow.MinCodeDigits)
	integer(EnvMaxCodeDigits, &cfg.Flow.MaxCodeDigits)
	boolean(EnvStrictTransitions, &cfg.Flow.StrictTransitions)

	if v, ok := lookup(EnvDispatchLimit); ok && strings.TrimSpace(v) != "" {
		integer(EnvDispatchLimit, &cfg.DispatchLimit.MaxPerWindow)
		cfg.DispatchLimit.Enabled = cfg.DispatchLimit.MaxPerWindow > 0
	}
	duration(EnvDispatchWindow, &cfg.DispatchLimit.Window)

	boolean(EnvAuditEnabled, &cfg.Audit.Enabled)
	boolean(EnvMetricsEnabled, &cfg.Metrics.Enabled)
	str(EnvLogLevel, &cfg.Log.Level)

	return errors.Join(errs...)
}

// parseEnvDuration accepts Go durations ("90s") and bare integers as seconds.
func parseEnvDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
