package goPrereg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "negative cooldown invalid",
			mutate: func(c *Config) {
				c.Flow.ResendCooldown = -time.Second
			},
			wantValid: false,
		},
		{
			name: "zero cooldown valid",
			mutate: func(c *Config) {
				c.Flow.ResendCooldown = 0
			},
			wantValid: true,
		},
		{
			name: "min digits zero invalid",
			mutate: func(c *Config) {
				c.Flow.MinCodeDigits = 0
			},
			wantValid: false,
		},
		{
			name: "max below min invalid",
			mutate: func(c *Config) {
				c.Flow.MinCodeDigits = 6
				c.Flow.MaxCodeDigits = 4
			},
			wantValid: false,
		},
		{
			name: "max digits above limit invalid",
			mutate: func(c *Config) {
				c.Flow.MaxCodeDigits = 13
			},
			wantValid: false,
		},
		{
			name: "backend url relative invalid",
			mutate: func(c *Config) {
				c.Backend.BaseURL = "api.example.com"
			},
			wantValid: false,
		},
		{
			name: "backend url ftp invalid",
			mutate: func(c *Config) {
				c.Backend.BaseURL = "ftp://api.example.com"
			},
			wantValid: false,
		},
		{
			name: "backend path without slash invalid",
			mutate: func(c *Config) {
				c.Backend.VerifyCodePath = "verify"
			},
			wantValid: false,
		},
		{
			name: "signing without key invalid",
			mutate: func(c *Config) {
				c.Backend.SigningMethod = "hs256"
			},
			wantValid: false,
		},
		{
			name: "signing hs256 valid",
			mutate: func(c *Config) {
				c.Backend.SigningMethod = "hs256"
				c.Backend.SigningKey = strings.Repeat("k", 32)
			},
			wantValid: true,
		},
		{
			name: "signing rs256 invalid",
			mutate: func(c *Config) {
				c.Backend.SigningMethod = "rs256"
				c.Backend.SigningKey = "key"
			},
			wantValid: false,
		},
		{
			name: "blank message invalid",
			mutate: func(c *Config) {
				c.Messages.VerifyFailed = "  "
			},
			wantValid: false,
		},
		{
			name: "dispatch limit without budget invalid",
			mutate: func(c *Config) {
				c.DispatchLimit.Enabled = true
				c.DispatchLimit.MaxPerWindow = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "log level invalid",
			mutate: func(c *Config) {
				c.Log.Level = "trace"
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigMessages(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Messages.InvalidEmail != "Please enter a valid email address." {
		t.Fatalf("unexpected invalid email message %q", cfg.Messages.InvalidEmail)
	}
	if cfg.CooldownSeconds() != 120 || cfg.Flow.MaxCodeDigits != 6 {
		t.Fatalf("unexpected flow defaults %+v", cfg.Flow)
	}
}

func TestParseConfigOverlaysDefaults(t *testing.T) {
	data := []byte(`
enabled: true
flow:
  resend_cooldown: 90s
  max_code_digits: 8
  strict_transitions: true
backend:
  base_url: https://api.example.com
  timeout: 3s
dispatch_limit:
  enabled: true
  max_per_window: 3
  window: 30m
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Flow.ResendCooldown != 90*time.Second || cfg.Flow.MaxCodeDigits != 8 || !cfg.Flow.StrictTransitions {
		t.Fatalf("flow section not applied: %+v", cfg.Flow)
	}
	if cfg.Flow.MinCodeDigits != 1 {
		t.Fatalf("missing keys must keep defaults, got %d", cfg.Flow.MinCodeDigits)
	}
	if cfg.Backend.Timeout != 3*time.Second || cfg.Backend.SendCodePath != defaultSendCodePath {
		t.Fatalf("backend section not applied: %+v", cfg.Backend)
	}
	if !cfg.DispatchLimit.Enabled || cfg.DispatchLimit.Window != 30*time.Minute || cfg.DispatchLimit.RedisPrefix != "ppd" {
		t.Fatalf("dispatch limit not applied: %+v", cfg.DispatchLimit)
	}
}

func TestParseConfigRejectsUnknownAndInvalid(t *testing.T) {
	if _, err := ParseConfig([]byte("flow:\n  cooldown: 10s\n")); err == nil {
		t.Fatal("expected unknown field error")
	}
	if _, err := ParseConfig([]byte("flow:\n  max_code_digits: 0\n")); err == nil {
		t.Fatal("expected validation error")
	}
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("empty document should yield defaults: %v", err)
	}
	if cfg.CooldownSeconds() != 120 {
		t.Fatalf("expected default cooldown, got %d", cfg.CooldownSeconds())
	}
}

func TestLoadConfigFileRoundTripsYAML(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Flow.ResendCooldown = 45 * time.Second
	cfg.Backend.BaseURL = "https://api.example.com"
	cfg.Backend.SigningMethod = "hs256"
	cfg.Backend.SigningKey = strings.Repeat("s", 32)

	data, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML failed: %v", err)
	}
	if strings.Contains(string(data), cfg.Backend.SigningKey) {
		t.Fatal("signing key must be redacted")
	}

	path := filepath.Join(t.TempDir(), "prereg.yaml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if loaded.Flow.ResendCooldown != 45*time.Second || loaded.Backend.BaseURL != cfg.Backend.BaseURL {
		t.Fatalf("unexpected loaded config %+v", loaded)
	}
	if loaded.Backend.SigningKey != "***" {
		t.Fatalf("expected redacted key to round-trip, got %q", loaded.Backend.SigningKey)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvPublicEnabled:  "false",
		EnvBackendURL:     " https://api.example.com ",
		EnvResendCooldown: "60",
		EnvMaxCodeDigits:  "8",
		EnvDispatchLimit:  "4",
		EnvDispatchWindow: "15m",
		EnvSigningMethod:  "HS256",
		EnvLogLevel:       "debug",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Enabled {
		t.Fatal("public flag false should disable pre-registration")
	}
	if cfg.Backend.BaseURL != "https://api.example.com" || cfg.Backend.SigningMethod != "hs256" {
		t.Fatalf("backend env not applied: %+v", cfg.Backend)
	}
	if cfg.Flow.ResendCooldown != time.Minute || cfg.Flow.MaxCodeDigits != 8 {
		t.Fatalf("flow env not applied: %+v", cfg.Flow)
	}
	if !cfg.DispatchLimit.Enabled || cfg.DispatchLimit.MaxPerWindow != 4 || cfg.DispatchLimit.Window != 15*time.Minute {
		t.Fatalf("dispatch env not applied: %+v", cfg.DispatchLimit)
	}

	env[EnvEnabled] = "true"
	if err := ApplyEnv(&cfg, lookup); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if !cfg.Enabled {
		t.Fatal("PREREG_ENABLED must win over the public flag")
	}
}

func TestApplyEnvCollectsErrors(t *testing.T) {
	env := map[string]string{
		EnvMaxCodeDigits:  "six",
		EnvResendCooldown: "soon",
		EnvAuditEnabled:   "maybe",
	}
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, key := range []string{EnvMaxCodeDigits, EnvResendCooldown, EnvAuditEnabled} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoadConfigFromEnvReadsDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "PREREG_CODE_MAX_DIGITS=8\nPREREG_RESEND_COOLDOWN=90s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvMaxCodeDigits)
		_ = os.Unsetenv(EnvResendCooldown)
	})

	cfg, err := LoadConfigFromEnv(path, filepath.Join(dir, "absent.env"))
	if err != nil {
		t.Fatalf("LoadConfigFromEnv failed: %v", err)
	}
	if cfg.Flow.MaxCodeDigits != 8 || cfg.Flow.ResendCooldown != 90*time.Second {
		t.Fatalf("dotenv values not applied: %+v", cfg.Flow)
	}
}
