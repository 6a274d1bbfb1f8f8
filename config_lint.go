package goPrereg

import (
	"fmt"
	"strings"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is a configuration that validates but is probably not what an
// operator wants.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings produced by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds warnings at or above min into a single error, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", w.Severity, w.Code, w.Message))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint inspects c for legal but risky settings. It assumes c validates.
func (c Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Flow.ResendCooldown > 0 && c.Flow.ResendCooldown < 30*time.Second {
		add("cooldown_short", LintWarn, "resend cooldown under 30s lets users flood their own inbox")
	}
	if c.Flow.ResendCooldown%time.Second != 0 {
		add("cooldown_fractional", LintInfo, "resend cooldown is truncated to whole seconds")
	}
	if c.Flow.ResendCooldown == 0 && !c.DispatchLimit.Enabled {
		add("resend_unthrottled", LintHigh, "no cooldown and no dispatch limit: resends are unbounded")
	}
	if !c.DispatchLimit.Enabled {
		add("dispatch_limit_disabled", LintInfo, "codes per email are not capped across processes")
	}
	if c.Backend.BaseURL != "" && strings.HasPrefix(c.Backend.BaseURL, "http://") {
		add("backend_plaintext", LintWarn, "backend is reached over plain http")
	}
	if c.Backend.BaseURL != "" && c.Backend.SigningMethod == "" {
		add("backend_unsigned", LintInfo, "backend requests carry no service assertion")
	}
	if c.Backend.SigningMethod == "hs256" && len(c.Backend.SigningKey) < 32 {
		add("signing_key_short", LintWarn, "hs256 signing key is shorter than 32 bytes")
	}
	if c.Backend.Timeout == 0 {
		add("backend_no_timeout", LintWarn, "backend calls have no timeout; Loading may never clear")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not recorded")
	}
	if c.Log.Development {
		add("log_development", LintInfo, "development logging is enabled")
	}

	return ws
}
