package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/goPrereg/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	OpSendCode   = "send_code"
	OpVerifyCode = "verify_code"
	OpResendCode = "resend_code"

	// HeaderRequestID carries a per-request uuid.
	HeaderRequestID = "X-Request-ID"

	maxResponseBytes = 64 << 10
)

// SigningConfig enables a bearer assertion on every request. An empty
// Method disables signing.
type SigningConfig struct {
	Method   string
	Key      string
	KeyID    string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	SendCodePath   string
	VerifyCodePath string
	ResendCodePath string
	Timeout        time.Duration
	UserAgent      string
	Signing        SigningConfig

	// HTTPClient overrides the transport. Its Timeout is left alone.
	HTTPClient *http.Client
	Logger     *zap.Logger
	Now        func() time.Time
}

// Client talks to the verification backend.
type Client struct {
	base      *url.URL
	paths     map[string]string
	userAgent string
	http      *http.Client
	signer    *jwt.Manager
	logger    *zap.Logger
}

// Error is a rejection reported by the backend.
type Error struct {
	Op        string
	Status    int
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: backend status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: backend status %d", e.Op, e.Status)
}

// UserMessage returns the backend's message, suitable for display.
func (e *Error) UserMessage() string { return e.Message }

// StatusCode returns the HTTP status of the response.
func (e *Error) StatusCode() int { return e.Status }

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("base url must be http or https")
	}
	if base.Host == "" {
		return nil, errors.New("base url has no host")
	}

	paths := map[string]string{
		OpSendCode:   cfg.SendCodePath,
		OpVerifyCode: cfg.VerifyCodePath,
		OpResendCode: cfg.ResendCodePath,
	}
	for op, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("%s path must start with '/'", op)
		}
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		base:      base,
		paths:     paths,
		userAgent: cfg.UserAgent,
		http:      hc,
		logger:    logger,
	}

	if cfg.Signing.Method != "" {
		method := jwt.SigningMethod(cfg.Signing.Method)
		key, err := jwt.DecodeKey(method, cfg.Signing.Key)
		if err != nil {
			return nil, fmt.Errorf("signing key: %w", err)
		}
		signer, err := jwt.NewManager(jwt.Config{
			SigningMethod: method,
			PrivateKey:    key,
			Issuer:        cfg.Signing.Issuer,
			Audience:      cfg.Signing.Audience,
			KeyID:         cfg.Signing.KeyID,
			TTL:           cfg.Signing.TTL,
			Now:           cfg.Now,
		})
		if err != nil {
			return nil, fmt.Errorf("signing: %w", err)
		}
		c.signer = signer
	}

	return c, nil
}

type emailRequest struct {
	Email string `json:"email"`
}

type codeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type response struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// SendCode asks the backend to email a verification code.
func (c *Client) SendCode(ctx context.Context, email string) error {
	return c.post(ctx, OpSendCode, email, emailRequest{Email: email})
}

// VerifyCode submits the code the user received.
func (c *Client) VerifyCode(ctx context.Context, email, code string) error {
	return c.post(ctx, OpVerifyCode, email, codeRequest{Email: email, Code: code})
}

// ResendCode asks the backend to email a fresh code.
func (c *Client) ResendCode(ctx context.Context, email string) error {
	return c.post(ctx, OpResendCode, email, emailRequest{Email: email})
}

func (c *Client) post(ctx context.Context, op, email string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	endpoint := c.base.JoinPath(c.paths[op]).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.signer != nil {
		token, err := c.signer.Sign(email, op)
		if err != nil {
			return fmt.Errorf("%s: sign request: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}

	var decoded response
	if len(bytes.TrimSpace(raw)) > 0 {
		// Non-JSON bodies are tolerated; only the status decides then.
		_ = json.Unmarshal(raw, &decoded)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if ok && (decoded.Success == nil || *decoded.Success) {
		return nil
	}

	message := strings.TrimSpace(decoded.Message)
	if message == "" {
		message = strings.TrimSpace(decoded.Error)
	}

	c.logger.Debug("backend rejected request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
	)

	return &Error{
		Op:        op,
		Status:    resp.StatusCode,
		Message:   message,
		RequestID: requestID,
	}
}
