package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goPrereg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	path   string
	body   map[string]string
	header http.Header
}

type backendStub struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	body     string
}

func (b *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.requests = append(b.requests, recorded{path: r.URL.Path, body: body, header: r.Header.Clone()})
	status, resp := b.status, b.body
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(resp))
}

func (b *backendStub) last(t *testing.T) recorded {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		SendCodePath:   "/api/auth/pre-register/send-code",
		VerifyCodePath: "/api/auth/pre-register/verify",
		ResendCodePath: "/api/auth/pre-register/resend-code",
		Timeout:        2 * time.Second,
		UserAgent:      "goPrereg-test",
	}
}

func newStubClient(t *testing.T, stub *backendStub, mutate func(*Config)) *Client {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	cfg := testConfig(srv.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestClientPostsJSONToConfiguredPaths(t *testing.T) {
	stub := &backendStub{body: `{"success":true}`}
	c := newStubClient(t, stub, nil)
	ctx := context.Background()

	require.NoError(t, c.SendCode(ctx, "a@example.com"))
	got := stub.last(t)
	assert.Equal(t, "/api/auth/pre-register/send-code", got.path)
	assert.Equal(t, map[string]string{"email": "a@example.com"}, got.body)
	assert.Equal(t, "application/json", got.header.Get("Content-Type"))
	assert.Equal(t, "goPrereg-test", got.header.Get("User-Agent"))
	assert.NotEmpty(t, got.header.Get(HeaderRequestID))
	assert.Empty(t, got.header.Get("Authorization"))

	require.NoError(t, c.VerifyCode(ctx, "a@example.com", "123456"))
	got = stub.last(t)
	assert.Equal(t, "/api/auth/pre-register/verify", got.path)
	assert.Equal(t, map[string]string{"email": "a@example.com", "code": "123456"}, got.body)

	require.NoError(t, c.ResendCode(ctx, "a@example.com"))
	assert.Equal(t, "/api/auth/pre-register/resend-code", stub.last(t).path)
}

func TestClientEmptySuccessBody(t *testing.T) {
	stub := &backendStub{status: http.StatusNoContent}
	c := newStubClient(t, stub, nil)
	assert.NoError(t, c.SendCode(context.Background(), "a@example.com"))
}

func TestClientSuccessFalseIsRejection(t *testing.T) {
	stub := &backendStub{body: `{"success":false,"message":"Invalid or expired code"}`}
	c := newStubClient(t, stub, nil)

	err := c.VerifyCode(context.Background(), "a@example.com", "000000")
	require.Error(t, err)

	var be *Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusOK, be.StatusCode())
	assert.Equal(t, "Invalid or expired code", be.UserMessage())
	assert.Equal(t, OpVerifyCode, be.Op)
	assert.NotEmpty(t, be.RequestID)
}

func TestClientNon2xxUsesMessageOrError(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"message field", http.StatusBadRequest, `{"message":"Email already registered"}`, "Email already registered"},
		{"error field", http.StatusTooManyRequests, `{"error":"Slow down"}`, "Slow down"},
		{"plain text", http.StatusBadGateway, `upstream down`, ""},
		{"empty", http.StatusInternalServerError, ``, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &backendStub{status: tc.status, body: tc.body}
			c := newStubClient(t, stub, nil)

			err := c.SendCode(context.Background(), "a@example.com")
			var be *Error
			require.ErrorAs(t, err, &be)
			assert.Equal(t, tc.status, be.StatusCode())
			assert.Equal(t, tc.message, be.UserMessage())
		})
	}
}

func TestClientTransportErrorKeepsContext(t *testing.T) {
	stub := &backendStub{}
	c := newStubClient(t, stub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.SendCode(ctx, "a@example.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var be *Error
	assert.False(t, errors.As(err, &be))
}

func TestClientSignsRequests(t *testing.T) {
	secret := strings.Repeat("x", 32)
	stub := &backendStub{body: `{"success":true}`}
	c := newStubClient(t, stub, func(cfg *Config) {
		cfg.Signing = SigningConfig{
			Method:   "hs256",
			Key:      secret,
			KeyID:    "k1",
			Issuer:   "goPrereg",
			Audience: "verification-backend",
			TTL:      time.Minute,
		}
	})

	require.NoError(t, c.ResendCode(context.Background(), "a@example.com"))
	auth := stub.last(t).header.Get("Authorization")
	require.True(t, strings.HasPrefix(auth, "Bearer "))

	verifier, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte(secret),
		Issuer:        "goPrereg",
		Audience:      "verification-backend",
		KeyID:         "k1",
		TTL:           time.Minute,
	})
	require.NoError(t, err)

	claims, err := verifier.Parse(strings.TrimPrefix(auth, "Bearer "))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Subject)
	assert.Equal(t, OpResendCode, claims.Op)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := map[string]func(*Config){
		"no scheme":     func(c *Config) { c.BaseURL = "backend.local" },
		"ftp":           func(c *Config) { c.BaseURL = "ftp://backend.local" },
		"relative path": func(c *Config) { c.VerifyCodePath = "verify" },
		"bad signing":   func(c *Config) { c.Signing = SigningConfig{Method: "rs512", Key: "k", TTL: time.Minute} },
		"no signing key": func(c *Config) {
			c.Signing = SigningConfig{Method: "hs256", TTL: time.Minute}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig("http://backend.local")
			mutate(&cfg)
			_, err := New(cfg)
			assert.Error(t, err)
		})
	}
}
