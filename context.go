package goPrereg

import "context"

type flowIDContextKey struct{}
type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is recorded in
// audit metadata for code dispatches.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// withFlowID tags ctx with the flow issuing a backend call so audit events
// can be correlated per dialog.
func withFlowID(ctx context.Context, flowID string) context.Context {
	return context.WithValue(ctx, flowIDContextKey{}, flowID)
}

func flowIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	id, _ := ctx.Value(flowIDContextKey{}).(string)
	return id
}

// ClientIPFromContext returns the address set by [WithClientIP], or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
