package loginguard

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller’s IP address to ctx. Requests that leave
// their IP field empty fall back to this value for rate limiting, ban checks,
// and audit records.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func resolveIP(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return clientIPFromContext(ctx)
}
