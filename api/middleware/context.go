package middleware

import "context"

type ctxKey int

const (
	usernameKey ctxKey = iota
	roleKey
	sessionKey
)

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func withString(ctx context.Context, key ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

// UsernameFromContext returns the signed-in username, or "" for guests.
func UsernameFromContext(ctx context.Context) string { return stringValue(ctx, usernameKey) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, roleKey) }

// SessionIDFromContext returns the shopping session bound by Session.
func SessionIDFromContext(ctx context.Context) string { return stringValue(ctx, sessionKey) }

func WithUsername(ctx context.Context, username string) context.Context {
	return withString(ctx, usernameKey, username)
}

func WithRole(ctx context.Context, role string) context.Context {
	return withString(ctx, roleKey, role)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withString(ctx, sessionKey, sessionID)
}
