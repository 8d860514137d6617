package config

import "context"

// WithAccountID stores the authenticated account id in ctx.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, AccountIDKey, accountID)
}

// AccountIDFromContext returns the account id placed by the auth middleware.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	if val, ok := ctx.Value(AccountIDKey).(string); ok && val != "" {
		return val, true
	}
	return "", false
}
