// internal/middleware/user_context.go
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/services/auth"
)

// AddAccountIDToContext puts the token's account id into the request context.
// It reads the account_id claim and falls back to sub. Requests without a
// valid token pass through untouched.
func AddAccountIDToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				next.ServeHTTP(w, r)
				return
			}

			accountID := claimString(claims, auth.AccountIDClaim)
			if accountID == "" {
				accountID = strings.TrimSpace(token.Subject())
			}
			if accountID != "" {
				r = r.WithContext(config.WithAccountID(r.Context(), accountID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func claimString(claims map[string]interface{}, key string) string {
	switch v := claims[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
