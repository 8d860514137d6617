package middleware

import (
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/pkg/response"
)

const unauthenticatedMessage = "No autenticado"

// TokenFromQuery reads the token from ?token=, for websocket clients that
// cannot set headers.
func TokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}

// Authenticator rejects requests without a verified token carrying an
// account id. It replaces jwtauth.Authenticator to keep the JSON error body.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			response.RespondWithError(w, http.StatusUnauthorized, unauthenticatedMessage)
			return
		}
		if _, ok := config.AccountIDFromContext(r.Context()); !ok {
			response.RespondWithError(w, http.StatusUnauthorized, unauthenticatedMessage)
			return
		}
		next.ServeHTTP(w, r)
	})
}
