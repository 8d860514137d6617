package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/pkg/request"
)

const internalErrorMessage = "Error interno"

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		config.LogError(config.GetLogger(), "response", "RespondWithJSON", "marshal payload", nil, err)
		code = http.StatusInternalServerError
		body = []byte(`{"error":"` + internalErrorMessage + `"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// StatusForKind maps a ledger error kind to its HTTP status.
func StatusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindInvalidArgument:
		return http.StatusBadRequest
	case ledger.KindUnauthenticated:
		return http.StatusUnauthorized
	case ledger.KindPermissionDenied:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithServiceError writes a ledger error with its mapped status and
// message. Anything else is logged and reported as a generic 500.
func RespondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *request.ValidationError
	if errors.As(err, &verr) {
		RespondWithJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
		return
	}

	var lerr *ledger.Error
	if errors.As(err, &lerr) {
		RespondWithError(w, StatusForKind(lerr.Kind), lerr.Message)
		return
	}

	config.GetLogger().WithFields(logrus.Fields{
		"module": "response",
		"method": r.Method,
		"path":   r.URL.Path,
	}).WithError(err).Error("request failed")
	RespondWithError(w, http.StatusInternalServerError, internalErrorMessage)
}
