package shift

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/evn/pos_backend/internal/export"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/money"
	"github.com/evn/pos_backend/internal/pkg/request"
	"github.com/evn/pos_backend/internal/pkg/response"
)

type openShiftRequest struct {
	StaffID     *string      `json:"staffId"`
	OpeningCash *money.Cents `json:"openingCash" validate:"required"`
}

type closeShiftRequest struct {
	ActualCash *money.Cents `json:"actualCash" validate:"required"`
	Notes      *string      `json:"notes"`
}

// OpenShiftHandler POST /api/branches/{branchID}/shifts
func OpenShiftHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req openShiftRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		shift, err := svc.Open(r.Context(), ledger.OpenInput{
			BranchID:    chi.URLParam(r, "branchID"),
			StaffID:     req.StaffID,
			OpeningCash: *req.OpeningCash,
		})
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		response.RespondWithJSON(w, http.StatusCreated, shift)
	}
}

// ActiveShiftHandler GET /api/branches/{branchID}/shifts/active. Writes null
// when there is nothing to show.
func ActiveShiftHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		active, err := svc.Active(r.Context(), chi.URLParam(r, "branchID"))
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		if active == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("null"))
			return
		}
		response.RespondWithJSON(w, http.StatusOK, active)
	}
}

// CloseShiftHandler POST /api/shifts/{shiftID}/close
func CloseShiftHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req closeShiftRequest
		if err := request.DecodeJSON(r, &req); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		result, err := svc.Close(r.Context(), ledger.CloseInput{
			ShiftID:    chi.URLParam(r, "shiftID"),
			ActualCash: *req.ActualCash,
			Notes:      req.Notes,
		})
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		response.RespondWithJSON(w, http.StatusOK, result)
	}
}

// HistoryHandler GET /api/branches/{branchID}/shifts?limit=N
func HistoryHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}

		entries, err := svc.History(r.Context(), chi.URLParam(r, "branchID"), limit)
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		response.RespondWithJSON(w, http.StatusOK, entries)
	}
}

// ExportHistoryHandler GET /api/branches/{branchID}/shifts/export.xlsx?limit=N&tz=America/Lima
func ExportHistoryHandler(svc *ledger.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := parseLimit(w, r)
		if !ok {
			return
		}
		loc := time.UTC
		if tz := strings.TrimSpace(r.URL.Query().Get("tz")); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "Zona horaria inválida")
				return
			}
			loc = l
		}

		branchID := chi.URLParam(r, "branchID")
		entries, err := svc.History(r.Context(), branchID, limit)
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteHistory(&buf, entries, loc); err != nil {
			response.RespondWithServiceError(w, r, fmt.Errorf("write history workbook: %w", err))
			return
		}

		w.Header().Set("Content-Type", export.ContentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=turnos-%s.xlsx", branchID))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

// parseLimit reads ?limit=. Absent means the service default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		response.RespondWithError(w, http.StatusBadRequest, "Límite inválido")
		return 0, false
	}
	return limit, true
}
