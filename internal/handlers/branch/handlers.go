package branch

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/pkg/request"
	"github.com/evn/pos_backend/internal/pkg/response"
	"github.com/evn/pos_backend/internal/store"
)

// CreateBranchHandler POST /api/branches
func CreateBranchHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := config.AccountIDFromContext(r.Context())
		if !ok {
			response.RespondWithServiceError(w, r, ledger.ErrUnauthenticated)
			return
		}

		var req models.NewBranch
		if err := request.DecodeJSON(r, &req); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			response.RespondWithError(w, http.StatusBadRequest, "El nombre es obligatorio")
			return
		}

		b := &models.Branch{
			ID:        uuid.NewString(),
			OwnerID:   accountID,
			Name:      name,
			CreatedAt: time.Now().UTC(),
		}
		if err := st.CreateBranch(r.Context(), b); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		response.RespondWithJSON(w, http.StatusCreated, b)
	}
}

// ListBranchesHandler GET /api/branches
func ListBranchesHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := config.AccountIDFromContext(r.Context())
		if !ok {
			response.RespondWithServiceError(w, r, ledger.ErrUnauthenticated)
			return
		}

		branches, err := st.ListBranches(r.Context(), accountID)
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		response.RespondWithJSON(w, http.StatusOK, branches)
	}
}
