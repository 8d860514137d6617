package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/pos_backend/config"
	branchHandlers "github.com/evn/pos_backend/internal/handlers/branch"
	salesHandlers "github.com/evn/pos_backend/internal/handlers/sales"
	shiftHandlers "github.com/evn/pos_backend/internal/handlers/shift"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/middleware"
	"github.com/evn/pos_backend/internal/pkg/response"
	"github.com/evn/pos_backend/internal/services/events"
	"github.com/evn/pos_backend/internal/store"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Store  store.Store
	Ledger *ledger.Service
	Hub    *events.Hub
	Sheets salesHandlers.SheetReader
}

// Setup builds the router.
func Setup(cfg *config.Config, deps Deps) *chi.Mux {
	jwtAuth := jwtauth.New("HS256", []byte(cfg.JwtSecret), nil)

	router := chi.NewRouter()
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestLogger(config.GetLogger()))
	router.Use(chiMiddleware.Recoverer)

	router.Get("/health", healthHandler(deps.Store))

	router.Route("/api", func(r chi.Router) {
		r.Use(jwtauth.Verify(jwtAuth, jwtauth.TokenFromHeader, middleware.TokenFromQuery))
		r.Use(middleware.AddAccountIDToContext())
		r.Use(middleware.Authenticator)

		r.Post("/branches", branchHandlers.CreateBranchHandler(deps.Store))
		r.Get("/branches", branchHandlers.ListBranchesHandler(deps.Store))

		r.Route("/branches/{branchID}", func(br chi.Router) {
			br.Post("/shifts", shiftHandlers.OpenShiftHandler(deps.Ledger))
			br.Get("/shifts", shiftHandlers.HistoryHandler(deps.Ledger))
			br.Get("/shifts/active", shiftHandlers.ActiveShiftHandler(deps.Ledger))
			br.Get("/shifts/export.xlsx", shiftHandlers.ExportHistoryHandler(deps.Ledger))

			br.Post("/sales", salesHandlers.RecordSaleHandler(deps.Ledger, deps.Store))
			br.Post("/sales/import", salesHandlers.ImportSalesHandler(deps.Ledger, deps.Store, deps.Sheets))

			if deps.Hub != nil {
				br.Get("/ws", shiftHandlers.EventsHandler(deps.Ledger, deps.Hub))
			}
		})

		r.Post("/shifts/{shiftID}/close", shiftHandlers.CloseShiftHandler(deps.Ledger))
	})

	return router
}

func healthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(ctx); err != nil {
			config.LogError(config.GetLogger(), "routes", "health", "store ping", nil, err)
			response.RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		response.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
