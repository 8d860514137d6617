package shift

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/pkg/response"
	"github.com/evn/pos_backend/internal/services/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// EventsHandler GET /api/branches/{branchID}/ws streams the branch's shift
// events to the caller, who must own the branch.
func EventsHandler(svc *ledger.Service, hub *events.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branch, err := svc.OwnedBranch(r.Context(), chi.URLParam(r, "branchID"))
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		accountID, _ := config.AccountIDFromContext(r.Context())

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			config.LogError(config.GetLogger(), "shift", "EventsHandler", "upgrade", branch.ID, err)
			return
		}

		client := events.NewClient(conn, branch.ID, accountID)
		hub.Register(client)

		go hub.WritePump(client)
		go hub.ReadPump(client)
	}
}
