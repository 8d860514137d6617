package sales

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/evn/pos_backend/config"
	"github.com/evn/pos_backend/internal/export"
	"github.com/evn/pos_backend/internal/ledger"
	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/pkg/request"
	"github.com/evn/pos_backend/internal/pkg/response"
	"github.com/evn/pos_backend/internal/store"
)

const maxUploadBytes = 10 << 20

// SheetReader fetches rows from a spreadsheet URL.
type SheetReader interface {
	ReadRows(ctx context.Context, url string) ([][]string, error)
}

type importRequest struct {
	GoogleSheetURL string `json:"googleSheetUrl" validate:"required,url"`
}

// RecordSaleHandler POST /api/branches/{branchID}/sales
func RecordSaleHandler(svc *ledger.Service, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branch, err := svc.OwnedBranch(r.Context(), chi.URLParam(r, "branchID"))
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		var req models.NewSale
		if err := request.DecodeJSON(r, &req); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		sale := req.Build(uuid.NewString(), branch.ID, time.Now().UTC())
		if err := st.InsertSales(r.Context(), []*models.Sale{sale}); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}
		response.RespondWithJSON(w, http.StatusCreated, sale)
	}
}

// ImportSalesHandler POST /api/branches/{branchID}/sales/import. Accepts an
// XLSX upload in the "file" field or JSON {"googleSheetUrl": "..."}.
func ImportSalesHandler(svc *ledger.Service, st store.Store, sheets SheetReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branch, err := svc.OwnedBranch(r.Context(), chi.URLParam(r, "branchID"))
		if err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		var rows [][]string
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			var req importRequest
			if err := request.DecodeJSON(r, &req); err != nil {
				response.RespondWithServiceError(w, r, err)
				return
			}
			if sheets == nil {
				response.RespondWithError(w, http.StatusBadRequest, "Importación desde Google Sheets no disponible")
				return
			}
			rows, err = sheets.ReadRows(r.Context(), req.GoogleSheetURL)
			if err != nil {
				config.LogError(config.GetLogger(), "sales", "ImportSalesHandler", "read google sheet", req.GoogleSheetURL, err)
				response.RespondWithError(w, http.StatusBadGateway, "Error al leer Google Sheets")
				return
			}
		} else {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
			file, _, err := r.FormFile("file")
			if err != nil {
				response.RespondWithError(w, http.StatusBadRequest, "Archivo no encontrado")
				return
			}
			defer file.Close()

			rows, err = export.ReadWorkbookRows(file)
			if err != nil {
				response.RespondWithError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		payloads, err := export.ParseSales(rows, time.UTC)
		if err != nil {
			response.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		now := time.Now().UTC()
		batch := make([]*models.Sale, 0, len(payloads))
		for _, p := range payloads {
			batch = append(batch, p.Build(uuid.NewString(), branch.ID, now))
		}
		if err := st.InsertSales(r.Context(), batch); err != nil {
			response.RespondWithServiceError(w, r, err)
			return
		}

		config.GetLogger().WithFields(logrus.Fields{
			"module": "sales",
			"branch": branch.ID,
			"count":  len(batch),
		}).Info("sales imported")
		response.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"imported": len(batch),
		})
	}
}
