package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
)

// MaxImportRows bounds a single sales import.
const MaxImportRows = 5000

// ReadWorkbookRows returns the rows of "Sheet1", or of the first sheet when
// the workbook has no sheet with that name.
func ReadWorkbookRows(r io.Reader) ([][]string, error) {
	xlsx, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("Formato de Excel inválido")
	}
	defer xlsx.Close()

	rows, err := xlsx.GetRows("Sheet1")
	if err == nil {
		return rows, nil
	}
	sheets := xlsx.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel vacío")
	}
	rows, err = xlsx.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("Error al leer la hoja: %w", err)
	}
	return rows, nil
}

var closedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseSales reads sale rows laid out as
//
//	payment_method | status | total | closed_at
//
// The first row is a header and is skipped, as are blank rows. Missing status
// means closed. Times without a zone are read in loc.
func ParseSales(rows [][]string, loc *time.Location) ([]models.NewSale, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("El archivo debe contener un encabezado y al menos una fila")
	}
	if len(rows)-1 > MaxImportRows {
		return nil, fmt.Errorf("Máximo %d filas por importación", MaxImportRows)
	}
	if loc == nil {
		loc = time.UTC
	}

	sales := make([]models.NewSale, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2
		method := strings.ToLower(cell(row, 0))
		status := strings.ToLower(cell(row, 1))
		totalStr := cell(row, 2)
		closedStr := cell(row, 3)

		if method == "" && status == "" && totalStr == "" && closedStr == "" {
			continue
		}

		sale := models.NewSale{
			PaymentMethod: models.PaymentMethod(method),
			Status:        models.SaleStatus(status),
		}
		switch sale.PaymentMethod {
		case models.PaymentCash, models.PaymentCard, models.PaymentTransfer, models.PaymentWallet:
		default:
			return nil, fmt.Errorf("Fila %d: método de pago desconocido: %q", line, method)
		}
		switch sale.Status {
		case "", models.SaleOpen, models.SaleClosed, models.SaleCancelled:
		default:
			return nil, fmt.Errorf("Fila %d: estado desconocido: %q", line, status)
		}

		total, err := money.Parse(totalStr)
		if err != nil {
			return nil, fmt.Errorf("Fila %d: total inválido: %q", line, totalStr)
		}
		if total.IsNegative() {
			return nil, fmt.Errorf("Fila %d: el total no puede ser negativo", line)
		}
		sale.Total = total

		if closedStr != "" {
			t, err := parseTime(closedStr, loc)
			if err != nil {
				return nil, fmt.Errorf("Fila %d: fecha de cierre inválida: %q", line, closedStr)
			}
			sale.ClosedAt = &t
		}
		sales = append(sales, sale)
	}

	if len(sales) == 0 {
		return nil, fmt.Errorf("No hay ventas para importar")
	}
	return sales, nil
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range closedAtLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
