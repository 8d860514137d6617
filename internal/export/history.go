// Package export reads and writes the spreadsheets exchanged with branch staff.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evn/pos_backend/internal/models"
	"github.com/evn/pos_backend/internal/money"
)

// ContentTypeXLSX is the MIME type of the generated workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	historySheet = "Turnos"
	timeLayout   = "2006-01-02 15:04:05"
)

var historyHeadings = []string{
	"ID", "Personal", "Apertura", "Efectivo inicial", "Estado", "Cierre",
	"Ventas en efectivo", "Efectivo esperado", "Efectivo contado", "Diferencia", "Notas",
}

// WriteHistory renders history entries into a single-sheet workbook. Times
// are written in loc.
func WriteHistory(w io.Writer, entries []*models.HistoryEntry, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return err
	}

	for i, h := range historyHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(historySheet, cell, h)
	}

	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	for i, e := range entries {
		row := i + 2
		values := []any{
			e.ID,
			deref(e.StaffID),
			e.OpenedAt.In(loc).Format(timeLayout),
			e.OpeningCash.Float64(),
			string(e.Status),
			formatTime(e.ClosedAt, loc),
			amount(e.CashSalesTotal),
			amount(e.ClosingExpectedCash),
			amount(e.ClosingActualCash),
			amount(e.ClosingDiff),
			deref(e.Notes),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(historySheet, cell, v); err != nil {
				return fmt.Errorf("write %s: %w", cell, err)
			}
		}
	}

	if len(entries) > 0 {
		last := len(entries) + 1
		if err := f.SetCellStyle(historySheet, "D2", fmt.Sprintf("D%d", last), amountStyle); err != nil {
			return err
		}
		if err := f.SetCellStyle(historySheet, "G2", fmt.Sprintf("J%d", last), amountStyle); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// amount leaves the cell empty for values that do not apply (open shifts).
func amount(c *money.Cents) any {
	if c == nil {
		return ""
	}
	return c.Float64()
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
