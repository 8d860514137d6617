// Package sheets reads sale rows from a shared Google Sheet.
package sheets

import (
	"context"
	"fmt"
	"regexp"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const readRange = "A1:D5001"

var spreadsheetIDPattern = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// SpreadsheetID extracts the document id from a Google Sheets URL.
func SpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("URL de Google Sheets inválida")
	}
	return matches[1], nil
}

type Reader struct {
	credentialsFile string
}

func NewReader(credentialsFile string) *Reader {
	return &Reader{credentialsFile: credentialsFile}
}

// ReadRows returns the first sheet's cells as text.
func (r *Reader) ReadRows(ctx context.Context, url string) ([][]string, error) {
	spreadsheetID, err := SpreadsheetID(url)
	if err != nil {
		return nil, err
	}

	srv, err := sheets.NewService(ctx, option.WithCredentialsFile(r.credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error al inicializar Google API: %w", err)
	}

	resp, err := srv.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("error al leer la hoja: %w", err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("la hoja está vacía")
	}

	return toStrings(resp.Values), nil
}

func toStrings(values [][]any) [][]string {
	rows := make([][]string, 0, len(values))
	for _, row := range values {
		strRow := make([]string, 0, len(row))
		for _, cell := range row {
			strRow = append(strRow, fmt.Sprintf("%v", cell))
		}
		rows = append(rows, strRow)
	}
	return rows
}
