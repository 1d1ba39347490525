package ingest

import (
	"fmt"
	"io"
	"strings"

	"kvk-tracker/internal/domain"

	"github.com/xuri/excelize/v2"
)

// summarySheets are workbook sheets that never hold per-player rows.
var summarySheets = map[string]bool{
	"summary": true, "top 10s": true, "top10s": true,
}

// ParseExcel reads a kingdom-scanner workbook and returns normalized player
// records from the sheet matching kingdomID.
func ParseExcel(r io.Reader, kingdomID string) ([]domain.PlayerRecord, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := detectSheet(f.GetSheetList(), kingdomID)
	if sheet == "" {
		return nil, "", fmt.Errorf("no data sheet found for kingdom %s (sheets: %s)",
			kingdomID, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, "", ErrEmptyFile
	}

	colIndex := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		colIndex[normalizeHeader(h)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, "", fmt.Errorf("sheet %q missing required columns: %s", sheet, strings.Join(missing, ", "))
	}

	players := buildPlayers(rows[1:], func(row []string, col string) string {
		i := colIndex[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	})

	return players, sheet, nil
}

// detectSheet picks the per-player data sheet. Priority: exact kingdom id,
// then "Rolled Up {id}", then any sheet containing the id, then the first
// non-summary sheet.
func detectSheet(sheets []string, kingdomID string) string {
	rolledUp := "Rolled Up " + kingdomID
	for _, s := range sheets {
		if s == kingdomID {
			return s
		}
	}
	for _, s := range sheets {
		if s == rolledUp {
			return s
		}
	}
	for _, s := range sheets {
		if kingdomID != "" && strings.Contains(s, kingdomID) {
			return s
		}
	}
	for _, s := range sheets {
		if !summarySheets[strings.ToLower(s)] {
			return s
		}
	}
	return ""
}
