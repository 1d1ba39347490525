package ingest

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// finalKvKColumns must all be present in a final-KvK workbook.
var finalKvKColumns = []string{"governor_id", "account_type", "t4_deaths", "t5_deaths"}

// FinalKvKRow is one row of an end-of-KvK finalization workbook: the
// account's classification, an optional farm link, and the admin-verified
// death split.
type FinalKvKRow struct {
	// Row is the 1-based spreadsheet row, for error reporting.
	Row          int
	GovernorID   string
	AccountType  string
	LinkedToMain string
	T4Deaths     int64
	T5Deaths     int64
	Notes        string
}

// ParseFinalKvK reads a final-KvK workbook from its first sheet. Rows with a
// blank governor id are skipped; account types are lowercased but not
// validated here.
func ParseFinalKvK(r io.Reader) ([]FinalKvKRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyFile
	}

	colIndex := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		colIndex[normalizeHeader(h)] = i
	}

	var missing []string
	for _, col := range finalKvKColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("sheet %q missing required columns: %s", sheets[0], strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i, ok := colIndex[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var parsed []FinalKvKRow
	for i, row := range rows[1:] {
		governorID := cell(row, "governor_id")
		if governorID == "" {
			continue
		}
		parsed = append(parsed, FinalKvKRow{
			Row:          i + 2,
			GovernorID:   governorID,
			AccountType:  strings.ToLower(cell(row, "account_type")),
			LinkedToMain: cell(row, "linked_to_main"),
			T4Deaths:     CleanNumber(cell(row, "t4_deaths")),
			T5Deaths:     CleanNumber(cell(row, "t5_deaths")),
			Notes:        cell(row, "notes"),
		})
	}
	if len(parsed) == 0 {
		return nil, ErrEmptyFile
	}

	return parsed, nil
}
