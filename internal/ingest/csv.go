package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"kvk-tracker/internal/domain"
)

var ErrEmptyFile = errors.New("ingest: file contains no data rows")

// ParseCSV reads a stats export and returns normalized player records.
// Headers are matched case-insensitively after trimming; rows with duplicate
// governor ids keep the last occurrence.
func ParseCSV(r io.Reader) ([]domain.PlayerRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, h := range header {
		colIndex[normalizeHeader(h)] = i
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := colIndex[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}
		rows = append(rows, record)
	}

	if len(rows) == 0 {
		return nil, ErrEmptyFile
	}

	return buildPlayers(rows, func(row []string, col string) string {
		i := colIndex[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}), nil
}

// buildPlayers converts raw rows into records via a per-column accessor,
// deduplicating on governor id with last-seen wins.
func buildPlayers(rows [][]string, cell func(row []string, col string) string) []domain.PlayerRecord {
	index := make(map[string]int, len(rows))
	players := make([]domain.PlayerRecord, 0, len(rows))

	for _, row := range rows {
		id := strings.TrimSpace(cell(row, "governor_id"))
		if id == "" {
			continue
		}

		player := domain.PlayerRecord{
			GovernorID:   id,
			GovernorName: strings.TrimSpace(cell(row, "governor_name")),
			Stats: domain.StatVector{
				Power:      CleanNumber(cell(row, "power")),
				KillPoints: CleanNumber(cell(row, "kill_points")),
				Deads:      CleanNumber(cell(row, "deads")),
				T4Kills:    CleanNumber(cell(row, "t4_kills")),
				T5Kills:    CleanNumber(cell(row, "t5_kills")),
			},
		}

		if i, ok := index[id]; ok {
			players[i] = player
		} else {
			index[id] = len(players)
			players = append(players, player)
		}
	}

	return players
}
