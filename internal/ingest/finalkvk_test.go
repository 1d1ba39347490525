package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFinalKvK(t *testing.T) {
	buf := buildWorkbook(t, "Final", [][]any{
		{"Governor ID", "Account Type", "Linked To Main", "T4 Deaths", "T5 Deaths", "Notes"},
		{"1001", "Main", "", "12,000", 3000, "whale"},
		{"2002", "farm", "1001", 500, 0, ""},
		{"", "main", "", 1, 1, "blank id, skipped"},
		{"3003", "vacation", "", 0, 0, ""},
	})

	rows, err := ParseFinalKvK(buf)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Row)
	assert.Equal(t, "1001", rows[0].GovernorID)
	assert.Equal(t, "main", rows[0].AccountType, "account type lowercased")
	assert.Equal(t, int64(12_000), rows[0].T4Deaths)
	assert.Equal(t, int64(3000), rows[0].T5Deaths)
	assert.Equal(t, "whale", rows[0].Notes)

	assert.Equal(t, "1001", rows[1].LinkedToMain)
	assert.Equal(t, "3003", rows[2].GovernorID, "blank-id row dropped")
	assert.Equal(t, 5, rows[2].Row, "spreadsheet row numbering preserved")
}

func TestParseFinalKvKMissingColumns(t *testing.T) {
	buf := buildWorkbook(t, "Final", [][]any{
		{"Governor ID", "Account Type"},
		{"1001", "main"},
	})

	_, err := ParseFinalKvK(buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestParseFinalKvKHeaderOnly(t *testing.T) {
	buf := buildWorkbook(t, "Final", [][]any{
		{"Governor ID", "Account Type", "T4 Deaths", "T5 Deaths"},
	})

	_, err := ParseFinalKvK(buf)
	require.ErrorIs(t, err, ErrEmptyFile)
}
