// Package ingest converts raw CSV or kingdom-scanner Excel exports into
// normalized player snapshots. Parsing is deliberately forgiving at the cell
// level: a malformed number becomes 0, never a failed upload.
package ingest

import (
	"strconv"
	"strings"
)

// RequiredColumns are the normalized column names every upload must carry.
var RequiredColumns = []string{
	"governor_id",
	"governor_name",
	"power",
	"deads",
	"kill_points",
	"t4_kills",
	"t5_kills",
}

// CleanNumber parses a scanner-exported numeric cell into an int64.
// Thousands separators, quotes, and surrounding whitespace are stripped;
// float-formatted values are truncated. Anything unparsable coerces to 0 —
// the default-on-malformed policy is this one function, not a scattered
// catch-all.
func CleanNumber(raw string) int64 {
	cleaned := strings.NewReplacer(",", "", `"`, "", "'", "").Replace(raw)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0
	}

	if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return n
	}

	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return int64(f)
	}

	return 0
}

// normalizeHeader canonicalizes a column header for matching: lowercased,
// trimmed, inner spaces collapsed to underscores. "Governor ID" and
// "governor_id" resolve to the same column.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}
