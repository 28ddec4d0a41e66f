// Package importer ingests emission factors and activities from CSV files.
// Headers are matched case-insensitively after trimming, structured cells
// hold JSON, and malformed structured cells degrade to empty values rather
// than failing the whole file.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/logging"
	"github.com/opencarbon/carbonfocus/internal/store"
)

var (
	efRequiredColumns       = []string{"key", "name", "unit", "scope", "category"}
	activityRequiredColumns = []string{"name", "ef_key"}
)

// row is one CSV record keyed by normalized header name.
type row map[string]string

// ImportEmissionFactors reads CSV from r and upserts one emission factor per
// record. It returns the number of rows written.
func ImportEmissionFactors(ctx context.Context, st *store.Store, r io.Reader) (int, error) {
	logger := importLogger(ctx, "ef")

	rows, err := readTable(r, efRequiredColumns)
	if err != nil {
		return 0, err
	}

	count := 0
	for i, rec := range rows {
		record := &store.EmissionFactorRecord{
			EmissionFactor: engine.EmissionFactor{
				Key:        strings.TrimSpace(rec["key"]),
				Name:       rec["name"],
				Unit:       rec["unit"],
				Scope:      rec["scope"],
				Category:   rec["category"],
				Tags:       splitTags(rec["tags"]),
				GWPVersion: rec["gwp_version"],
				Meta:       jsonObjectCell(rec["meta"]),
			},
			Methodology:     rec["methodology"],
			Publisher:       rec["publisher"],
			DocumentTitle:   rec["document_title"],
			UncertaintyType: rec["uncertainty_type"],
		}
		if v, ok := floatCell(rec["value"]); ok {
			record.Value = &v
		}
		if v, ok := floatCell(rec["uncertainty_value"]); ok {
			record.UncertaintyValue = &v
		}
		record.ActivityIDFields = decodeCell[engine.ActivityIDFieldsSpec](logger, rec["activity_id_fields"])
		record.GasBreakdown = decodeCell[engine.GasBreakdown](logger, rec["gas_breakdown"])

		if err := st.UpsertEmissionFactor(ctx, record); err != nil {
			return count, fmt.Errorf("row %d: %w", i+2, err)
		}
		count++
	}

	logger.Info().Int("imported", count).Msg("emission factor import complete")
	return count, nil
}

// ImportActivities reads CSV from r and creates one activity per record. It
// returns the number of rows created.
func ImportActivities(ctx context.Context, st *store.Store, r io.Reader) (int, error) {
	logger := importLogger(ctx, "activity")

	rows, err := readTable(r, activityRequiredColumns)
	if err != nil {
		return 0, err
	}

	count := 0
	for i, rec := range rows {
		activity := &engine.Activity{
			Name:   strings.TrimSpace(rec["name"]),
			EFKey:  strings.TrimSpace(rec["ef_key"]),
			Inputs: jsonObjectCell(rec["inputs"]),
			Scope:  strings.TrimSpace(rec["scope"]),
			Period: strings.TrimSpace(rec["period"]),
			Note:   strings.TrimSpace(rec["note"]),
		}
		if activity.Scope == "" {
			activity.Scope = "Scope3"
		}
		if _, err := st.CreateActivity(ctx, activity); err != nil {
			return count, fmt.Errorf("row %d: %w", i+2, err)
		}
		count++
	}

	logger.Info().Int("imported", count).Msg("activity import complete")
	return count, nil
}

func importLogger(ctx context.Context, kind string) zerolog.Logger {
	return logging.FromContext(ctx).With().
		Str("component", "importer").
		Str("kind", kind).
		Logger()
}

// readTable parses CSV, normalizes headers (trim, lower), and verifies the
// required columns are all present.
func readTable(r io.Reader, required []string) ([]row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file has no header row")
	}

	header := make([]string, len(records[0]))
	seen := make(map[string]bool, len(records[0]))
	for i, name := range records[0] {
		normalized := strings.ToLower(strings.TrimSpace(name))
		header[i] = normalized
		seen[normalized] = true
	}

	var missing []string
	for _, name := range required {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	rows := make([]row, 0, len(records)-1)
	for _, rec := range records[1:] {
		m := make(row, len(header))
		for i, name := range header {
			if i < len(rec) {
				m[name] = rec[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

// floatCell parses a numeric cell, reporting ok=false for blank or
// non-numeric content.
func floatCell(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// jsonObjectCell parses a JSON object cell; blank or malformed content
// becomes an empty map.
func jsonObjectCell(s string) map[string]any {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// decodeCell parses a typed JSON cell, logging and dropping malformed
// content instead of failing the import.
func decodeCell[T any](logger zerolog.Logger, s string) *T {
	s = strings.TrimSpace(s)
	if s == "" || s == "{}" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		logger.Warn().Err(err).Str("cell", s).Msg("dropping malformed structured cell")
		return nil
	}
	return &v
}

func splitTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
