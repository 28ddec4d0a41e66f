package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/opencarbon/carbonfocus/internal/engine"
)

// RunRecord is a persisted calculation run: the engine's RunResult plus the
// identifiers and timestamp the caller attaches when saving it. Details is
// raw JSON because credit runs store a credit trace instead of activity
// rows.
type RunRecord struct {
	ID          int64           `json:"id"`
	ReportID    string          `json:"report_id"`
	RunType     string          `json:"run_type"`
	TotalKgCO2e float64         `json:"total_kgco2e"`
	TotalTCO2e  float64         `json:"total_tco2e"`
	Details     json.RawMessage `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Rows decodes the per-activity detail rows of a footprint run.
func (r *RunRecord) Rows() (engine.RunDetails, error) {
	var details engine.RunDetails
	if err := json.Unmarshal(r.Details, &details); err != nil {
		return engine.RunDetails{}, fmt.Errorf("decode run details: %w", err)
	}
	return details, nil
}

// SaveRun persists an engine result and returns the stored record with its
// assigned id and ULID report id.
func (s *Store) SaveRun(ctx context.Context, result *engine.RunResult) (*RunRecord, error) {
	return s.SaveRunRecord(ctx, result.RunType, result.TotalKgCO2e, result.TotalTCO2e, result.Details)
}

// SaveRunRecord persists a run with arbitrary details (footprint rows or a
// credit trace).
func (s *Store) SaveRunRecord(ctx context.Context, runType string, totalKg, totalT float64, details any) (*RunRecord, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal run details: %w", err)
	}

	now := time.Now().UTC()
	reportID := ulid.MustNew(ulid.Timestamp(now), rand.New(rand.NewSource(now.UnixNano()))).String()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calculation_runs (report_id, run_type, total_kgco2e, total_tco2e, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reportID, runType, totalKg, totalT, string(raw), now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calculation run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}

	return &RunRecord{
		ID:          id,
		ReportID:    reportID,
		RunType:     runType,
		TotalKgCO2e: totalKg,
		TotalTCO2e:  totalT,
		Details:     raw,
		CreatedAt:   now,
	}, nil
}

// RunByID fetches one stored run including its detail payload.
func (s *Store) RunByID(ctx context.Context, id int64) (*RunRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, report_id, run_type, total_kgco2e, total_tco2e, details, created_at
		FROM calculation_runs WHERE id = ?`, id)

	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query run %d: %w", id, err)
	}
	return record, true, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_id, run_type, total_kgco2e, total_tco2e, details, created_at
		FROM calculation_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		record  RunRecord
		details string
	)
	err := row.Scan(&record.ID, &record.ReportID, &record.RunType,
		&record.TotalKgCO2e, &record.TotalTCO2e, &details, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.Details = json.RawMessage(details)
	return &record, nil
}
