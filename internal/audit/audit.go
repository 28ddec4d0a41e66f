// Package audit re-verifies stored calculation runs. Each row is recomputed
// through the quantification engine from the raw inputs captured at run
// time, then compared against the persisted figures, so drift in emission
// factors or tampering with totals surfaces as findings.
package audit

import (
	"context"
	"fmt"
	"math"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/store"
)

// Statuses of an audit report.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Tolerance is the absolute difference below which recomputed and stored
// values are considered equal. Stored details round-trip through JSON, so
// exact float equality is too strict.
const Tolerance = 1e-9

// Finding is one discrepancy discovered while re-verifying a run.
type Finding struct {
	ActivityID int64   `json:"activity_id,omitempty"`
	Message    string  `json:"message"`
	Stored     float64 `json:"stored,omitempty"`
	Recomputed float64 `json:"recomputed,omitempty"`
}

// Report is the outcome of auditing one run.
type Report struct {
	RunID           int64     `json:"run_id"`
	RunType         string    `json:"run_type"`
	Status          string    `json:"status"`
	RowsChecked     int       `json:"rows_checked"`
	StoredTotalKg   float64   `json:"stored_total_kgco2e"`
	RecomputedTotal float64   `json:"recomputed_total_kgco2e"`
	Findings        []Finding `json:"findings"`
}

// VerifyRun recomputes every row of a stored run against the current
// emission factors and reports all discrepancies. Credit runs carry no
// activity rows and cannot be re-verified this way.
func VerifyRun(ctx context.Context, efs engine.EmissionFactorLookup, record *store.RunRecord) (*Report, error) {
	if record.RunType == "CREDIT" {
		return nil, fmt.Errorf("credit run %d has no activity rows to audit", record.ID)
	}

	details, err := record.Rows()
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", record.ID, err)
	}

	report := &Report{
		RunID:         record.ID,
		RunType:       record.RunType,
		Status:        StatusPass,
		StoredTotalKg: record.TotalKgCO2e,
	}

	rowSum := 0.0
	for _, row := range details.Rows {
		report.RowsChecked++
		rowSum += row.KgCO2e

		// Recompute from the inputs captured at run time, not the
		// live activity record, so edits since the run don't mask
		// factor drift.
		snapshot := &engine.Activity{
			ID:     row.ActivityID,
			Name:   row.ActivityName,
			EFKey:  row.EFKey,
			Inputs: row.Inputs,
		}
		kg, _, err := engine.ComputeActivity(ctx, snapshot, efs)
		if err != nil {
			report.Findings = append(report.Findings, Finding{
				ActivityID: row.ActivityID,
				Message:    fmt.Sprintf("recomputation failed: %v", err),
				Stored:     row.KgCO2e,
			})
			continue
		}
		report.RecomputedTotal += kg

		if math.Abs(kg-row.KgCO2e) > Tolerance {
			report.Findings = append(report.Findings, Finding{
				ActivityID: row.ActivityID,
				Message:    "stored kgCO2e does not match recomputation",
				Stored:     row.KgCO2e,
				Recomputed: kg,
			})
		}
	}

	if math.Abs(rowSum-record.TotalKgCO2e) > Tolerance {
		report.Findings = append(report.Findings, Finding{
			Message:    "stored total does not equal the sum of its rows",
			Stored:     record.TotalKgCO2e,
			Recomputed: rowSum,
		})
	}
	if math.Abs(record.TotalTCO2e-record.TotalKgCO2e/engine.KgPerTonne) > Tolerance {
		report.Findings = append(report.Findings, Finding{
			Message:    "stored tCO2e total is not kgCO2e/1000",
			Stored:     record.TotalTCO2e,
			Recomputed: record.TotalKgCO2e / engine.KgPerTonne,
		})
	}

	if len(report.Findings) > 0 {
		report.Status = StatusFail
	}
	return report, nil
}
