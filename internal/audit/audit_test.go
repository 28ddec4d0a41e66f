package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/store"
)

type efMap map[string]*engine.EmissionFactor

func (m efMap) EmissionFactorByKey(_ context.Context, key string) (*engine.EmissionFactor, bool, error) {
	ef, ok := m[key]
	return ef, ok, nil
}

func floatPtr(v float64) *float64 { return &v }

func runRecord(t *testing.T, totalKg float64, rows []engine.RunRow) *store.RunRecord {
	t.Helper()
	details, err := json.Marshal(engine.RunDetails{Rows: rows})
	require.NoError(t, err)
	return &store.RunRecord{
		ID:          1,
		RunType:     "CFO",
		TotalKgCO2e: totalKg,
		TotalTCO2e:  totalKg / 1000,
		Details:     details,
	}
}

func dieselRow(kg float64) engine.RunRow {
	return engine.RunRow{
		ActivityID:   1,
		ActivityName: "Fleet diesel",
		EFKey:        "diesel_litres",
		Inputs:       map[string]any{"litres": 100.0},
		KgCO2e:       kg,
	}
}

func TestVerifyRunPass(t *testing.T) {
	efs := efMap{"diesel_litres": {
		Key:              "diesel_litres",
		Value:            floatPtr(2.68),
		ActivityIDFields: &engine.ActivityIDFieldsSpec{Required: []string{"litres"}},
	}}

	report, err := VerifyRun(t.Context(), efs, runRecord(t, 268, []engine.RunRow{dieselRow(268)}))
	require.NoError(t, err)

	assert.Equal(t, StatusPass, report.Status)
	assert.Equal(t, 1, report.RowsChecked)
	assert.Empty(t, report.Findings)
	assert.InDelta(t, 268, report.RecomputedTotal, 1e-9)
}

func TestVerifyRunDetectsFactorDrift(t *testing.T) {
	// The factor changed since the run was stored.
	efs := efMap{"diesel_litres": {
		Key:              "diesel_litres",
		Value:            floatPtr(2.9),
		ActivityIDFields: &engine.ActivityIDFieldsSpec{Required: []string{"litres"}},
	}}

	report, err := VerifyRun(t.Context(), efs, runRecord(t, 268, []engine.RunRow{dieselRow(268)}))
	require.NoError(t, err)

	assert.Equal(t, StatusFail, report.Status)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, int64(1), report.Findings[0].ActivityID)
	assert.InDelta(t, 290, report.Findings[0].Recomputed, 1e-9)
}

func TestVerifyRunDetectsTamperedTotal(t *testing.T) {
	efs := efMap{"diesel_litres": {
		Key:              "diesel_litres",
		Value:            floatPtr(2.68),
		ActivityIDFields: &engine.ActivityIDFieldsSpec{Required: []string{"litres"}},
	}}

	record := runRecord(t, 999, []engine.RunRow{dieselRow(268)})
	report, err := VerifyRun(t.Context(), efs, record)
	require.NoError(t, err)

	assert.Equal(t, StatusFail, report.Status)
	require.Len(t, report.Findings, 1)
	assert.Contains(t, report.Findings[0].Message, "sum of its rows")
}

func TestVerifyRunMissingFactor(t *testing.T) {
	report, err := VerifyRun(t.Context(), efMap{}, runRecord(t, 268, []engine.RunRow{dieselRow(268)}))
	require.NoError(t, err)

	assert.Equal(t, StatusFail, report.Status)
	require.Len(t, report.Findings, 1)
	assert.Contains(t, report.Findings[0].Message, "recomputation failed")
}

func TestVerifyRunRejectsCreditRuns(t *testing.T) {
	record := &store.RunRecord{ID: 7, RunType: "CREDIT", Details: json.RawMessage(`{}`)}
	_, err := VerifyRun(t.Context(), efMap{}, record)
	require.Error(t, err)
}
