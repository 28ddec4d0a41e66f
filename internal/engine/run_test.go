package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapLookup serves records from in-memory maps for engine tests.
type mapLookup struct {
	efs        map[string]*EmissionFactor
	activities map[int64]*Activity
}

func (m *mapLookup) EmissionFactorByKey(_ context.Context, key string) (*EmissionFactor, bool, error) {
	ef, ok := m.efs[key]
	return ef, ok, nil
}

func (m *mapLookup) ActivityByID(_ context.Context, id int64) (*Activity, bool, error) {
	a, ok := m.activities[id]
	return a, ok, nil
}

func floatPtr(v float64) *float64 { return &v }

func testLookup() *mapLookup {
	return &mapLookup{
		efs: map[string]*EmissionFactor{
			"diesel_litres": {
				Key:              "diesel_litres",
				Name:             "Diesel (volume)",
				Unit:             "litre",
				Value:            floatPtr(2.68),
				ActivityIDFields: &ActivityIDFieldsSpec{Required: []string{"litres"}},
				Meta:             map[string]any{"source": "DEFRA"},
			},
			"electricity_grid": {
				Key:  "electricity_grid",
				Name: "Grid electricity",
				Unit: "kWh",
				GasBreakdown: &GasBreakdown{Gases: map[string]float64{
					"CO2": 0.45,
					"CH4": 0.0001,
				}},
				GWPVersion:       "AR5",
				ActivityIDFields: &ActivityIDFieldsSpec{QuantityField: "kwh"},
			},
			"lpg_volume": {
				Key:   "lpg_volume",
				Name:  "LPG (volume to mass)",
				Unit:  "kg",
				Value: floatPtr(2.98),
				ActivityIDFields: &ActivityIDFieldsSpec{
					Required: []string{"volume", "density"},
					Formula:  &FormulaSpec{Expression: "volume*density", Output: "mass_kg", Unit: "kg"},
				},
			},
			"misconfigured": {
				Key:              "misconfigured",
				Name:             "No value and no breakdown",
				ActivityIDFields: &ActivityIDFieldsSpec{Required: []string{"amount"}},
			},
		},
		activities: map[int64]*Activity{
			1: {ID: 1, Name: "Fleet diesel", EFKey: "diesel_litres", Inputs: map[string]any{"litres": 100.0}},
			2: {ID: 2, Name: "Office power", EFKey: "electricity_grid", Inputs: map[string]any{"kwh": 1000.0}},
			3: {ID: 3, Name: "LPG forklift", EFKey: "lpg_volume", Inputs: map[string]any{"volume": 10.0, "density": 0.85}},
			4: {ID: 4, Name: "Unknown factor", EFKey: "nope", Inputs: map[string]any{"amount": 1.0}},
			5: {ID: 5, Name: "Zero contribution", EFKey: "misconfigured", Inputs: map[string]any{"amount": 50.0}},
		},
	}
}

func TestComputeActivityDirectValue(t *testing.T) {
	db := testLookup()

	kg, trace, err := ComputeActivity(t.Context(), db.activities[1], db)
	require.NoError(t, err)

	assert.InDelta(t, 268.0, kg, 1e-12)
	assert.Equal(t, MethodDirectValue, trace.Method)
	assert.Equal(t, MethodFirstRequired, trace.QTrace.Method)
	assert.Equal(t, 100.0, trace.Quantity)
	require.NotNil(t, trace.EFValue)
	assert.Equal(t, 2.68, *trace.EFValue)
	assert.Equal(t, "diesel_litres", trace.EFKey)
	assert.Equal(t, map[string]any{"source": "DEFRA"}, trace.Meta)
}

func TestComputeActivityGasBreakdown(t *testing.T) {
	db := testLookup()

	kg, trace, err := ComputeActivity(t.Context(), db.activities[2], db)
	require.NoError(t, err)

	perUnit := 0.45*1 + 0.0001*28
	assert.InDelta(t, 1000*perUnit, kg, 1e-9)
	assert.Equal(t, MethodGasBreakdown, trace.Method)
	require.NotNil(t, trace.PerUnitCO2e)
	assert.InDelta(t, perUnit, *trace.PerUnitCO2e, 1e-12)
	assert.Nil(t, trace.EFValue)
	assert.Equal(t, MethodQuantityField, trace.QTrace.Method)
}

func TestComputeActivityFormulaQuantity(t *testing.T) {
	db := testLookup()

	kg, trace, err := ComputeActivity(t.Context(), db.activities[3], db)
	require.NoError(t, err)

	assert.InDelta(t, 8.5*2.98, kg, 1e-12)
	assert.Equal(t, MethodFormula, trace.QTrace.Method)
	assert.InDelta(t, 8.5, trace.Quantity, 1e-12)
}

func TestComputeActivityEFNotFound(t *testing.T) {
	db := testLookup()

	_, _, err := ComputeActivity(t.Context(), db.activities[4], db)
	require.Error(t, err)

	var notFound *EmissionFactorNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.Key)
}

func TestComputeActivitySilentZero(t *testing.T) {
	// A factor with neither value nor breakdown contributes 0 kgCO2e.
	db := testLookup()

	kg, trace, err := ComputeActivity(t.Context(), db.activities[5], db)
	require.NoError(t, err)
	assert.Equal(t, 0.0, kg)
	assert.Equal(t, MethodGasBreakdown, trace.Method)
	require.NotNil(t, trace.PerUnitCO2e)
	assert.Equal(t, 0.0, *trace.PerUnitCO2e)
}

func TestComputeRun(t *testing.T) {
	db := testLookup()

	result, err := ComputeRun(t.Context(), db, []int64{1, 2, 3}, "CFO")
	require.NoError(t, err)

	perUnit := 0.45*1 + 0.0001*28
	wantTotal := 268.0 + 1000*perUnit + 8.5*2.98

	assert.Equal(t, "CFO", result.RunType)
	assert.InDelta(t, wantTotal, result.TotalKgCO2e, 1e-9)
	assert.Equal(t, result.TotalKgCO2e/1000, result.TotalTCO2e)

	require.Len(t, result.Details.Rows, 3)
	assert.Equal(t, int64(1), result.Details.Rows[0].ActivityID)
	assert.Equal(t, int64(2), result.Details.Rows[1].ActivityID)
	assert.Equal(t, int64(3), result.Details.Rows[2].ActivityID)
	assert.Equal(t, "Fleet diesel", result.Details.Rows[0].ActivityName)
	assert.Equal(t, map[string]any{"litres": 100.0}, result.Details.Rows[0].Inputs)
}

func TestComputeRunPreservesInputOrder(t *testing.T) {
	db := testLookup()

	result, err := ComputeRun(t.Context(), db, []int64{3, 1, 2}, "CFP")
	require.NoError(t, err)

	require.Len(t, result.Details.Rows, 3)
	assert.Equal(t, int64(3), result.Details.Rows[0].ActivityID)
	assert.Equal(t, int64(1), result.Details.Rows[1].ActivityID)
	assert.Equal(t, int64(2), result.Details.Rows[2].ActivityID)
}

func TestComputeRunActivityNotFound(t *testing.T) {
	db := testLookup()

	result, err := ComputeRun(t.Context(), db, []int64{1, 99}, "CFO")
	require.Error(t, err)
	assert.Nil(t, result, "no partial run result on failure")

	var notFound *ActivityNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(99), notFound.ID)
}

func TestComputeRunFailingActivityAbortsRun(t *testing.T) {
	db := testLookup()
	db.activities[6] = &Activity{ID: 6, Name: "Broken", EFKey: "diesel_litres", Inputs: map[string]any{}}

	result, err := ComputeRun(t.Context(), db, []int64{1, 6, 2}, "CFO")
	require.Error(t, err)
	assert.Nil(t, result)

	var missing *MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "litres", missing.Field)
}

func TestComputeRunEmptyIDList(t *testing.T) {
	db := testLookup()

	result, err := ComputeRun(t.Context(), db, nil, "CFO")
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.TotalKgCO2e)
	assert.Equal(t, 0.0, result.TotalTCO2e)
	assert.Empty(t, result.Details.Rows)
}
