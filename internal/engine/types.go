// Package engine implements the emission quantification core: it resolves an
// activity's operator-supplied inputs against an emission-factor definition,
// derives a physical quantity, converts it to CO2-equivalent mass, and
// aggregates many activities into one auditable run result.
//
// The engine is purely synchronous and side-effect free. It never persists
// anything and never logs; callers supply record lookups and own the returned
// result. Every calculation step is recorded in a trace so downstream audit
// and verification can reproduce the numbers.
package engine

import "context"

// EmissionFactor is a reference coefficient converting a physical quantity
// into CO2-equivalent mass. Records are owned by the persistence layer; the
// engine treats them as immutable snapshots for the duration of one run.
type EmissionFactor struct {
	Key      string         `json:"key"`
	Name     string         `json:"name"`
	Unit     string         `json:"unit"`
	Scope    string         `json:"scope"`
	Category string         `json:"category"`
	Tags     []string       `json:"tags,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`

	// Value is the direct CO2e-per-unit factor. When nil, conversion falls
	// back to the gas breakdown weighted by GWP values.
	Value *float64 `json:"value,omitempty"`

	// GasBreakdown lists per-unit gas quantities for multi-gas factors.
	GasBreakdown *GasBreakdown `json:"gas_breakdown,omitempty"`

	// GWPVersion selects which assessment-report table weights the
	// breakdown. Empty means gwp.DefaultVersion.
	GWPVersion string `json:"gwp_version,omitempty"`

	// ActivityIDFields describes how to derive a quantity from an
	// activity's inputs.
	ActivityIDFields *ActivityIDFieldsSpec `json:"activity_id_fields,omitempty"`
}

// GasBreakdown is the multi-gas composition of an emission factor.
type GasBreakdown struct {
	// Gases maps gas symbol to quantity emitted per unit of activity.
	Gases map[string]float64 `json:"gases"`
}

// FormulaSpec derives a quantity by evaluating an arithmetic expression over
// the activity's inputs (e.g. fuel mass from "volume*density").
type FormulaSpec struct {
	Expression string `json:"expression"`
	Output     string `json:"output,omitempty"`
	Unit       string `json:"unit,omitempty"`
}

// ActivityIDFieldsSpec describes quantity derivation for an emission factor.
type ActivityIDFieldsSpec struct {
	// Required lists input fields that must be present, in order. The
	// first entry doubles as the quantity source when no formula or
	// quantity field applies.
	Required []string `json:"required,omitempty"`

	Formula *FormulaSpec `json:"formula,omitempty"`

	// QuantityField names a single input field used directly as the
	// quantity.
	QuantityField string `json:"quantity_field,omitempty"`
}

// Activity is one recorded emission-generating event, referencing an
// emission factor by key and carrying operator-supplied inputs whose units
// are implied by the factor.
type Activity struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	EFKey  string         `json:"ef_key"`
	Inputs map[string]any `json:"inputs"`
	Scope  string         `json:"scope,omitempty"`
	Period string         `json:"period,omitempty"`
	Note   string         `json:"note,omitempty"`
}

// DerivationMethod identifies which quantity-derivation strategy produced a
// number. The values appear verbatim in persisted traces.
type DerivationMethod string

const (
	MethodFormula        DerivationMethod = "formula"
	MethodQuantityField  DerivationMethod = "quantity_field"
	MethodFirstRequired  DerivationMethod = "first_required"
	MethodFallbackAmount DerivationMethod = "fallback_amount"
)

// ConversionMethod identifies how a quantity became CO2e mass.
type ConversionMethod string

const (
	MethodDirectValue  ConversionMethod = "direct_value"
	MethodGasBreakdown ConversionMethod = "gas_breakdown"
)

// QuantityTrace records how a physical quantity was derived. Append-only:
// the engine never mutates a trace after constructing it.
type QuantityTrace struct {
	Method     DerivationMethod `json:"method"`
	Expression string           `json:"expression,omitempty"`
	Output     string           `json:"output,omitempty"`
	Unit       string           `json:"unit,omitempty"`
	Field      string           `json:"field,omitempty"`
	Quantity   float64          `json:"quantity"`
}

// ActivityTrace records one activity's full computation: the conversion
// method, the resolved quantity and its sub-trace, and the emission factor
// identity and metadata needed for later audit.
type ActivityTrace struct {
	Method      ConversionMethod `json:"method"`
	Quantity    float64          `json:"qty"`
	EFValue     *float64         `json:"ef_value,omitempty"`
	PerUnitCO2e *float64         `json:"per_unit_co2e,omitempty"`
	QTrace      QuantityTrace    `json:"qtrace"`
	EFKey       string           `json:"ef_key"`
	Meta        map[string]any   `json:"meta,omitempty"`
}

// RunRow is one activity's line in a run report. Raw inputs are carried
// along so the calculation can be reproduced during audit.
type RunRow struct {
	ActivityID   int64          `json:"activity_id"`
	ActivityName string         `json:"activity_name"`
	EFKey        string         `json:"ef_key"`
	Inputs       map[string]any `json:"inputs"`
	KgCO2e       float64        `json:"kgco2e"`
	Trace        ActivityTrace  `json:"trace"`
}

// RunDetails wraps the per-activity rows of a run.
type RunDetails struct {
	Rows []RunRow `json:"rows"`
}

// RunResult is the aggregate outcome of one calculation run. Rows preserve
// the order of the input activity id sequence.
type RunResult struct {
	RunType     string     `json:"run_type"`
	TotalKgCO2e float64    `json:"total_kgco2e"`
	TotalTCO2e  float64    `json:"total_tco2e"`
	Details     RunDetails `json:"details"`
}

// EmissionFactorLookup fetches one emission factor by key. A missing record
// is reported as found=false with a nil error; errors are reserved for
// infrastructure failures.
type EmissionFactorLookup interface {
	EmissionFactorByKey(ctx context.Context, key string) (*EmissionFactor, bool, error)
}

// ActivityLookup fetches one activity by id.
type ActivityLookup interface {
	ActivityByID(ctx context.Context, id int64) (*Activity, bool, error)
}

// Lookup is the read-only persistence surface the engine requires.
type Lookup interface {
	EmissionFactorLookup
	ActivityLookup
}
