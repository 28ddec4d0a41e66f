package engine

import (
	"github.com/opencarbon/carbonfocus/internal/gwp"
)

// PerUnitCO2e collapses a multi-gas breakdown into a single CO2e-per-unit
// factor using the GWP table selected by version.
//
// Gases absent from the table are skipped rather than failing: GWP tables do
// not cover every trace gas, and an unknown gas contributing zero is the
// intended policy. An empty or absent breakdown yields 0.0. An unknown GWP
// version is still an error: weighting against the wrong table would corrupt
// the audit trail.
func PerUnitCO2e(breakdown *GasBreakdown, version string) (float64, error) {
	table, err := gwp.Resolve(version)
	if err != nil {
		return 0, err
	}

	if breakdown == nil {
		return 0, nil
	}

	perUnit := 0.0
	for gas, quantity := range breakdown.Gases {
		if factor, ok := table.Factor(gas); ok {
			perUnit += quantity * factor
		}
	}
	return perUnit, nil
}
