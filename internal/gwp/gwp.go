// Package gwp holds the versioned Global Warming Potential reference tables
// used to weight multi-gas emission breakdowns into CO2-equivalent terms.
//
// Each IPCC assessment report publishes its own 100-year GWP values, so the
// table is keyed by report version. Resolving never falls back to another
// version: a calculation tied to the wrong table would corrupt audit trails.
package gwp

import (
	"fmt"
	"sort"
	"strings"
)

// Table maps an upper-cased gas symbol to its CO2-equivalence multiplier.
type Table map[string]float64

// UnknownVersionError is returned when a GWP version identifier does not
// match any shipped table.
type UnknownVersionError struct {
	Version string
}

func (e *UnknownVersionError) Error() string {
	return fmt.Sprintf("unknown GWP version %q (known: %s)", e.Version, strings.Join(Versions(), ", "))
}

// 100-year GWP values per IPCC assessment report.
var tables = map[string]Table{
	"AR4": {
		"CO2":      1,
		"CH4":      25,
		"N2O":      298,
		"SF6":      22800,
		"NF3":      17200,
		"HFC-134A": 1430,
	},
	"AR5": {
		"CO2":      1,
		"CH4":      28,
		"N2O":      265,
		"SF6":      23500,
		"NF3":      16100,
		"HFC-134A": 1300,
	},
	"AR6": {
		"CO2":      1,
		"CH4":      27.9,
		"N2O":      273,
		"SF6":      25200,
		"NF3":      17400,
		"HFC-134A": 1526,
	},
}

// DefaultVersion is the table applied when an emission factor does not name
// one. Seed data and the EF schema both default to AR6.
const DefaultVersion = "AR6"

// Resolve returns the immutable table for the given version identifier.
// Version matching is case-insensitive ("ar5" and "AR5" are the same table).
// An empty version resolves to DefaultVersion; an unrecognized one returns
// UnknownVersionError so callers never silently fall back to another table.
func Resolve(version string) (Table, error) {
	v := strings.ToUpper(strings.TrimSpace(version))
	if v == "" {
		v = DefaultVersion
	}
	table, ok := tables[v]
	if !ok {
		return nil, &UnknownVersionError{Version: version}
	}
	return table, nil
}

// Factor looks up the multiplier for a gas symbol, case-insensitively.
func (t Table) Factor(gas string) (float64, bool) {
	f, ok := t[strings.ToUpper(strings.TrimSpace(gas))]
	return f, ok
}

// Versions lists the known version identifiers in sorted order.
func Versions() []string {
	out := make([]string, 0, len(tables))
	for v := range tables {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
