package gwp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		version string
		gas     string
		want    float64
	}{
		{name: "AR5 methane", version: "AR5", gas: "CH4", want: 28},
		{name: "AR5 nitrous oxide", version: "AR5", gas: "N2O", want: 265},
		{name: "AR4 methane", version: "AR4", gas: "CH4", want: 25},
		{name: "AR6 methane", version: "AR6", gas: "CH4", want: 27.9},
		{name: "CO2 is unity in every table", version: "AR6", gas: "CO2", want: 1},
		{name: "lowercase version", version: "ar5", gas: "CH4", want: 28},
		{name: "version with whitespace", version: " AR5 ", gas: "CH4", want: 28},
		{name: "empty version uses default", version: "", gas: "N2O", want: 273},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Resolve(tt.version)
			require.NoError(t, err)
			got, ok := table.Factor(tt.gas)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownVersion(t *testing.T) {
	_, err := Resolve("AR99")
	require.Error(t, err)

	var verErr *UnknownVersionError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, "AR99", verErr.Version)
	assert.Contains(t, err.Error(), "AR99")
}

func TestFactorCaseInsensitive(t *testing.T) {
	table, err := Resolve("AR5")
	require.NoError(t, err)

	tests := []struct {
		gas  string
		want float64
		ok   bool
	}{
		{gas: "ch4", want: 28, ok: true},
		{gas: "Ch4", want: 28, ok: true},
		{gas: " CH4 ", want: 28, ok: true},
		{gas: "hfc-134a", want: 1300, ok: true},
		{gas: "C6H6", ok: false},
		{gas: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.gas, func(t *testing.T) {
			got, ok := table.Factor(tt.gas)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVersions(t *testing.T) {
	assert.Equal(t, []string{"AR4", "AR5", "AR6"}, Versions())
}
