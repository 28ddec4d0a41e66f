package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencarbon/carbonfocus/internal/gwp"
)

func TestPerUnitCO2e(t *testing.T) {
	tests := []struct {
		name      string
		breakdown *GasBreakdown
		version   string
		want      float64
	}{
		{
			name: "electricity grid AR5",
			breakdown: &GasBreakdown{Gases: map[string]float64{
				"CO2": 0.45,
				"CH4": 0.0001,
			}},
			version: "AR5",
			want:    0.45*1 + 0.0001*28,
		},
		{
			name: "lowercase gas symbols",
			breakdown: &GasBreakdown{Gases: map[string]float64{
				"co2": 1.0,
				"n2o": 0.001,
			}},
			version: "AR5",
			want:    1.0 + 0.001*265,
		},
		{
			name: "unknown gases skipped",
			breakdown: &GasBreakdown{Gases: map[string]float64{
				"CO2":  0.5,
				"C6H6": 12.0,
			}},
			version: "AR5",
			want:    0.5,
		},
		{
			name:      "nil breakdown",
			breakdown: nil,
			version:   "AR5",
			want:      0,
		},
		{
			name:      "empty gases",
			breakdown: &GasBreakdown{Gases: map[string]float64{}},
			version:   "AR5",
			want:      0,
		},
		{
			name: "AR6 weights differ",
			breakdown: &GasBreakdown{Gases: map[string]float64{
				"CH4": 1.0,
			}},
			version: "AR6",
			want:    27.9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PerUnitCO2e(tt.breakdown, tt.version)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestPerUnitCO2eUnknownVersion(t *testing.T) {
	breakdown := &GasBreakdown{Gases: map[string]float64{"CO2": 1.0}}

	_, err := PerUnitCO2e(breakdown, "SAR")
	require.Error(t, err)

	var verErr *gwp.UnknownVersionError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, "SAR", verErr.Version)
}
