package credit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name          string
		project       Project
		wantReduction float64
		wantBuffer    float64
		wantNet       float64
	}{
		{
			name: "standard netting",
			project: Project{
				ProjectCode:   "FOREST-001",
				BaselineTCO2e: 1000,
				ProjectTCO2e:  200,
				LeakageTCO2e:  50,
				BufferPct:     15,
			},
			wantReduction: 750,
			wantBuffer:    112.5,
			wantNet:       637.5,
		},
		{
			name: "zero buffer",
			project: Project{
				ProjectCode:   "SOLAR-002",
				BaselineTCO2e: 500,
				ProjectTCO2e:  100,
			},
			wantReduction: 400,
			wantBuffer:    0,
			wantNet:       400,
		},
		{
			name: "project exceeds baseline clamps to zero",
			project: Project{
				ProjectCode:   "BAD-003",
				BaselineTCO2e: 100,
				ProjectTCO2e:  150,
				BufferPct:     10,
			},
			wantReduction: 0,
			wantBuffer:    0,
			wantNet:       0,
		},
		{
			name: "full buffer withholds everything",
			project: Project{
				ProjectCode:   "RISKY-004",
				BaselineTCO2e: 100,
				BufferPct:     100,
			},
			wantReduction: 100,
			wantBuffer:    100,
			wantNet:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trace, err := Calculate(&tt.project)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantReduction, trace.ReductionTCO2e, 1e-12)
			assert.InDelta(t, tt.wantBuffer, trace.BufferTCO2e, 1e-12)
			assert.InDelta(t, tt.wantNet, trace.NetTCO2e, 1e-12)
			assert.Equal(t, tt.project.ProjectCode, trace.ProjectCode)
		})
	}
}

func TestCalculateInvalidBuffer(t *testing.T) {
	for _, pct := range []float64{-1, 101} {
		_, err := Calculate(&Project{ProjectCode: "P", BufferPct: pct})
		require.Error(t, err)
	}
}
