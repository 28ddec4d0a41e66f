package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		expr string
		vars map[string]any
		want float64
	}{
		{
			name: "literal",
			expr: "42",
			want: 42,
		},
		{
			name: "decimal literal",
			expr: "2.68",
			want: 2.68,
		},
		{
			name: "volume times density",
			expr: "volume*density",
			vars: map[string]any{"volume": 10.0, "density": 0.85},
			want: 8.5,
		},
		{
			name: "precedence multiplication before addition",
			expr: "2+3*4",
			want: 14,
		},
		{
			name: "parentheses override precedence",
			expr: "(2+3)*4",
			want: 20,
		},
		{
			name: "division",
			expr: "distance/efficiency",
			vars: map[string]any{"distance": 120.0, "efficiency": 8.0},
			want: 15,
		},
		{
			name: "unary minus",
			expr: "-x+10",
			vars: map[string]any{"x": 4.0},
			want: 6,
		},
		{
			name: "string input coerced",
			expr: "litres*2",
			vars: map[string]any{"litres": "100"},
			want: 200,
		},
		{
			name: "integer input coerced",
			expr: "units",
			vars: map[string]any{"units": 7},
			want: 7,
		},
		{
			name: "whitespace tolerated",
			expr: "  mass * ( gwp + 1 ) ",
			vars: map[string]any{"mass": 2.0, "gwp": 27.0},
			want: 56,
		},
		{
			name: "left associative subtraction",
			expr: "10-4-3",
			want: 3,
		},
		{
			name: "left associative division",
			expr: "100/5/2",
			want: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.expr, tt.vars)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	vars := map[string]any{"volume": 10.0, "density": 0.85}
	first, err := Evaluate("volume*density", vars)
	require.NoError(t, err)
	for range 10 {
		again, err := Evaluate("volume*density", vars)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name   string
		expr   string
		vars   map[string]any
		reason string
	}{
		{
			name:   "unknown variable",
			expr:   "volume*density",
			vars:   map[string]any{"volume": 10.0},
			reason: "unknown variable",
		},
		{
			name:   "division by zero",
			expr:   "1/x",
			vars:   map[string]any{"x": 0.0},
			reason: "division by zero",
		},
		{
			name:   "division by zero literal",
			expr:   "10/0",
			reason: "division by zero",
		},
		{
			name:   "trailing operator",
			expr:   "a+",
			vars:   map[string]any{"a": 1.0},
			reason: "unexpected end",
		},
		{
			name:   "unbalanced parenthesis",
			expr:   "(1+2",
			reason: "missing closing parenthesis",
		},
		{
			name:   "empty expression",
			expr:   "",
			reason: "unexpected end",
		},
		{
			name:   "invalid character",
			expr:   "a^2",
			vars:   map[string]any{"a": 2.0},
			reason: "unexpected",
		},
		{
			name:   "malformed number",
			expr:   "1.2.3",
			reason: "invalid number",
		},
		{
			name:   "non numeric variable",
			expr:   "supplier*2",
			vars:   map[string]any{"supplier": "acme"},
			reason: "not a number",
		},
		{
			name:   "adjacent operands",
			expr:   "1 2",
			reason: "unexpected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.expr, tt.vars)
			require.Error(t, err)
			var evalErr *EvaluationError
			require.ErrorAs(t, err, &evalErr)
			assert.Contains(t, evalErr.Reason, tt.reason)
			assert.Equal(t, tt.expr, evalErr.Expression)
		})
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    float64
		wantErr bool
	}{
		{name: "float64", in: 1.5, want: 1.5},
		{name: "int", in: 3, want: 3},
		{name: "int64", in: int64(9), want: 9},
		{name: "numeric string", in: " 42.5 ", want: 42.5},
		{name: "non numeric string", in: "acme", wantErr: true},
		{name: "bool", in: true, wantErr: true},
		{name: "nil", in: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToNumber(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
