package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencarbon/carbonfocus/internal/engine"
	"github.com/opencarbon/carbonfocus/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	cmd := NewRootCmd("test")

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"serve", "calc", "ef", "activity", "run", "credit", "audit", "seed"} {
		assert.Contains(t, names, want)
	}
}

func TestSeedCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	out, err := execute(t, "seed", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "upserted 7 seed factor(s)")
}

func TestCalcRunCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "seed", "--db", dbPath)
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	id, err := st.CreateActivity(t.Context(), &engine.Activity{
		Name:   "Fleet diesel",
		EFKey:  "diesel_litres",
		Inputs: map[string]any{"litres": 100.0},
	})
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "calc", "run", "--ids", "1", "--db", dbPath)
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
	assert.Contains(t, out, "TOTAL: 268.000 kgCO2e")
}

func TestCalcRunRequiresIDs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "calc", "run", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity id")
}

func TestRunExportUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	_, err := execute(t, "run", "export", "99", "--db", dbPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
