// Package seed loads the embedded starter emission-factor registry into the
// store so a fresh installation can calculate immediately.
package seed

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/opencarbon/carbonfocus/internal/logging"
	"github.com/opencarbon/carbonfocus/internal/schema"
	"github.com/opencarbon/carbonfocus/internal/store"
)

//go:embed factors.yaml
var factorsYAML []byte

type seedFile struct {
	Factors []map[string]any `yaml:"factors"`
}

// Apply upserts every embedded seed factor. Rows that fail validation are
// skipped and reported as warnings; only infrastructure failures abort.
func Apply(ctx context.Context, st *store.Store) (int, []string, error) {
	return applyYAML(ctx, st, factorsYAML)
}

func applyYAML(ctx context.Context, st *store.Store, data []byte) (int, []string, error) {
	logger := logging.FromContext(ctx).With().Str("component", "seed").Logger()

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, nil, fmt.Errorf("parse seed factors: %w", err)
	}

	count := 0
	var warnings []string
	for i, row := range file.Factors {
		payload, err := json.Marshal(row)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("factor %d: not encodable: %v", i+1, err))
			continue
		}
		if err := schema.ValidateEmissionFactor(payload); err != nil {
			warnings = append(warnings, fmt.Sprintf("factor %d: %v", i+1, err))
			continue
		}

		var record store.EmissionFactorRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			warnings = append(warnings, fmt.Sprintf("factor %d: %v", i+1, err))
			continue
		}
		if err := st.UpsertEmissionFactor(ctx, &record); err != nil {
			return count, warnings, fmt.Errorf("upsert seed factor %q: %w", record.Key, err)
		}
		count++
	}

	logger.Info().Int("upserted", count).Int("warnings", len(warnings)).Msg("seed factors applied")
	return count, warnings, nil
}
