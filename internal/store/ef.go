package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencarbon/carbonfocus/internal/engine"
)

// EmissionFactorRecord is the persisted form of an emission factor: the
// engine-facing fields plus registry provenance the engine never reads.
type EmissionFactorRecord struct {
	engine.EmissionFactor

	Methodology      string     `json:"methodology,omitempty"`
	Publisher        string     `json:"publisher,omitempty"`
	DocumentTitle    string     `json:"document_title,omitempty"`
	ValidFrom        *time.Time `json:"valid_from,omitempty"`
	ValidTo          *time.Time `json:"valid_to,omitempty"`
	UncertaintyValue *float64   `json:"uncertainty_value,omitempty"`
	UncertaintyType  string     `json:"uncertainty_type,omitempty"`
}

// UpsertEmissionFactor inserts or replaces the factor identified by
// record.Key.
func (s *Store) UpsertEmissionFactor(ctx context.Context, record *EmissionFactorRecord) error {
	if record.Key == "" {
		return fmt.Errorf("emission factor key is required")
	}

	tags, err := json.Marshal(record.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	meta, err := json.Marshal(orEmptyMap(record.Meta))
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	idFields, err := marshalNullable(record.ActivityIDFields)
	if err != nil {
		return fmt.Errorf("marshal activity_id_fields: %w", err)
	}
	breakdown, err := marshalNullable(record.GasBreakdown)
	if err != nil {
		return fmt.Errorf("marshal gas_breakdown: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO emission_factors (
			key, name, unit, value, scope, category, tags,
			activity_id_fields, gas_breakdown, gwp_version,
			methodology, publisher, document_title,
			valid_from, valid_to, uncertainty_value, uncertainty_type,
			meta, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			unit = excluded.unit,
			value = excluded.value,
			scope = excluded.scope,
			category = excluded.category,
			tags = excluded.tags,
			activity_id_fields = excluded.activity_id_fields,
			gas_breakdown = excluded.gas_breakdown,
			gwp_version = excluded.gwp_version,
			methodology = excluded.methodology,
			publisher = excluded.publisher,
			document_title = excluded.document_title,
			valid_from = excluded.valid_from,
			valid_to = excluded.valid_to,
			uncertainty_value = excluded.uncertainty_value,
			uncertainty_type = excluded.uncertainty_type,
			meta = excluded.meta,
			updated_at = excluded.updated_at`,
		record.Key, record.Name, record.Unit, record.Value, record.Scope,
		record.Category, string(tags), idFields, breakdown, record.GWPVersion,
		record.Methodology, record.Publisher, record.DocumentTitle,
		record.ValidFrom, record.ValidTo, record.UncertaintyValue,
		record.UncertaintyType, string(meta), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert emission factor %q: %w", record.Key, err)
	}
	return nil
}

// EmissionFactorRecordByKey fetches the full persisted record.
func (s *Store) EmissionFactorRecordByKey(ctx context.Context, key string) (*EmissionFactorRecord, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, name, unit, value, scope, category, tags,
		       activity_id_fields, gas_breakdown, gwp_version,
		       methodology, publisher, document_title,
		       valid_from, valid_to, uncertainty_value, uncertainty_type, meta
		FROM emission_factors WHERE key = ?`, key)

	record, err := scanEmissionFactor(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query emission factor %q: %w", key, err)
	}
	return record, true, nil
}

// EmissionFactorByKey satisfies engine.EmissionFactorLookup.
func (s *Store) EmissionFactorByKey(ctx context.Context, key string) (*engine.EmissionFactor, bool, error) {
	record, found, err := s.EmissionFactorRecordByKey(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}
	return &record.EmissionFactor, true, nil
}

// ListEmissionFactors returns up to limit factors, optionally filtered by a
// case-insensitive substring match on key or name.
func (s *Store) ListEmissionFactors(ctx context.Context, q string, limit int) ([]*EmissionFactorRecord, error) {
	if limit <= 0 {
		limit = 500
	}

	query := `
		SELECT key, name, unit, value, scope, category, tags,
		       activity_id_fields, gas_breakdown, gwp_version,
		       methodology, publisher, document_title,
		       valid_from, valid_to, uncertainty_value, uncertainty_type, meta
		FROM emission_factors`
	args := []any{}
	if q != "" {
		query += ` WHERE key LIKE ? COLLATE NOCASE OR name LIKE ? COLLATE NOCASE`
		like := "%" + q + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY key LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list emission factors: %w", err)
	}
	defer rows.Close()

	var out []*EmissionFactorRecord
	for rows.Next() {
		record, err := scanEmissionFactor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emission factor: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmissionFactor(row rowScanner) (*EmissionFactorRecord, error) {
	var (
		record    EmissionFactorRecord
		tags      string
		meta      string
		idFields  sql.NullString
		breakdown sql.NullString
	)
	err := row.Scan(
		&record.Key, &record.Name, &record.Unit, &record.Value,
		&record.Scope, &record.Category, &tags, &idFields, &breakdown,
		&record.GWPVersion, &record.Methodology, &record.Publisher,
		&record.DocumentTitle, &record.ValidFrom, &record.ValidTo,
		&record.UncertaintyValue, &record.UncertaintyType, &meta,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &record.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &record.Meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	if idFields.Valid && idFields.String != "" {
		record.ActivityIDFields = &engine.ActivityIDFieldsSpec{}
		if err := json.Unmarshal([]byte(idFields.String), record.ActivityIDFields); err != nil {
			return nil, fmt.Errorf("decode activity_id_fields: %w", err)
		}
	}
	if breakdown.Valid && breakdown.String != "" {
		record.GasBreakdown = &engine.GasBreakdown{}
		if err := json.Unmarshal([]byte(breakdown.String), record.GasBreakdown); err != nil {
			return nil, fmt.Errorf("decode gas_breakdown: %w", err)
		}
	}
	return &record, nil
}

func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case *engine.ActivityIDFieldsSpec:
		if val == nil {
			return nil, nil
		}
	case *engine.GasBreakdown:
		if val == nil {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
