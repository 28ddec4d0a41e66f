package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opencarbon/carbonfocus/internal/engine"
)

// CreateActivity inserts a new activity and returns its assigned id.
func (s *Store) CreateActivity(ctx context.Context, a *engine.Activity) (int64, error) {
	if a.EFKey == "" {
		return 0, fmt.Errorf("activity ef_key is required")
	}

	inputs, err := json.Marshal(orEmptyMap(a.Inputs))
	if err != nil {
		return 0, fmt.Errorf("marshal inputs: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO activities (name, ef_key, inputs, scope, period, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.EFKey, string(inputs), a.Scope,
		nullString(a.Period), nullString(a.Note), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("activity id: %w", err)
	}
	a.ID = id
	return id, nil
}

// ActivityByID satisfies engine.ActivityLookup.
func (s *Store) ActivityByID(ctx context.Context, id int64) (*engine.Activity, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, ef_key, inputs, scope, period, note
		FROM activities WHERE id = ?`, id)

	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query activity %d: %w", id, err)
	}
	return a, true, nil
}

// ListActivities returns activities newest first.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]*engine.Activity, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, ef_key, inputs, scope, period, note
		FROM activities ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*engine.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteActivity removes an activity. Returns false when no row existed.
func (s *Store) DeleteActivity(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete activity %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanActivity(row rowScanner) (*engine.Activity, error) {
	var (
		a      engine.Activity
		inputs string
		period sql.NullString
		note   sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &a.EFKey, &inputs, &a.Scope, &period, &note); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(inputs), &a.Inputs); err != nil {
		return nil, fmt.Errorf("decode inputs: %w", err)
	}
	a.Period = period.String
	a.Note = note.String
	return &a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
