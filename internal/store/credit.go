package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// CreditProject is a carbon-credit project developed against a methodology.
// Tonnage figures are operator-entered baselines for the netting
// calculation.
type CreditProject struct {
	ID            int64   `json:"id"`
	ProjectCode   string  `json:"project_code"`
	Name          string  `json:"name"`
	Methodology   string  `json:"methodology"`
	BaselineTCO2e float64 `json:"baseline_tco2e"`
	ProjectTCO2e  float64 `json:"project_tco2e"`
	LeakageTCO2e  float64 `json:"leakage_tco2e"`
	BufferPct     float64 `json:"buffer_pct"`
	Vintage       string  `json:"vintage"`
}

// UpsertCreditProject inserts or replaces the project identified by
// ProjectCode.
func (s *Store) UpsertCreditProject(ctx context.Context, p *CreditProject) error {
	if p.ProjectCode == "" {
		return fmt.Errorf("credit project code is required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_projects (
			project_code, name, methodology,
			baseline_tco2e, project_tco2e, leakage_tco2e, buffer_pct,
			vintage, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_code) DO UPDATE SET
			name = excluded.name,
			methodology = excluded.methodology,
			baseline_tco2e = excluded.baseline_tco2e,
			project_tco2e = excluded.project_tco2e,
			leakage_tco2e = excluded.leakage_tco2e,
			buffer_pct = excluded.buffer_pct,
			vintage = excluded.vintage,
			updated_at = excluded.updated_at`,
		p.ProjectCode, p.Name, p.Methodology,
		p.BaselineTCO2e, p.ProjectTCO2e, p.LeakageTCO2e, p.BufferPct,
		p.Vintage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert credit project %q: %w", p.ProjectCode, err)
	}
	return nil
}

// CreditProjectByCode fetches one project by its code.
func (s *Store) CreditProjectByCode(ctx context.Context, code string) (*CreditProject, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_code, name, methodology,
		       baseline_tco2e, project_tco2e, leakage_tco2e, buffer_pct, vintage
		FROM credit_projects WHERE project_code = ?`, code)

	var p CreditProject
	err := row.Scan(&p.ID, &p.ProjectCode, &p.Name, &p.Methodology,
		&p.BaselineTCO2e, &p.ProjectTCO2e, &p.LeakageTCO2e, &p.BufferPct, &p.Vintage)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query credit project %q: %w", code, err)
	}
	return &p, true, nil
}

// ListCreditProjects returns projects newest first.
func (s *Store) ListCreditProjects(ctx context.Context) ([]*CreditProject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_code, name, methodology,
		       baseline_tco2e, project_tco2e, leakage_tco2e, buffer_pct, vintage
		FROM credit_projects ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list credit projects: %w", err)
	}
	defer rows.Close()

	var out []*CreditProject
	for rows.Next() {
		var p CreditProject
		err := rows.Scan(&p.ID, &p.ProjectCode, &p.Name, &p.Methodology,
			&p.BaselineTCO2e, &p.ProjectTCO2e, &p.LeakageTCO2e, &p.BufferPct, &p.Vintage)
		if err != nil {
			return nil, fmt.Errorf("scan credit project: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
