// Package credit computes carbon-credit issuance for registered projects.
//
// The netting follows the usual registry arithmetic: emission reductions are
// the baseline minus project emissions minus leakage, and a buffer
// percentage is withheld from the reduction before credits are issued. Every
// term is echoed back in the trace so the figure can be audited.
package credit

import "fmt"

// Project is the subset of a credit project the netting needs.
type Project struct {
	ProjectCode   string
	Name          string
	Methodology   string
	BaselineTCO2e float64
	ProjectTCO2e  float64
	LeakageTCO2e  float64
	BufferPct     float64
	Vintage       string
}

// Trace records the full netting derivation for one project.
type Trace struct {
	ProjectCode    string  `json:"project_code"`
	Methodology    string  `json:"methodology,omitempty"`
	Vintage        string  `json:"vintage,omitempty"`
	BaselineTCO2e  float64 `json:"baseline_tco2e"`
	ProjectTCO2e   float64 `json:"project_tco2e"`
	LeakageTCO2e   float64 `json:"leakage_tco2e"`
	ReductionTCO2e float64 `json:"reduction_tco2e"`
	BufferPct      float64 `json:"buffer_pct"`
	BufferTCO2e    float64 `json:"buffer_tco2e"`
	NetTCO2e       float64 `json:"net_tco2e"`
}

// Calculate nets a project's reductions into issuable credits.
//
// A project whose emissions plus leakage exceed its baseline yields zero,
// never negative credits. Buffer percentage must lie in [0, 100].
func Calculate(p *Project) (*Trace, error) {
	if p.BufferPct < 0 || p.BufferPct > 100 {
		return nil, fmt.Errorf("buffer_pct must be between 0 and 100, got %g", p.BufferPct)
	}

	reduction := p.BaselineTCO2e - p.ProjectTCO2e - p.LeakageTCO2e
	if reduction < 0 {
		reduction = 0
	}
	buffer := reduction * p.BufferPct / 100
	net := reduction - buffer

	return &Trace{
		ProjectCode:    p.ProjectCode,
		Methodology:    p.Methodology,
		Vintage:        p.Vintage,
		BaselineTCO2e:  p.BaselineTCO2e,
		ProjectTCO2e:   p.ProjectTCO2e,
		LeakageTCO2e:   p.LeakageTCO2e,
		ReductionTCO2e: reduction,
		BufferPct:      p.BufferPct,
		BufferTCO2e:    buffer,
		NetTCO2e:       net,
	}, nil
}
