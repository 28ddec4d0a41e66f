package engine

import "context"

// KgPerTonne converts kgCO2e totals to tCO2e.
const KgPerTonne = 1000.0

// ComputeRun calculates every activity in activityIDs, in order, and sums
// the results into a RunResult.
//
// A run is all-or-nothing: the first missing activity or failed calculation
// aborts the whole run and no partial result is returned. Totals accumulate
// exactly, with no rounding mid-pipeline, and Details.Rows preserves the
// input id order so reports are deterministic and reproducible.
func ComputeRun(ctx context.Context, db Lookup, activityIDs []int64, runType string) (*RunResult, error) {
	total := 0.0
	rows := make([]RunRow, 0, len(activityIDs))

	for _, id := range activityIDs {
		activity, found, err := db.ActivityByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &ActivityNotFoundError{ID: id}
		}

		kg, trace, err := ComputeActivity(ctx, activity, db)
		if err != nil {
			return nil, err
		}

		total += kg
		rows = append(rows, RunRow{
			ActivityID:   activity.ID,
			ActivityName: activity.Name,
			EFKey:        activity.EFKey,
			Inputs:       activity.Inputs,
			KgCO2e:       kg,
			Trace:        trace,
		})
	}

	return &RunResult{
		RunType:     runType,
		TotalKgCO2e: total,
		TotalTCO2e:  total / KgPerTonne,
		Details:     RunDetails{Rows: rows},
	}, nil
}
