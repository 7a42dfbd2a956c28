package engine

import (
	"wealthpath-backend/internal/engine/tax"
)

// SimulatePath runs one Monte Carlo path across the full year range. It is
// pure given the scenario, the policy parameters and the path's slice of
// the draw table: no hidden state survives between paths.
func SimulatePath(s *Scenario, policy PolicyParams, calc *tax.Calculator, draws *DrawTable, path int) ([]YearRecord, error) {
	st := newPathState(s, policy)
	records := make([]YearRecord, draws.Years)
	for y := 0; y < draws.Years; y++ {
		rec, err := stepYear(s, policy, calc, st, draws, path, y)
		if err != nil {
			return nil, err
		}
		records[y] = rec
	}
	return records, nil
}
