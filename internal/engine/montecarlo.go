package engine

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"wealthpath-backend/internal/engine/tax"
)

// Matrix is the raw per-path year series produced by one Monte Carlo run.
// Each path owns its own row, so nothing races during the fan-out.
type Matrix struct {
	Years   []int
	Records [][]YearRecord // [path][yearIdx]
}

// Run simulates every path against the draw table, distributed across the
// available CPUs. A failure in any path (a non-finite value) aborts the
// whole run: a silently dropped path would bias the percentile
// aggregation.
func Run(ctx context.Context, s *Scenario, policy PolicyParams, draws *DrawTable) (*Matrix, error) {
	if err := policy.validate(); err != nil {
		return nil, err
	}
	calc, err := tax.NewCalculator(s.Assumptions.Tax)
	if err != nil {
		return nil, &ConfigError{Field: "tax_bands", Reason: err.Error()}
	}

	m := &Matrix{
		Years:   s.Years(),
		Records: make([][]YearRecord, draws.Paths),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for p := 0; p < draws.Paths; p++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := SimulatePath(s, policy, calc, draws, p)
			if err != nil {
				return err
			}
			m.Records[p] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}
