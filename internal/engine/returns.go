package engine

import (
	"math/rand/v2"
)

// DrawTable holds every stochastic return draw for a session, generated
// once at session creation and treated as immutable afterwards. A
// recalculation reuses the same table, which is what makes it cheap.
//
// Layout is a flat slice indexed (path, year, asset) so one path's draws
// are contiguous per year.
type DrawTable struct {
	Paths  int
	Years  int
	Assets int
	Seed   uint64

	draws []float64
}

// GenerateDraws samples normal(mean, std) per asset for every path and
// year, using a seeded deterministic generator so the full table is
// reproducible across processes. Assets with zero std always draw their
// mean and consume no randomness.
func GenerateDraws(s *Scenario, paths int, seed uint64) (*DrawTable, error) {
	if paths < 1 {
		return nil, configErrorf("iterations", "must be >= 1, got %d", paths)
	}
	years := s.Assumptions.EndYear - s.Assumptions.StartYear + 1
	nAssets := len(s.Assets)

	t := &DrawTable{
		Paths:  paths,
		Years:  years,
		Assets: nAssets,
		Seed:   seed,
		draws:  make([]float64, paths*years*nAssets),
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	idx := 0
	for p := 0; p < paths; p++ {
		for y := 0; y < years; y++ {
			for a := 0; a < nAssets; a++ {
				asset := &s.Assets[a]
				if asset.GrowthStd == 0 {
					t.draws[idx] = asset.GrowthMean
				} else {
					t.draws[idx] = asset.GrowthMean + asset.GrowthStd*rng.NormFloat64()
				}
				idx++
			}
		}
	}
	return t, nil
}

// At returns the return draw for (path, year index, asset index).
func (t *DrawTable) At(path, yearIdx, assetIdx int) float64 {
	return t.draws[(path*t.Years+yearIdx)*t.Assets+assetIdx]
}
