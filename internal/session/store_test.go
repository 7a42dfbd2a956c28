package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealthpath-backend/internal/engine"
)

func testScenario() *engine.Scenario {
	start := 2025
	a := engine.DefaultAssumptions(start)
	a.EndYear = start + 9
	return &engine.Scenario{
		People: []engine.Person{{
			ID: "p1", Label: "you", BirthYear: start - 45,
			RetirementAge: 48, StatePensionAge: 67,
		}},
		Incomes: []engine.Income{{
			Kind: engine.IncomeSalary, PersonID: "p1", GrossAnnual: 55_000,
		}},
		Assets: []engine.Asset{
			{ID: "cash", Type: engine.AssetCash},
			{ID: "isa", Type: engine.AssetISA, Balance: 40_000, GrowthMean: 0.05, GrowthStd: 0.12, WithdrawalPriority: 1},
		},
		Assumptions: a,
	}
}

func defaultParams() engine.PolicyParams {
	return engine.PolicyParams{Percentile: 50}
}

func TestCreate_ReturnsSessionAndResult(t *testing.T) {
	store := NewStore(0)

	id, result, err := store.Create(context.Background(), "scen-1", testScenario(), 32, 7, defaultParams())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NotNil(t, result)
	assert.Len(t, result.Series["net_worth"], 10)
	assert.Equal(t, 1, store.Len())
}

func TestCreate_InvalidScenarioRejected(t *testing.T) {
	store := NewStore(0)
	sc := testScenario()
	sc.People = nil

	_, _, err := store.Create(context.Background(), "scen-1", sc, 32, 7, defaultParams())
	var cfgErr *engine.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 0, store.Len())
}

func TestRecalc_NoOverridesReturnsIdenticalResult(t *testing.T) {
	store := NewStore(0)
	id, created, err := store.Create(context.Background(), "scen-1", testScenario(), 32, 7, defaultParams())
	require.NoError(t, err)

	again, err := store.Recalc(context.Background(), id, engine.PolicyOverrides{})
	require.NoError(t, err)
	assert.Equal(t, created, again)
}

func TestRecalc_RoundTripRestoresOriginalResult(t *testing.T) {
	store := NewStore(0)
	id, created, err := store.Create(context.Background(), "scen-1", testScenario(), 32, 7, defaultParams())
	require.NoError(t, err)

	spend := 25_000.0
	bumped, err := store.Recalc(context.Background(), id, engine.PolicyOverrides{AnnualSpendTarget: &spend})
	require.NoError(t, err)
	assert.NotEqual(t, created.Series["total_expenses"], bumped.Series["total_expenses"])

	// Reverting the knob reproduces the original draw-for-draw: the cached
	// table is the only source of randomness.
	zero := 0.0
	reverted, err := store.Recalc(context.Background(), id, engine.PolicyOverrides{AnnualSpendTarget: &zero})
	require.NoError(t, err)
	assert.Equal(t, created, reverted)
}

func TestRecalc_PercentileOnlyReusesPaths(t *testing.T) {
	store := NewStore(0)
	id, p50, err := store.Create(context.Background(), "scen-1", testScenario(), 64, 7, defaultParams())
	require.NoError(t, err)

	p90 := 90
	res, err := store.Recalc(context.Background(), id, engine.PolicyOverrides{Percentile: &p90})
	require.NoError(t, err)
	assert.Equal(t, 90, res.Percentile)
	// The p10/p90 bands are percentile-independent, so they must match.
	assert.Equal(t, p50.NetWorthP90, res.NetWorthP90)
	assert.Equal(t, p50.NetWorthP90, res.Series["net_worth"])
}

func TestRecalc_UnknownSessionErrNotFound(t *testing.T) {
	store := NewStore(0)
	_, err := store.Recalc(context.Background(), "nope", engine.PolicyOverrides{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_RemovesSession(t *testing.T) {
	store := NewStore(0)
	id, _, err := store.Create(context.Background(), "scen-1", testScenario(), 8, 7, defaultParams())
	require.NoError(t, err)

	store.Delete(id)
	_, err = store.Recalc(context.Background(), id, engine.PolicyOverrides{})
	assert.ErrorIs(t, err, ErrNotFound)
	// Deleting twice is a no-op.
	store.Delete(id)
}

func TestInvalidateScenario_DropsOnlyMatchingSessions(t *testing.T) {
	store := NewStore(0)
	id1, _, err := store.Create(context.Background(), "scen-1", testScenario(), 8, 1, defaultParams())
	require.NoError(t, err)
	_, _, err = store.Create(context.Background(), "scen-1", testScenario(), 8, 2, defaultParams())
	require.NoError(t, err)
	id3, _, err := store.Create(context.Background(), "scen-2", testScenario(), 8, 3, defaultParams())
	require.NoError(t, err)

	assert.Equal(t, 2, store.InvalidateScenario("scen-1"))
	assert.Equal(t, 1, store.Len())

	_, err = store.Recalc(context.Background(), id1, engine.PolicyOverrides{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Recalc(context.Background(), id3, engine.PolicyOverrides{})
	assert.NoError(t, err)
}

func TestSessionsExpireAfterTTL(t *testing.T) {
	store := NewStore(10 * time.Minute)
	clock := time.Now()
	store.now = func() time.Time { return clock }

	id, _, err := store.Create(context.Background(), "scen-1", testScenario(), 8, 7, defaultParams())
	require.NoError(t, err)

	clock = clock.Add(9 * time.Minute)
	_, err = store.Recalc(context.Background(), id, engine.PolicyOverrides{})
	require.NoError(t, err)

	// Expired sessions are purged lazily on the next create.
	clock = clock.Add(2 * time.Minute)
	_, _, err = store.Create(context.Background(), "scen-2", testScenario(), 8, 8, defaultParams())
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	_, err = store.Recalc(context.Background(), id, engine.PolicyOverrides{})
	assert.ErrorIs(t, err, ErrNotFound)
}
