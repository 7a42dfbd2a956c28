package tax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPensionDrawdown_ZeroTargetOrEmptyPot(t *testing.T) {
	c := newTestCalculator(t)

	assert.Equal(t, Drawdown{}, c.PensionDrawdown(0, 0, 100_000))
	assert.Equal(t, Drawdown{}, c.PensionDrawdown(-500, 0, 100_000))
	assert.Equal(t, Drawdown{}, c.PensionDrawdown(10_000, 0, 0))
}

func TestPensionDrawdown_WithinPersonalAllowance(t *testing.T) {
	c := newTestCalculator(t)

	// No other income: a 10k net target needs a 10k gross withdrawal, since
	// the 7.5k taxable portion sits inside the personal allowance.
	res := c.PensionDrawdown(10_000, 0, 500_000)
	assert.InDelta(t, 10_000, res.Gross, 0.01)
	assert.InDelta(t, 2_500, res.TaxFree, 0.01)
	assert.InDelta(t, 7_500, res.Taxable, 0.01)
	assert.InDelta(t, 0, res.Tax, 0.01)
	assert.InDelta(t, 10_000, res.Net, 0.01)
}

func TestPensionDrawdown_MarginalStackingOnOtherIncome(t *testing.T) {
	c := newTestCalculator(t)

	// Other income already fills the personal allowance, so every taxable
	// unit is basic-rate: net per taxable = 4/3 - 0.20.
	res := c.PensionDrawdown(11_333.33, 12_570, 500_000)
	assert.InDelta(t, 10_000, res.Taxable, 1)
	assert.InDelta(t, 10_000*0.20, res.Tax, 1)
	assert.InDelta(t, 11_333.33, res.Net, 1)
}

func TestPensionDrawdown_NetMeetsTargetAcrossBands(t *testing.T) {
	c := newTestCalculator(t)

	for _, target := range []float64{5_000, 30_000, 80_000, 200_000} {
		for _, other := range []float64{0, 11_500, 48_000, 130_000} {
			res := c.PensionDrawdown(target, other, 10_000_000)
			assert.InDeltaf(t, target, res.Net, 0.5,
				"target=%v other=%v", target, other)
			// Consistency: tax equals marginal tax on the taxable portion.
			assert.InDelta(t, c.MarginalIncomeTax(res.Taxable, other), res.Tax, 0.01)
		}
	}
}

func TestPensionDrawdown_CappedAtBalance(t *testing.T) {
	c := newTestCalculator(t)

	res := c.PensionDrawdown(50_000, 0, 20_000)
	assert.InDelta(t, 20_000, res.Gross, 0.01)
	assert.Less(t, res.Net, 50_000.0)
	assert.InDelta(t, res.Gross-res.Tax, res.Net, 0.01)
}
