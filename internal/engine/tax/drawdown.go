package tax

// Drawdown is the result of a pension withdrawal. 25% of the gross is
// tax-free (PCLS); the remaining 75% stacks on top of the year's other
// taxable income at the marginal income-tax bands.
type Drawdown struct {
	Gross   float64
	TaxFree float64
	Taxable float64
	Tax     float64
	Net     float64
}

// PensionDrawdown solves for the gross pension withdrawal that yields
// targetNet after tax, capped at the pot balance. otherTaxable is income
// already taxed this year (salary, rental, state pension), so the taxable
// 75% is taxed at the household's marginal rate, not independently.
func (c *Calculator) PensionDrawdown(targetNet, otherTaxable, balance float64) Drawdown {
	if targetNet <= 0 || balance <= 0 {
		return Drawdown{}
	}
	if otherTaxable < 0 {
		otherTaxable = 0
	}

	taxable := c.solveTaxableWithdrawal(targetNet, otherTaxable)
	gross := taxable / 0.75
	if gross > balance {
		gross = balance
	}
	return c.drawdownForGross(gross, otherTaxable)
}

func (c *Calculator) drawdownForGross(gross, otherTaxable float64) Drawdown {
	taxable := gross * 0.75
	tax := c.MarginalIncomeTax(taxable, otherTaxable)
	return Drawdown{
		Gross:   gross,
		TaxFree: gross * 0.25,
		Taxable: taxable,
		Tax:     tax,
		Net:     gross - tax,
	}
}

// solveTaxableWithdrawal walks the piecewise-linear tax bands to find the
// taxable (75%) portion needed for the target net amount. Each unit of
// taxable income delivers 4/3 - rate of net cash, because the gross it
// implies carries a tax-free quarter.
func (c *Calculator) solveTaxableWithdrawal(targetNet, otherTaxable float64) float64 {
	b := c.bands
	limits := []struct {
		upper float64
		rate  float64
	}{
		{b.PersonalAllowance, 0},
		{b.BasicRateLimit, b.BasicRate},
		{b.HigherRateLimit, b.HigherRate},
	}

	remainingNet := targetNet
	taxableNeeded := 0.0
	income := otherTaxable
	prev := 0.0

	for _, band := range limits {
		start, end := prev, band.upper
		prev = band.upper
		if income >= end {
			continue
		}
		available := end - max(income, start)
		if available <= 0 {
			continue
		}
		netPerTaxable := 4.0/3.0 - band.rate
		netAvailable := available * netPerTaxable
		if remainingNet <= netAvailable {
			return taxableNeeded + remainingNet/netPerTaxable
		}
		taxableNeeded += available
		remainingNet -= netAvailable
		income = end
	}

	netPerTaxable := 4.0/3.0 - b.AdditionalRate
	if netPerTaxable <= 0 {
		return taxableNeeded
	}
	return taxableNeeded + remainingNet/netPerTaxable
}
