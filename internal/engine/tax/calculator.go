package tax

import (
	"fmt"
)

// Bands holds one tax year's parameters: progressive income-tax bands,
// National Insurance thresholds and the capital-gains allowance/rate.
// Defaults are UK 2024/25.
type Bands struct {
	PersonalAllowance float64 `json:"personal_allowance"`
	BasicRateLimit    float64 `json:"basic_rate_limit"`
	HigherRateLimit   float64 `json:"higher_rate_limit"`
	BasicRate         float64 `json:"basic_rate"`
	HigherRate        float64 `json:"higher_rate"`
	AdditionalRate    float64 `json:"additional_rate"`

	NIPrimaryThreshold float64 `json:"ni_primary_threshold"`
	NIUpperLimit       float64 `json:"ni_upper_limit"`
	NIMainRate         float64 `json:"ni_main_rate"`
	NIUpperRate        float64 `json:"ni_upper_rate"`

	CGTAnnualAllowance float64 `json:"cgt_annual_allowance"`
	CGTRate            float64 `json:"cgt_rate"`
}

// DefaultBands returns the UK 2024/25 parameters.
func DefaultBands() Bands {
	return Bands{
		PersonalAllowance:  12_570,
		BasicRateLimit:     50_270,
		HigherRateLimit:    125_140,
		BasicRate:          0.20,
		HigherRate:         0.40,
		AdditionalRate:     0.45,
		NIPrimaryThreshold: 12_570,
		NIUpperLimit:       50_270,
		NIMainRate:         0.08,
		NIUpperRate:        0.02,
		CGTAnnualAllowance: 3_000,
		CGTRate:            0.10,
	}
}

// Validate fails fast on malformed band tables so a bad configuration is
// rejected before any simulation runs.
func (b Bands) Validate() error {
	if b.PersonalAllowance < 0 {
		return fmt.Errorf("personal_allowance must be >= 0, got %v", b.PersonalAllowance)
	}
	if b.BasicRateLimit <= b.PersonalAllowance {
		return fmt.Errorf("basic_rate_limit (%v) must exceed personal_allowance (%v)", b.BasicRateLimit, b.PersonalAllowance)
	}
	if b.HigherRateLimit <= b.BasicRateLimit {
		return fmt.Errorf("higher_rate_limit (%v) must exceed basic_rate_limit (%v)", b.HigherRateLimit, b.BasicRateLimit)
	}
	if b.NIUpperLimit <= b.NIPrimaryThreshold {
		return fmt.Errorf("ni_upper_limit (%v) must exceed ni_primary_threshold (%v)", b.NIUpperLimit, b.NIPrimaryThreshold)
	}
	for name, rate := range map[string]float64{
		"basic_rate":      b.BasicRate,
		"higher_rate":     b.HigherRate,
		"additional_rate": b.AdditionalRate,
		"ni_main_rate":    b.NIMainRate,
		"ni_upper_rate":   b.NIUpperRate,
		"cgt_rate":        b.CGTRate,
	} {
		if rate < 0 || rate >= 1 {
			return fmt.Errorf("%s must be in [0, 1), got %v", name, rate)
		}
	}
	if b.CGTAnnualAllowance < 0 {
		return fmt.Errorf("cgt_annual_allowance must be >= 0, got %v", b.CGTAnnualAllowance)
	}
	return nil
}

// Calculator computes income tax, National Insurance and capital-gains tax
// for one tax year. It is stateless and safe for concurrent use.
type Calculator struct {
	bands Bands
}

// NewCalculator validates the band table and returns a calculator.
func NewCalculator(b Bands) (*Calculator, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{bands: b}, nil
}

// Bands returns the band table the calculator was built with.
func (c *Calculator) Bands() Bands {
	return c.bands
}

// IncomeTax applies the progressive bands to taxable income. Negative input
// is treated as zero.
func (c *Calculator) IncomeTax(taxable float64) float64 {
	if taxable <= 0 {
		return 0
	}
	b := c.bands
	remaining := taxable
	tax := 0.0

	allowance := min(remaining, b.PersonalAllowance)
	remaining -= allowance
	if remaining <= 0 {
		return 0
	}

	basicBand := b.BasicRateLimit - b.PersonalAllowance
	basicAmount := min(remaining, basicBand)
	tax += basicAmount * b.BasicRate
	remaining -= basicAmount
	if remaining <= 0 {
		return tax
	}

	higherBand := b.HigherRateLimit - b.BasicRateLimit
	higherAmount := min(remaining, higherBand)
	tax += higherAmount * b.HigherRate
	remaining -= higherAmount
	if remaining <= 0 {
		return tax
	}

	return tax + remaining*b.AdditionalRate
}

// MarginalIncomeTax is the extra tax due when amount stacks on top of
// existing taxable income.
func (c *Calculator) MarginalIncomeTax(amount, existing float64) float64 {
	if amount <= 0 {
		return 0
	}
	if existing < 0 {
		existing = 0
	}
	return c.IncomeTax(existing+amount) - c.IncomeTax(existing)
}

// NationalInsurance applies employee NI to gross salary. No pre-tax
// deductions: NI is charged on the full gross.
func (c *Calculator) NationalInsurance(gross float64) float64 {
	b := c.bands
	if gross <= b.NIPrimaryThreshold {
		return 0
	}
	mainAmount := min(gross, b.NIUpperLimit) - b.NIPrimaryThreshold
	upperAmount := max(0, gross-b.NIUpperLimit)
	return mainAmount*b.NIMainRate + upperAmount*b.NIUpperRate
}

// SalaryTax is the breakdown for one year of salary income.
type SalaryTax struct {
	IncomeTax         float64
	NationalInsurance float64
	Net               float64
}

// Salary computes tax on gross salary. The employee pension contribution is
// deducted before income tax; NI is charged on the full gross.
func (c *Calculator) Salary(gross, employeePension float64) SalaryTax {
	if gross < 0 {
		gross = 0
	}
	if employeePension < 0 {
		employeePension = 0
	}
	taxable := max(0, gross-employeePension)
	it := c.IncomeTax(taxable)
	ni := c.NationalInsurance(gross)
	return SalaryTax{
		IncomeTax:         it,
		NationalInsurance: ni,
		Net:               gross - it - ni - employeePension,
	}
}

// GIAWithdrawal is the result of selling out of a general investment
// account: the realized-gain fraction above the remaining annual allowance
// is taxed at the flat CGT rate; principal is untaxed.
type GIAWithdrawal struct {
	Gross              float64
	GainsRealized      float64
	AllowanceUsed      float64
	Tax                float64
	Net                float64
	AllowanceRemaining float64
}

// WithdrawGIAForNet solves for the gross sale that nets targetNet after CGT,
// capped at the balance. Below the allowance net equals gross; above it the
// flat rate applies only to the realized-gain fraction, so the gross-up is a
// single linear solve.
func (c *Calculator) WithdrawGIAForNet(targetNet, balance, costBasis, allowanceRemaining float64) GIAWithdrawal {
	allowanceRemaining = max(0, allowanceRemaining)
	if targetNet <= 0 || balance <= 0 {
		return GIAWithdrawal{AllowanceRemaining: allowanceRemaining}
	}
	ratio := max(0, balance-max(0, costBasis)) / balance
	gross := targetNet
	if ratio > 0 && gross*ratio > allowanceRemaining {
		gross = (targetNet - c.bands.CGTRate*allowanceRemaining) / (1 - c.bands.CGTRate*ratio)
	}
	return c.WithdrawGIA(min(gross, balance), balance, costBasis, allowanceRemaining)
}

// WithdrawGIA computes tax on a GIA withdrawal, given the account's current
// balance and cost basis plus the CGT allowance still unused this year.
func (c *Calculator) WithdrawGIA(requested, balance, costBasis, allowanceRemaining float64) GIAWithdrawal {
	allowanceRemaining = max(0, allowanceRemaining)
	if requested <= 0 || balance <= 0 {
		return GIAWithdrawal{AllowanceRemaining: allowanceRemaining}
	}

	gross := min(balance, requested)
	totalGains := max(0, balance-max(0, costBasis))
	gainsRatio := 0.0
	if balance > 0 {
		gainsRatio = totalGains / balance
	}
	gainsRealized := gross * gainsRatio

	allowanceUsed := min(allowanceRemaining, gainsRealized)
	taxableGains := max(0, gainsRealized-allowanceUsed)
	tax := taxableGains * c.bands.CGTRate

	return GIAWithdrawal{
		Gross:              gross,
		GainsRealized:      gainsRealized,
		AllowanceUsed:      allowanceUsed,
		Tax:                tax,
		Net:                gross - tax,
		AllowanceRemaining: allowanceRemaining - allowanceUsed,
	}
}
