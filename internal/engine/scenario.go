package engine

import (
	"math"
	"sort"
	"strconv"

	"wealthpath-backend/internal/engine/tax"
)

// AssetType classifies an account for tax and cash-flow treatment.
type AssetType string

const (
	AssetCash    AssetType = "CASH"
	AssetISA     AssetType = "ISA"
	AssetGIA     AssetType = "GIA"
	AssetPension AssetType = "PENSION"
)

// IncomeKind is the tax treatment of an income source.
type IncomeKind string

const (
	IncomeSalary IncomeKind = "salary"
	IncomeRental IncomeKind = "rental"
	IncomeGift   IncomeKind = "gift"
)

// Person is a household member. Ages are derived from the simulated year.
type Person struct {
	ID              string
	Label           string
	BirthYear       int
	RetirementAge   int
	StatePensionAge int
}

// AgeIn returns the person's age in the given calendar year.
func (p Person) AgeIn(year int) int {
	return year - p.BirthYear
}

// Income is one income source. Salary income is force-terminated at the
// owning person's retirement year regardless of the configured end year.
type Income struct {
	Kind               IncomeKind
	PersonID           string // empty = household-level
	GrossAnnual        float64
	GrowthRate         float64
	EmployeePensionPct float64 // salary only, 0..1
	EmployerPensionPct float64 // salary only, 0..1
	StartYear          int     // 0 = open
	EndYear            int     // 0 = open
}

func (i Income) activeIn(year int) bool {
	if i.StartYear > 0 && year < i.StartYear {
		return false
	}
	if i.EndYear > 0 && year > i.EndYear {
		return false
	}
	return true
}

// Asset is one account. CASH has zero growth by convention and is the
// destination/source of all cash flows; it never appears in the withdrawal
// order.
type Asset struct {
	ID                    string
	Name                  string
	Type                  AssetType
	Balance               float64
	CostBasis             float64 // GIA gain tracking; defaults to Balance
	ContributionCap       float64 // annual, 0 = uncapped
	GrowthMean            float64
	GrowthStd             float64
	WithdrawalPriority    int    // lower value is withdrawn first
	StopContribsAtRetire  bool
	PersonID              string // empty = household-level
}

// Mortgage is amortized monthly; it stops contributing to outflows once the
// balance reaches zero.
type Mortgage struct {
	Balance        float64
	AnnualRate     float64
	MonthlyPayment float64
}

// Expense is a recurring outflow, optionally inflation-linked from the
// scenario start year.
type Expense struct {
	Name            string
	MonthlyAmount   float64
	StartYear       int // 0 = open
	EndYear         int // 0 = open
	InflationLinked bool
}

func (e Expense) activeIn(year int) bool {
	if e.StartYear > 0 && year < e.StartYear {
		return false
	}
	if e.EndYear > 0 && year > e.EndYear {
		return false
	}
	return true
}

// Assumptions are the economic and policy constants of a scenario.
type Assumptions struct {
	InflationRate       float64
	EquityReturnMean    float64 // fallback for assets without explicit growth
	EquityReturnStd     float64
	ISAAnnualLimit      float64 // aggregate across ISA assets
	StatePensionAnnual  float64 // inflation-linked year over year
	EmergencyFundMonths float64
	PensionAccessAge    int
	StartYear           int
	EndYear             int
	Tax                 tax.Bands
}

// DefaultAssumptions mirrors the product defaults (UK, 2024/25 tax year).
func DefaultAssumptions(startYear int) Assumptions {
	return Assumptions{
		InflationRate:       0.02,
		EquityReturnMean:    0.05,
		EquityReturnStd:     0.10,
		ISAAnnualLimit:      20_000,
		StatePensionAnnual:  11_500,
		EmergencyFundMonths: 6,
		PensionAccessAge:    55,
		StartYear:           startYear,
		EndYear:             startYear + 60,
		Tax:                 tax.DefaultBands(),
	}
}

// Scenario is a fully-resolved household. It is immutable during a
// simulation run.
type Scenario struct {
	People      []Person
	Incomes     []Income
	Assets      []Asset
	Mortgage    *Mortgage
	Expenses    []Expense
	Assumptions Assumptions
}

// PolicyParams are the interactive knobs a recalculation may change without
// resampling randomness.
//
// Policy contract: AnnualSpendTarget is EXTRA discretionary spend layered on
// top of the configured expenses, applied only in years where every person
// in the household is retired. RetirementAgeOffset is added to every
// person's planned retirement age (floored at zero). Percentile selects the
// reported series (1-99, default 50).
type PolicyParams struct {
	AnnualSpendTarget   float64
	RetirementAgeOffset int
	Percentile          int
}

// PolicyOverrides is a partial PolicyParams: only non-nil fields override.
type PolicyOverrides struct {
	AnnualSpendTarget   *float64
	RetirementAgeOffset *int
	Percentile          *int
}

// Merge layers the overrides over p and returns the result.
func (p PolicyParams) Merge(o PolicyOverrides) PolicyParams {
	if o.AnnualSpendTarget != nil {
		p.AnnualSpendTarget = *o.AnnualSpendTarget
	}
	if o.RetirementAgeOffset != nil {
		p.RetirementAgeOffset = *o.RetirementAgeOffset
	}
	if o.Percentile != nil {
		p.Percentile = *o.Percentile
	}
	return p
}

func (p PolicyParams) validate() error {
	if p.AnnualSpendTarget < 0 {
		return configErrorf("annual_spend_target", "must be >= 0, got %v", p.AnnualSpendTarget)
	}
	if p.Percentile < 1 || p.Percentile > 99 {
		return configErrorf("percentile", "must be in [1, 99], got %d", p.Percentile)
	}
	return nil
}

// Years returns the simulated calendar years in order.
func (s *Scenario) Years() []int {
	n := s.Assumptions.EndYear - s.Assumptions.StartYear + 1
	years := make([]int, n)
	for i := range years {
		years[i] = s.Assumptions.StartYear + i
	}
	return years
}

// Validate checks the scenario before any simulation runs, reporting the
// offending field.
func (s *Scenario) Validate() error {
	a := s.Assumptions
	if len(s.People) == 0 {
		return configErrorf("people", "scenario must have at least one person")
	}
	if a.EndYear <= a.StartYear {
		return configErrorf("end_year", "must exceed start_year (%d)", a.StartYear)
	}
	if a.InflationRate < -1 {
		return configErrorf("inflation_rate", "must be > -1, got %v", a.InflationRate)
	}
	if a.EquityReturnStd < 0 {
		return configErrorf("equity_return_std", "must be >= 0, got %v", a.EquityReturnStd)
	}
	if a.ISAAnnualLimit < 0 {
		return configErrorf("isa_annual_limit", "must be >= 0, got %v", a.ISAAnnualLimit)
	}
	if a.EmergencyFundMonths < 0 {
		return configErrorf("emergency_fund_months", "must be >= 0, got %v", a.EmergencyFundMonths)
	}
	if err := a.Tax.Validate(); err != nil {
		return &ConfigError{Field: "tax_bands", Reason: err.Error()}
	}
	for _, p := range s.People {
		if p.BirthYear <= 0 {
			return configErrorf("people."+p.Label+".birth_year", "must be positive, got %d", p.BirthYear)
		}
		if p.RetirementAge < 0 {
			return configErrorf("people."+p.Label+".retirement_age", "must be >= 0, got %d", p.RetirementAge)
		}
	}
	seen := make(map[string]bool, len(s.Assets))
	for _, asset := range s.Assets {
		field := "assets." + asset.ID
		if asset.ID == "" {
			return configErrorf("assets", "asset id must not be empty")
		}
		if seen[asset.ID] {
			return configErrorf(field, "duplicate asset id")
		}
		seen[asset.ID] = true
		if asset.GrowthStd < 0 {
			return configErrorf(field+".growth_std", "must be >= 0, got %v", asset.GrowthStd)
		}
		if asset.Balance < 0 {
			return configErrorf(field+".balance", "must be >= 0, got %v", asset.Balance)
		}
		if asset.ContributionCap < 0 {
			return configErrorf(field+".contribution_cap", "must be >= 0, got %v", asset.ContributionCap)
		}
		switch asset.Type {
		case AssetCash, AssetISA, AssetGIA, AssetPension:
		default:
			return configErrorf(field+".type", "unknown asset type %q", asset.Type)
		}
		if math.IsInf(asset.GrowthMean, 0) || math.IsNaN(asset.GrowthMean) {
			return configErrorf(field+".growth_mean", "must be finite")
		}
	}
	for i, inc := range s.Incomes {
		field := "incomes[" + itoa(i) + "]"
		switch inc.Kind {
		case IncomeSalary, IncomeRental, IncomeGift:
		default:
			return configErrorf(field+".kind", "unknown income kind %q", inc.Kind)
		}
		if inc.GrossAnnual < 0 {
			return configErrorf(field+".gross_annual", "must be >= 0, got %v", inc.GrossAnnual)
		}
		if inc.StartYear > 0 && inc.EndYear > 0 && inc.EndYear < inc.StartYear {
			return configErrorf(field+".end_year", "must be >= start_year")
		}
	}
	if s.Mortgage != nil {
		if s.Mortgage.Balance < 0 {
			return configErrorf("mortgage.balance", "must be >= 0, got %v", s.Mortgage.Balance)
		}
		if s.Mortgage.MonthlyPayment < 0 {
			return configErrorf("mortgage.monthly_payment", "must be >= 0, got %v", s.Mortgage.MonthlyPayment)
		}
	}
	for i, e := range s.Expenses {
		if e.MonthlyAmount < 0 {
			return configErrorf("expenses["+itoa(i)+"].monthly_amount", "must be >= 0, got %v", e.MonthlyAmount)
		}
	}
	return nil
}

// Normalize validates and returns a copy prepared for simulation: a CASH
// asset is guaranteed to exist, assets without explicit growth inherit the
// equity fallback, GIA cost bases default to the starting balance and the
// withdrawal order is fixed.
func (s *Scenario) Normalize() (*Scenario, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	out := *s
	out.Assets = make([]Asset, len(s.Assets))
	copy(out.Assets, s.Assets)

	hasCash := false
	for i := range out.Assets {
		a := &out.Assets[i]
		if a.Type == AssetCash {
			hasCash = true
			continue
		}
		if a.GrowthMean == 0 && a.GrowthStd == 0 {
			a.GrowthMean = out.Assumptions.EquityReturnMean
			a.GrowthStd = out.Assumptions.EquityReturnStd
		}
		if a.CostBasis == 0 {
			a.CostBasis = a.Balance
		}
	}
	if !hasCash {
		out.Assets = append(out.Assets, Asset{
			ID:   "cash",
			Name: "Cash",
			Type: AssetCash,
		})
	}
	return &out, nil
}

// cashIndex returns the index of the first CASH asset. Normalize guarantees
// one exists.
func (s *Scenario) cashIndex() int {
	for i, a := range s.Assets {
		if a.Type == AssetCash {
			return i
		}
	}
	return -1
}

// withdrawalOrder is the total order assets are drawn down in to cover a
// shortfall: ascending priority, ties broken by stable asset id, CASH
// excluded. Deterministic for a fixed scenario.
func (s *Scenario) withdrawalOrder() []int {
	order := make([]int, 0, len(s.Assets))
	for i, a := range s.Assets {
		if a.Type != AssetCash {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(x, y int) bool {
		ax, ay := s.Assets[order[x]], s.Assets[order[y]]
		if ax.WithdrawalPriority != ay.WithdrawalPriority {
			return ax.WithdrawalPriority < ay.WithdrawalPriority
		}
		return ax.ID < ay.ID
	})
	return order
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
