package engine

import (
	"math"

	"wealthpath-backend/internal/engine/tax"
)

// YearRecord captures every flow and balance for one year of one path. It
// is immutable once produced.
type YearRecord struct {
	Year int `json:"year"`

	SalaryGross        float64 `json:"salary_gross"`
	SalaryNet          float64 `json:"salary_net"`
	RentalIncome       float64 `json:"rental_income"`
	GiftIncome         float64 `json:"gift_income"`
	PensionIncome      float64 `json:"pension_income"`
	StatePensionIncome float64 `json:"state_pension_income"`
	InvestmentReturns  float64 `json:"investment_returns"`
	TotalIncome        float64 `json:"total_income"`

	TotalExpenses        float64 `json:"total_expenses"`
	MortgagePayment      float64 `json:"mortgage_payment"`
	DiscretionarySpend   float64 `json:"discretionary_spend"`
	PensionContributions float64 `json:"pension_contributions"`
	InvestContributions  float64 `json:"investment_contributions"`
	Withdrawals          float64 `json:"withdrawals"`

	IncomeTaxPaid float64 `json:"income_tax_paid"`
	NIPaid        float64 `json:"ni_paid"`
	CGTPaid       float64 `json:"cgt_paid"`
	TotalTax      float64 `json:"total_tax"`

	CashBalance      float64 `json:"cash_balance"`
	ISABalance       float64 `json:"isa_balance"`
	GIABalance       float64 `json:"gia_balance"`
	PensionBalance   float64 `json:"pension_balance"`
	TotalAssets      float64 `json:"total_assets"`
	MortgageBalance  float64 `json:"mortgage_balance"`
	TotalLiabilities float64 `json:"total_liabilities"`
	NetWorth         float64 `json:"net_worth"`

	MortgagePaidOff bool `json:"mortgage_paid_off"`
	Depleted        bool `json:"is_depleted"`
}

// pathState is the mutable household state threaded through one path's
// year steps. Nominal amounts that compound per active year (income growth)
// live here; inflation-linked amounts are derived from elapsed years.
type pathState struct {
	balances  []float64 // asset-id order, parallel to Scenario.Assets
	costBases []float64
	mortgage  float64
	incomes   []float64 // grown gross per income source

	retirementAges []int // effective, after policy offset
	order          []int // withdrawal order, fixed per path
}

func newPathState(s *Scenario, policy PolicyParams) *pathState {
	st := &pathState{
		balances:       make([]float64, len(s.Assets)),
		costBases:      make([]float64, len(s.Assets)),
		incomes:        make([]float64, len(s.Incomes)),
		retirementAges: make([]int, len(s.People)),
		order:          s.withdrawalOrder(),
	}
	for i, a := range s.Assets {
		st.balances[i] = a.Balance
		st.costBases[i] = a.CostBasis
	}
	if s.Mortgage != nil {
		st.mortgage = s.Mortgage.Balance
	}
	for i, inc := range s.Incomes {
		st.incomes[i] = inc.GrossAnnual
	}
	for i, p := range s.People {
		st.retirementAges[i] = max(0, p.RetirementAge+policy.RetirementAgeOffset)
	}
	return st
}

func (st *pathState) retired(s *Scenario, personIdx, year int) bool {
	return s.People[personIdx].AgeIn(year) >= st.retirementAges[personIdx]
}

func (st *pathState) allRetired(s *Scenario, year int) bool {
	for i := range s.People {
		if !st.retired(s, i, year) {
			return false
		}
	}
	return true
}

// pensionEligible reports whether a pension asset may be drawn on in year.
// A household-level pension (no owner) is accessible once any person has
// reached the access age.
func (st *pathState) pensionEligible(s *Scenario, asset *Asset, year int) bool {
	access := s.Assumptions.PensionAccessAge
	if asset.PersonID == "" {
		for _, p := range s.People {
			if p.AgeIn(year) >= access {
				return true
			}
		}
		return false
	}
	for _, p := range s.People {
		if p.ID == asset.PersonID {
			return p.AgeIn(year) >= access
		}
	}
	return false
}

// pensionAssetFor finds the deposit target for a person's salary pension
// contributions: their own pension first, then a household pension, then
// any pension.
func pensionAssetFor(s *Scenario, personID string) int {
	household := -1
	first := -1
	for i, a := range s.Assets {
		if a.Type != AssetPension {
			continue
		}
		if a.PersonID == personID {
			return i
		}
		if a.PersonID == "" && household < 0 {
			household = i
		}
		if first < 0 {
			first = i
		}
	}
	if household >= 0 {
		return household
	}
	return first
}

// stepMortgage amortizes twelve monthly sub-steps and returns the new
// balance and the total payment made.
func stepMortgage(balance, annualRate, monthlyPayment float64) (float64, float64) {
	if balance <= 0 {
		return 0, 0
	}
	monthlyRate := annualRate / 12
	paid := 0.0
	for m := 0; m < 12 && balance > 0; m++ {
		interest := balance * monthlyRate
		payment := min(monthlyPayment, balance+interest)
		paid += payment
		balance = max(0, balance+interest-payment)
	}
	return balance, paid
}

// stepYear advances the household one year. The step order is a policy
// contract and must be preserved bit-for-bit for reproducibility:
// retirement status, salary, rental, gift, state pension, mortgage and
// expenses, outflow netting, shortfall withdrawal, surplus investment,
// growth.
func stepYear(s *Scenario, policy PolicyParams, calc *tax.Calculator, st *pathState, draws *DrawTable, path, yearIdx int) (YearRecord, error) {
	a := s.Assumptions
	year := a.StartYear + yearIdx
	cashIdx := s.cashIndex()
	rec := YearRecord{Year: year}

	// 1-2. Salary for non-retired people, pension contributions pre-tax.
	salaryGross := 0.0
	employeePension := 0.0
	employerPension := 0.0
	for i := range s.Incomes {
		inc := &s.Incomes[i]
		if inc.Kind != IncomeSalary || !inc.activeIn(year) {
			continue
		}
		// Salary stops at the owner's retirement regardless of end year; a
		// household-level salary stops when everyone is retired.
		if idx := personIndex(s, inc.PersonID); idx >= 0 {
			if st.retired(s, idx, year) {
				continue
			}
		} else if st.allRetired(s, year) {
			continue
		}
		gross := st.incomes[i]
		salaryGross += gross
		ee := gross * inc.EmployeePensionPct
		er := gross * inc.EmployerPensionPct
		employeePension += ee
		employerPension += er
		if pi := pensionAssetFor(s, inc.PersonID); pi >= 0 {
			st.balances[pi] += ee + er
		}
		st.incomes[i] = gross * (1 + inc.GrowthRate)
	}
	salaryTax := calc.Salary(salaryGross, employeePension)
	taxableSalary := max(0, salaryGross-employeePension)

	// 3. Rental income: income tax only, stacked on salary, no NI.
	rentalGross := 0.0
	// 4. Gift income: untaxed.
	giftIncome := 0.0
	for i := range s.Incomes {
		inc := &s.Incomes[i]
		if !inc.activeIn(year) {
			continue
		}
		switch inc.Kind {
		case IncomeRental:
			rentalGross += st.incomes[i]
			st.incomes[i] *= 1 + inc.GrowthRate
		case IncomeGift:
			giftIncome += st.incomes[i]
			st.incomes[i] *= 1 + inc.GrowthRate
		}
	}
	rentalTax := calc.MarginalIncomeTax(rentalGross, taxableSalary)
	rentalNet := rentalGross - rentalTax

	// 5. State pension for people past state-pension age, inflation-linked.
	statePension := 0.0
	statePensionNow := a.StatePensionAnnual * math.Pow(1+a.InflationRate, float64(yearIdx))
	for _, p := range s.People {
		if p.AgeIn(year) >= p.StatePensionAge {
			statePension += statePensionNow
		}
	}

	// 6. Mortgage, then expenses with inflation from scenario start.
	mortgagePayment := 0.0
	if s.Mortgage != nil && st.mortgage > 0 {
		st.mortgage, mortgagePayment = stepMortgage(st.mortgage, s.Mortgage.AnnualRate, s.Mortgage.MonthlyPayment)
	}
	inflator := math.Pow(1+a.InflationRate, float64(yearIdx))
	expenses := 0.0
	for _, e := range s.Expenses {
		if !e.activeIn(year) {
			continue
		}
		annual := e.MonthlyAmount * 12
		if e.InflationLinked {
			annual *= inflator
		}
		expenses += annual
	}

	// 7. Net cash for the year. The discretionary spend target applies only
	// once everyone is retired.
	discretionary := 0.0
	if policy.AnnualSpendTarget > 0 && st.allRetired(s, year) {
		discretionary = policy.AnnualSpendTarget
	}
	outflow := expenses + mortgagePayment + discretionary
	netIncome := salaryTax.Net + rentalNet + giftIncome + statePension
	st.balances[cashIdx] += netIncome - outflow

	// 8. Cover a shortfall from assets in withdrawal-priority order.
	// Pension pots are skipped while the owner is under the access age.
	pensionIncome := 0.0
	pensionTax := 0.0
	cgtPaid := 0.0
	withdrawalsNet := 0.0
	depleted := false
	otherTaxable := taxableSalary + rentalGross + statePension
	cgtAllowance := a.Tax.CGTAnnualAllowance

	if st.balances[cashIdx] < 0 {
		shortfall := -st.balances[cashIdx]
		for _, ai := range st.order {
			if shortfall <= 0 {
				break
			}
			asset := &s.Assets[ai]
			if st.balances[ai] <= 0 {
				continue
			}
			switch asset.Type {
			case AssetPension:
				if !st.pensionEligible(s, asset, year) {
					continue
				}
				dd := calc.PensionDrawdown(shortfall, otherTaxable, st.balances[ai])
				st.balances[ai] -= dd.Gross
				st.balances[cashIdx] += dd.Net
				shortfall -= dd.Net
				otherTaxable += dd.Taxable
				pensionIncome += dd.Net
				pensionTax += dd.Tax
				withdrawalsNet += dd.Net
			case AssetGIA:
				w := calc.WithdrawGIAForNet(shortfall, st.balances[ai], st.costBases[ai], cgtAllowance)
				if st.balances[ai] > 0 && st.costBases[ai] > 0 {
					st.costBases[ai] = max(0, st.costBases[ai]*(1-w.Gross/st.balances[ai]))
				}
				st.balances[ai] -= w.Gross
				st.balances[cashIdx] += w.Net
				shortfall -= w.Net
				cgtAllowance = w.AllowanceRemaining
				cgtPaid += w.Tax
				withdrawalsNet += w.Net
			default: // ISA and anything else untaxed
				gross := min(st.balances[ai], shortfall)
				st.balances[ai] -= gross
				st.balances[cashIdx] += gross
				shortfall -= gross
				withdrawalsNet += gross
			}
		}
		// A shortfall beyond all accessible assets is a depletion event:
		// valid data, never an error, and never a negative balance.
		if st.balances[cashIdx] < -1e-6 {
			depleted = true
		}
		if st.balances[cashIdx] < 0 {
			st.balances[cashIdx] = 0
		}
	}

	// 9. Sweep surplus above the emergency-fund target into ISA, then GIA.
	emergencyTarget := outflow / 12 * a.EmergencyFundMonths
	contributions := 0.0
	investable := st.balances[cashIdx] - emergencyTarget
	if investable > 0 {
		isaRemaining := a.ISAAnnualLimit
		for _, typ := range []AssetType{AssetISA, AssetGIA} {
			for ai := range s.Assets {
				asset := &s.Assets[ai]
				if asset.Type != typ || investable <= 0 {
					continue
				}
				if typ == AssetISA && isaRemaining <= 0 {
					continue
				}
				if asset.StopContribsAtRetire && contributionsStopped(s, st, asset, year) {
					continue
				}
				amount := investable
				if asset.ContributionCap > 0 {
					amount = min(amount, asset.ContributionCap)
				}
				if typ == AssetISA {
					amount = min(amount, isaRemaining)
					isaRemaining -= amount
				}
				if amount <= 0 {
					continue
				}
				st.balances[ai] += amount
				st.costBases[ai] += amount
				st.balances[cashIdx] -= amount
				investable -= amount
				contributions += amount
			}
		}
	}

	// 10. Apply growth from the pre-generated draw table; nothing is
	// sampled inside the step.
	investmentReturns := 0.0
	for ai := range s.Assets {
		ret := draws.At(path, yearIdx, ai)
		gain := st.balances[ai] * ret
		st.balances[ai] += gain
		investmentReturns += gain
	}

	// Report.
	for ai := range s.Assets {
		b := st.balances[ai]
		switch s.Assets[ai].Type {
		case AssetCash:
			rec.CashBalance += b
		case AssetISA:
			rec.ISABalance += b
		case AssetGIA:
			rec.GIABalance += b
		case AssetPension:
			rec.PensionBalance += b
		}
		rec.TotalAssets += b
	}
	rec.SalaryGross = salaryGross
	rec.SalaryNet = salaryTax.Net
	rec.RentalIncome = rentalNet
	rec.GiftIncome = giftIncome
	rec.PensionIncome = pensionIncome
	rec.StatePensionIncome = statePension
	rec.InvestmentReturns = investmentReturns
	rec.TotalIncome = salaryTax.Net + rentalNet + giftIncome + statePension + pensionIncome
	rec.TotalExpenses = outflow
	rec.MortgagePayment = mortgagePayment
	rec.DiscretionarySpend = discretionary
	rec.PensionContributions = employeePension + employerPension
	rec.InvestContributions = contributions
	rec.Withdrawals = withdrawalsNet
	rec.IncomeTaxPaid = salaryTax.IncomeTax + rentalTax + pensionTax
	rec.NIPaid = salaryTax.NationalInsurance
	rec.CGTPaid = cgtPaid
	rec.TotalTax = rec.IncomeTaxPaid + rec.NIPaid + rec.CGTPaid
	rec.MortgageBalance = st.mortgage
	rec.TotalLiabilities = st.mortgage
	rec.NetWorth = rec.TotalAssets - rec.TotalLiabilities
	rec.MortgagePaidOff = st.mortgage <= 0
	rec.Depleted = depleted

	if err := rec.checkFinite(path); err != nil {
		return rec, err
	}
	return rec, nil
}

func contributionsStopped(s *Scenario, st *pathState, asset *Asset, year int) bool {
	if asset.PersonID == "" {
		return st.allRetired(s, year)
	}
	if idx := personIndex(s, asset.PersonID); idx >= 0 {
		return st.retired(s, idx, year)
	}
	return false
}

func personIndex(s *Scenario, id string) int {
	if id == "" {
		return -1
	}
	for i, p := range s.People {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *YearRecord) checkFinite(path int) error {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"net_worth", r.NetWorth},
		{"total_assets", r.TotalAssets},
		{"cash_balance", r.CashBalance},
		{"investment_returns", r.InvestmentReturns},
		{"total_income", r.TotalIncome},
		{"total_expenses", r.TotalExpenses},
		{"total_tax", r.TotalTax},
	} {
		if math.IsNaN(v.val) || math.IsInf(v.val, 0) {
			return &NumericError{Path: path, Year: r.Year, Metric: v.name}
		}
	}
	return nil
}
