package engine

import (
	"math"
	"sort"
)

// metricKind distinguishes the two aggregation modes: numeric metrics are
// reduced to a percentile across paths; flag metrics are reported as the
// percentage of paths where the flag was true.
type metricKind int

const (
	metricPercentile metricKind = iota
	metricRate
)

type metricDef struct {
	name  string
	kind  metricKind
	value func(*YearRecord) float64
}

// metricTable maps every reported metric to a record accessor, so one
// aggregation routine serves all fields instead of per-field code.
var metricTable = []metricDef{
	{"net_worth", metricPercentile, func(r *YearRecord) float64 { return r.NetWorth }},
	{"salary_gross", metricPercentile, func(r *YearRecord) float64 { return r.SalaryGross }},
	{"salary_net", metricPercentile, func(r *YearRecord) float64 { return r.SalaryNet }},
	{"rental_income", metricPercentile, func(r *YearRecord) float64 { return r.RentalIncome }},
	{"gift_income", metricPercentile, func(r *YearRecord) float64 { return r.GiftIncome }},
	{"pension_income", metricPercentile, func(r *YearRecord) float64 { return r.PensionIncome }},
	{"state_pension_income", metricPercentile, func(r *YearRecord) float64 { return r.StatePensionIncome }},
	{"investment_returns", metricPercentile, func(r *YearRecord) float64 { return r.InvestmentReturns }},
	{"total_income", metricPercentile, func(r *YearRecord) float64 { return r.TotalIncome }},
	{"total_expenses", metricPercentile, func(r *YearRecord) float64 { return r.TotalExpenses }},
	{"mortgage_payment", metricPercentile, func(r *YearRecord) float64 { return r.MortgagePayment }},
	{"discretionary_spend", metricPercentile, func(r *YearRecord) float64 { return r.DiscretionarySpend }},
	{"pension_contributions", metricPercentile, func(r *YearRecord) float64 { return r.PensionContributions }},
	{"investment_contributions", metricPercentile, func(r *YearRecord) float64 { return r.InvestContributions }},
	{"withdrawals", metricPercentile, func(r *YearRecord) float64 { return r.Withdrawals }},
	{"income_tax_paid", metricPercentile, func(r *YearRecord) float64 { return r.IncomeTaxPaid }},
	{"ni_paid", metricPercentile, func(r *YearRecord) float64 { return r.NIPaid }},
	{"cgt_paid", metricPercentile, func(r *YearRecord) float64 { return r.CGTPaid }},
	{"total_tax", metricPercentile, func(r *YearRecord) float64 { return r.TotalTax }},
	{"cash_balance", metricPercentile, func(r *YearRecord) float64 { return r.CashBalance }},
	{"isa_balance", metricPercentile, func(r *YearRecord) float64 { return r.ISABalance }},
	{"gia_balance", metricPercentile, func(r *YearRecord) float64 { return r.GIABalance }},
	{"pension_balance", metricPercentile, func(r *YearRecord) float64 { return r.PensionBalance }},
	{"total_assets", metricPercentile, func(r *YearRecord) float64 { return r.TotalAssets }},
	{"mortgage_balance", metricPercentile, func(r *YearRecord) float64 { return r.MortgageBalance }},
	{"total_liabilities", metricPercentile, func(r *YearRecord) float64 { return r.TotalLiabilities }},
	{"mortgage_paid_off", metricRate, func(r *YearRecord) float64 { return boolToFloat(r.MortgagePaidOff) }},
	{"is_depleted", metricRate, func(r *YearRecord) float64 { return boolToFloat(r.Depleted) }},
}

// AggregatedResult is what the caller gets back: one series per metric at
// the requested percentile, fixed p10/p90 net-worth bands, flag rates, and
// the scenario echo fields clients need for nominal/real conversion.
type AggregatedResult struct {
	Years      []int `json:"years"`
	Percentile int   `json:"percentile"`

	Series map[string][]float64 `json:"series"`

	NetWorthP10 []float64 `json:"net_worth_p10"`
	NetWorthP90 []float64 `json:"net_worth_p90"`

	RetirementYears []int   `json:"retirement_years"`
	InflationRate   float64 `json:"inflation_rate"`
	StartYear       int     `json:"start_year"`
}

// Aggregate reduces the raw matrix to the reported bands. Percentiles use
// the nearest-rank rule: rank = ceil(p*n/100), clamped to [1, n], over the
// ascending-sorted sample.
func Aggregate(m *Matrix, s *Scenario, policy PolicyParams) *AggregatedResult {
	nYears := len(m.Years)
	out := &AggregatedResult{
		Years:           m.Years,
		Percentile:      policy.Percentile,
		Series:          make(map[string][]float64, len(metricTable)),
		NetWorthP10:     make([]float64, nYears),
		NetWorthP90:     make([]float64, nYears),
		RetirementYears: retirementYears(s, policy),
		InflationRate:   s.Assumptions.InflationRate,
		StartYear:       s.Assumptions.StartYear,
	}

	sample := make([]float64, len(m.Records))
	for _, def := range metricTable {
		series := make([]float64, nYears)
		for y := 0; y < nYears; y++ {
			for p := range m.Records {
				sample[p] = def.value(&m.Records[p][y])
			}
			switch def.kind {
			case metricRate:
				series[y] = rate(sample)
			default:
				sort.Float64s(sample)
				series[y] = percentileNearestRank(sample, policy.Percentile)
				if def.name == "net_worth" {
					out.NetWorthP10[y] = percentileNearestRank(sample, 10)
					out.NetWorthP90[y] = percentileNearestRank(sample, 90)
				}
			}
		}
		out.Series[def.name] = series
	}
	return out
}

// percentileNearestRank picks the value at rank ceil(p*n/100) of the
// ascending-sorted sample (1-based), clamped to the sample bounds.
func percentileNearestRank(sorted []float64, p int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p) * float64(n) / 100))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// rate is the percentage of paths where the flag was set.
func rate(sample []float64) float64 {
	if len(sample) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range sample {
		sum += v
	}
	return sum / float64(len(sample)) * 100
}

func retirementYears(s *Scenario, policy PolicyParams) []int {
	seen := make(map[int]bool)
	years := make([]int, 0, len(s.People))
	for _, p := range s.People {
		y := p.BirthYear + max(0, p.RetirementAge+policy.RetirementAgeOffset)
		if !seen[y] {
			seen[y] = true
			years = append(years, y)
		}
	}
	sort.Ints(years)
	return years
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
