package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wealthpath-backend/internal/domain"
	"wealthpath-backend/internal/engine"
	"wealthpath-backend/internal/engine/tax"
	"wealthpath-backend/internal/scenarios"
	"wealthpath-backend/internal/session"

	"github.com/google/uuid"
)

type Service struct {
	Scenarios *scenarios.Service
	Sessions  *session.Store

	DefaultIterations int
	MaxIterations     int
}

// assumptionsDoc is the JSON shape of domain.Scenario.Assumptions. Every key
// is optional; absent keys keep the engine defaults for the current year.
type assumptionsDoc struct {
	InflationRate       *float64   `json:"inflation_rate"`
	EquityReturnMean    *float64   `json:"equity_return_mean"`
	EquityReturnStd     *float64   `json:"equity_return_std"`
	ISAAnnualLimit      *float64   `json:"isa_annual_limit"`
	StatePensionAnnual  *float64   `json:"state_pension_annual"`
	EmergencyFundMonths *float64   `json:"emergency_fund_months"`
	PensionAccessAge    *int       `json:"pension_access_age"`
	StartYear           *int       `json:"start_year"`
	EndYear             *int       `json:"end_year"`
	Tax                 *tax.Bands `json:"tax"`
}

// Resolve maps a persisted scenario onto the engine's value types. The
// engine re-validates; this only translates shapes.
func Resolve(sc *domain.Scenario) (*engine.Scenario, error) {
	assumptions := engine.DefaultAssumptions(time.Now().Year())
	if len(sc.Assumptions) > 0 {
		var doc assumptionsDoc
		if err := json.Unmarshal(sc.Assumptions, &doc); err != nil {
			return nil, fmt.Errorf("Invalid assumptions document: %v", err)
		}
		if doc.InflationRate != nil {
			assumptions.InflationRate = *doc.InflationRate
		}
		if doc.EquityReturnMean != nil {
			assumptions.EquityReturnMean = *doc.EquityReturnMean
		}
		if doc.EquityReturnStd != nil {
			assumptions.EquityReturnStd = *doc.EquityReturnStd
		}
		if doc.ISAAnnualLimit != nil {
			assumptions.ISAAnnualLimit = *doc.ISAAnnualLimit
		}
		if doc.StatePensionAnnual != nil {
			assumptions.StatePensionAnnual = *doc.StatePensionAnnual
		}
		if doc.EmergencyFundMonths != nil {
			assumptions.EmergencyFundMonths = *doc.EmergencyFundMonths
		}
		if doc.PensionAccessAge != nil {
			assumptions.PensionAccessAge = *doc.PensionAccessAge
		}
		if doc.StartYear != nil {
			assumptions.StartYear = *doc.StartYear
		}
		if doc.EndYear != nil {
			assumptions.EndYear = *doc.EndYear
		}
		if doc.Tax != nil {
			assumptions.Tax = *doc.Tax
		}
	}

	out := &engine.Scenario{Assumptions: assumptions}
	for _, p := range sc.People {
		out.People = append(out.People, engine.Person{
			ID:              p.PersonID.String(),
			Label:           p.Label,
			BirthYear:       p.BirthYear,
			RetirementAge:   p.RetirementAge,
			StatePensionAge: p.StatePensionAge,
		})
	}
	for _, in := range sc.Incomes {
		out.Incomes = append(out.Incomes, engine.Income{
			Kind:               engine.IncomeKind(in.Kind),
			PersonID:           uuidString(in.PersonID),
			GrossAnnual:        in.GrossAnnual,
			GrowthRate:         in.GrowthRate,
			EmployeePensionPct: in.EmployeePensionPct,
			EmployerPensionPct: in.EmployerPensionPct,
			StartYear:          in.StartYear,
			EndYear:            in.EndYear,
		})
	}
	for _, a := range sc.Assets {
		out.Assets = append(out.Assets, engine.Asset{
			ID:                   a.AssetID.String(),
			Name:                 a.Name,
			Type:                 engine.AssetType(a.Type),
			Balance:              a.Balance,
			CostBasis:            a.CostBasis,
			ContributionCap:      a.ContributionCap,
			GrowthMean:           a.GrowthMean,
			GrowthStd:            a.GrowthStd,
			WithdrawalPriority:   a.WithdrawalPriority,
			StopContribsAtRetire: a.StopContribsAtRetire,
			PersonID:             uuidString(a.PersonID),
		})
	}
	if len(sc.Mortgages) > 0 {
		m := sc.Mortgages[0]
		out.Mortgage = &engine.Mortgage{
			Balance:        m.Balance,
			AnnualRate:     m.AnnualRate,
			MonthlyPayment: m.MonthlyPayment,
		}
	}
	for _, e := range sc.Expenses {
		out.Expenses = append(out.Expenses, engine.Expense{
			Name:            e.Name,
			MonthlyAmount:   e.MonthlyAmount,
			StartYear:       e.StartYear,
			EndYear:         e.EndYear,
			InflationLinked: e.InflationLinked,
		})
	}
	return out, nil
}

func uuidString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// RunInput is one simulation request, shared by the one-shot and the
// session-backed endpoints.
type RunInput struct {
	ScenarioID uuid.UUID
	Iterations int
	Seed       uint64
	Params     engine.PolicyParams
}

func (s *Service) prepare(ctx context.Context, in *RunInput) (*engine.Scenario, error) {
	if in.Iterations <= 0 {
		in.Iterations = s.DefaultIterations
	}
	if s.MaxIterations > 0 && in.Iterations > s.MaxIterations {
		return nil, fmt.Errorf("iterations must be <= %d", s.MaxIterations)
	}
	if in.Seed == 0 {
		in.Seed = uint64(time.Now().UnixNano())
	}
	if in.Params.Percentile == 0 {
		in.Params.Percentile = 50
	}

	stored, err := s.Scenarios.GetScenarioByID(ctx, in.ScenarioID)
	if err != nil {
		return nil, err
	}
	return Resolve(stored)
}

// Run executes a one-shot simulation without caching anything.
func (s *Service) Run(ctx context.Context, in RunInput) (*engine.AggregatedResult, error) {
	resolved, err := s.prepare(ctx, &in)
	if err != nil {
		return nil, err
	}
	normalized, err := resolved.Normalize()
	if err != nil {
		return nil, err
	}
	draws, err := engine.GenerateDraws(normalized, in.Iterations, in.Seed)
	if err != nil {
		return nil, err
	}
	matrix, err := engine.Run(ctx, normalized, in.Params, draws)
	if err != nil {
		return nil, err
	}
	return engine.Aggregate(matrix, normalized, in.Params), nil
}

// Init starts a cached session: full simulation now, cheap recalculations
// afterwards against the same random draws.
func (s *Service) Init(ctx context.Context, in RunInput) (string, *engine.AggregatedResult, error) {
	resolved, err := s.prepare(ctx, &in)
	if err != nil {
		return "", nil, err
	}
	return s.Sessions.Create(ctx, in.ScenarioID.String(), resolved, in.Iterations, in.Seed, in.Params)
}

// Recalc re-runs a cached session with partial policy overrides.
func (s *Service) Recalc(ctx context.Context, sessionID string, overrides engine.PolicyOverrides) (*engine.AggregatedResult, error) {
	if sessionID == "" {
		return nil, errors.New("session_id is required")
	}
	return s.Sessions.Recalc(ctx, sessionID, overrides)
}
