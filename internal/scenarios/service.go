package scenarios

import (
	"context"
	"errors"
	"fmt"

	"wealthpath-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionInvalidator drops cached simulation sessions for a scenario. Wired
// to the session store so edits cannot serve stale results.
type SessionInvalidator interface {
	InvalidateScenario(scenarioID string) int
}

type Service struct {
	DB       *gorm.DB
	Sessions SessionInvalidator
}

type CreateScenarioInput struct {
	Name        string
	Description string
	Assumptions datatypes.JSON
	People      []domain.Person
	Incomes     []domain.Income
	Assets      []domain.Asset
	Mortgages   []domain.Mortgage
	Expenses    []domain.Expense
}

func (s *Service) CreateScenario(ctx context.Context, in CreateScenarioInput) (*domain.Scenario, error) {
	if in.Name == "" {
		return nil, errors.New("Scenario name is required")
	}
	scenario := &domain.Scenario{
		Name:        in.Name,
		Description: in.Description,
		Assumptions: in.Assumptions,
		People:      in.People,
		Incomes:     in.Incomes,
		Assets:      in.Assets,
		Mortgages:   in.Mortgages,
		Expenses:    in.Expenses,
	}
	if err := s.DB.WithContext(ctx).Create(scenario).Error; err != nil {
		return nil, fmt.Errorf("Failed to create scenario: %v", err)
	}
	return scenario, nil
}

func (s *Service) GetAllScenarios(ctx context.Context) ([]domain.Scenario, error) {
	var scenarios []domain.Scenario
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&scenarios).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch scenarios: %v", err)
	}
	return scenarios, nil
}

func (s *Service) GetScenarioByID(ctx context.Context, scenarioID uuid.UUID) (*domain.Scenario, error) {
	if scenarioID == uuid.Nil {
		return nil, errors.New("scenario_id is required")
	}
	var scenario domain.Scenario
	err := s.DB.WithContext(ctx).
		Preload("People").
		Preload("Incomes").
		Preload("Assets").
		Preload("Mortgages").
		Preload("Expenses").
		Where("scenario_id = ?", scenarioID).
		First(&scenario).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("Scenario not found")
		}
		return nil, err
	}
	return &scenario, nil
}

type UpdateScenarioInput struct {
	ScenarioID  uuid.UUID
	Name        *string
	Description *string
	Assumptions datatypes.JSON
	People      []domain.Person
	Incomes     []domain.Income
	Assets      []domain.Asset
	Mortgages   []domain.Mortgage
	Expenses    []domain.Expense
}

// UpdateScenario replaces the scenario's children wholesale inside one
// transaction; partial child edits are not supported. Cached simulation
// sessions for the scenario are invalidated on success.
func (s *Service) UpdateScenario(ctx context.Context, in UpdateScenarioInput) (*domain.Scenario, error) {
	if in.ScenarioID == uuid.Nil {
		return nil, errors.New("scenario_id is required")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var scenario domain.Scenario
		if err := tx.Where("scenario_id = ?", in.ScenarioID).First(&scenario).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New("Scenario not found")
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if in.Description != nil {
			updates["description"] = *in.Description
		}
		if in.Assumptions != nil {
			updates["assumptions"] = in.Assumptions
		}
		if len(updates) > 0 {
			if err := tx.Model(&scenario).Updates(updates).Error; err != nil {
				return err
			}
		}

		for _, child := range []interface{}{
			&domain.Person{}, &domain.Income{}, &domain.Asset{},
			&domain.Mortgage{}, &domain.Expense{},
		} {
			if err := tx.Where("scenario_id = ?", in.ScenarioID).Delete(child).Error; err != nil {
				return err
			}
		}
		for i := range in.People {
			in.People[i].ScenarioID = in.ScenarioID
		}
		for i := range in.Incomes {
			in.Incomes[i].ScenarioID = in.ScenarioID
		}
		for i := range in.Assets {
			in.Assets[i].ScenarioID = in.ScenarioID
		}
		for i := range in.Mortgages {
			in.Mortgages[i].ScenarioID = in.ScenarioID
		}
		for i := range in.Expenses {
			in.Expenses[i].ScenarioID = in.ScenarioID
		}
		if len(in.People) > 0 {
			if err := tx.Create(&in.People).Error; err != nil {
				return err
			}
		}
		if len(in.Incomes) > 0 {
			if err := tx.Create(&in.Incomes).Error; err != nil {
				return err
			}
		}
		if len(in.Assets) > 0 {
			if err := tx.Create(&in.Assets).Error; err != nil {
				return err
			}
		}
		if len(in.Mortgages) > 0 {
			if err := tx.Create(&in.Mortgages).Error; err != nil {
				return err
			}
		}
		if len(in.Expenses) > 0 {
			if err := tx.Create(&in.Expenses).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Sessions != nil {
		s.Sessions.InvalidateScenario(in.ScenarioID.String())
	}
	return s.GetScenarioByID(ctx, in.ScenarioID)
}

// DeleteScenario removes the scenario and its children, and drops any
// cached simulation sessions built from it.
func (s *Service) DeleteScenario(ctx context.Context, scenarioID uuid.UUID) error {
	if scenarioID == uuid.Nil {
		return errors.New("scenario_id is required")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("scenario_id = ?", scenarioID).Delete(&domain.Scenario{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.New("Scenario not found")
		}
		for _, child := range []interface{}{
			&domain.Person{}, &domain.Income{}, &domain.Asset{},
			&domain.Mortgage{}, &domain.Expense{},
		} {
			if err := tx.Where("scenario_id = ?", scenarioID).Delete(child).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.Sessions != nil {
		s.Sessions.InvalidateScenario(scenarioID.String())
	}
	return nil
}
