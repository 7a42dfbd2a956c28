package scenarios

import (
	"wealthpath-backend/internal/domain"
	"wealthpath-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Handlers bundles scenario handlers.
type Handlers struct {
	Service *Service
}

type scenarioRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Assumptions datatypes.JSON    `json:"assumptions"`
	People      []domain.Person   `json:"people"`
	Incomes     []domain.Income   `json:"incomes"`
	Assets      []domain.Asset    `json:"assets"`
	Mortgages   []domain.Mortgage `json:"mortgages"`
	Expenses    []domain.Expense  `json:"expenses"`
}

// CreateScenario POST /api/v1/scenarios/create-scenario
func (h *Handlers) CreateScenario(c *fiber.Ctx) error {
	var req scenarioRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	if req.Name == "" {
		return response.Error(c, "Scenario name is required", 400, nil)
	}

	scenario, err := h.Service.CreateScenario(c.Context(), CreateScenarioInput{
		Name:        req.Name,
		Description: req.Description,
		Assumptions: req.Assumptions,
		People:      req.People,
		Incomes:     req.Incomes,
		Assets:      req.Assets,
		Mortgages:   req.Mortgages,
		Expenses:    req.Expenses,
	})
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.SuccessCreated(c, "Scenario created successfully", scenario, nil)
}

// GetAllScenarios GET /api/v1/scenarios/get-all-scenarios
func (h *Handlers) GetAllScenarios(c *fiber.Ctx) error {
	scenarios, err := h.Service.GetAllScenarios(c.Context())
	if err != nil {
		return response.Error(c, "Internal Server Error", 500, nil)
	}
	return response.Success(c, "Scenarios fetched successfully", scenarios, nil)
}

// GetScenario GET /api/v1/scenarios/get-scenario/:scenario_id
func (h *Handlers) GetScenario(c *fiber.Ctx) error {
	scenarioID, err := uuid.Parse(c.Params("scenario_id"))
	if err != nil {
		return response.Error(c, "Invalid scenario ID format (must be a valid UUID)", 400, nil)
	}

	scenario, err := h.Service.GetScenarioByID(c.Context(), scenarioID)
	if err != nil {
		switch err.Error() {
		case "Scenario not found":
			return response.Error(c, err.Error(), 404, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Scenario fetched successfully", scenario, nil)
}

// UpdateScenario PUT /api/v1/scenarios/update-scenario/:scenario_id
func (h *Handlers) UpdateScenario(c *fiber.Ctx) error {
	scenarioID, err := uuid.Parse(c.Params("scenario_id"))
	if err != nil {
		return response.Error(c, "Invalid scenario ID format (must be a valid UUID)", 400, nil)
	}
	var req scenarioRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}

	in := UpdateScenarioInput{
		ScenarioID:  scenarioID,
		Assumptions: req.Assumptions,
		People:      req.People,
		Incomes:     req.Incomes,
		Assets:      req.Assets,
		Mortgages:   req.Mortgages,
		Expenses:    req.Expenses,
	}
	if req.Name != "" {
		in.Name = &req.Name
	}
	if req.Description != "" {
		in.Description = &req.Description
	}

	scenario, err := h.Service.UpdateScenario(c.Context(), in)
	if err != nil {
		switch err.Error() {
		case "Scenario not found":
			return response.Error(c, err.Error(), 404, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Scenario updated successfully", scenario, nil)
}

// DeleteScenario DELETE /api/v1/scenarios/delete-scenario/:scenario_id
func (h *Handlers) DeleteScenario(c *fiber.Ctx) error {
	scenarioID, err := uuid.Parse(c.Params("scenario_id"))
	if err != nil {
		return response.Error(c, "Invalid scenario ID format (must be a valid UUID)", 400, nil)
	}

	if err := h.Service.DeleteScenario(c.Context(), scenarioID); err != nil {
		switch err.Error() {
		case "Scenario not found":
			return response.Error(c, err.Error(), 404, nil)
		default:
			return response.Error(c, "Internal Server Error", 500, nil)
		}
	}
	return response.Success(c, "Scenario deleted successfully", fiber.Map{"scenario_id": scenarioID}, nil)
}
