package simulation

import (
	"errors"
	"strings"

	"wealthpath-backend/internal/engine"
	"wealthpath-backend/internal/pkg/response"
	"wealthpath-backend/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Handlers bundles simulation handlers.
type Handlers struct {
	Service *Service
}

type policyRequest struct {
	AnnualSpendTarget   *float64 `json:"annual_spend_target"`
	RetirementAgeOffset *int     `json:"retirement_age_offset"`
	Percentile          *int     `json:"percentile"`
}

func (p policyRequest) params() engine.PolicyParams {
	return engine.PolicyParams{}.Merge(p.overrides())
}

func (p policyRequest) overrides() engine.PolicyOverrides {
	return engine.PolicyOverrides{
		AnnualSpendTarget:   p.AnnualSpendTarget,
		RetirementAgeOffset: p.RetirementAgeOffset,
		Percentile:          p.Percentile,
	}
}

type runRequest struct {
	ScenarioID string        `json:"scenario_id"`
	Iterations int           `json:"iterations"`
	Seed       uint64        `json:"seed"`
	Params     policyRequest `json:"params"`
}

func (r runRequest) input() (RunInput, error) {
	scenarioID, err := uuid.Parse(r.ScenarioID)
	if err != nil {
		return RunInput{}, err
	}
	return RunInput{
		ScenarioID: scenarioID,
		Iterations: r.Iterations,
		Seed:       r.Seed,
		Params:     r.Params.params(),
	}, nil
}

func simulationError(c *fiber.Ctx, err error) error {
	var cfgErr *engine.ConfigError
	switch {
	case errors.As(err, &cfgErr):
		return response.Error(c, "Invalid scenario configuration", 400, fiber.Map{
			"field":  cfgErr.Field,
			"reason": cfgErr.Reason,
		})
	case err.Error() == "Scenario not found":
		return response.Error(c, err.Error(), 404, nil)
	case strings.HasPrefix(err.Error(), "iterations must be"):
		return response.Error(c, err.Error(), 400, nil)
	case errors.Is(err, session.ErrNotFound):
		return response.Error(c, "Session not found or expired", 404, nil)
	default:
		return response.Error(c, "Internal Server Error", 500, nil)
	}
}

// Run POST /api/v1/simulation/run
func (h *Handlers) Run(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	in, err := req.input()
	if err != nil {
		return response.Error(c, "Invalid scenario ID format (must be a valid UUID)", 400, nil)
	}

	result, err := h.Service.Run(c.Context(), in)
	if err != nil {
		return simulationError(c, err)
	}
	return response.Success(c, "Simulation completed successfully", result, fiber.Map{
		"iterations": in.Iterations,
		"seed":       in.Seed,
	})
}

// Init POST /api/v1/simulation/init
func (h *Handlers) Init(c *fiber.Ctx) error {
	var req runRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", 400, nil)
	}
	in, err := req.input()
	if err != nil {
		return response.Error(c, "Invalid scenario ID format (must be a valid UUID)", 400, nil)
	}

	sessionID, result, err := h.Service.Init(c.Context(), in)
	if err != nil {
		return simulationError(c, err)
	}
	return response.SuccessCreated(c, "Simulation session created", result, fiber.Map{
		"session_id": sessionID,
		"iterations": in.Iterations,
		"seed":       in.Seed,
	})
}

type recalcRequest struct {
	SessionID string        `json:"session_id"`
	Params    policyRequest `json:"params"`
}

// Recalc POST /api/v1/simulation/recalc
func (h *Handlers) Recalc(c *fiber.Ctx) error {
	var req recalcRequest
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return response.Error(c, "session_id is required", 400, nil)
	}

	result, err := h.Service.Recalc(c.Context(), req.SessionID, req.Params.overrides())
	if err != nil {
		return simulationError(c, err)
	}
	return response.Success(c, "Simulation recalculated successfully", result, fiber.Map{
		"session_id": req.SessionID,
	})
}

// DeleteSession DELETE /api/v1/simulation/sessions/:session_id
func (h *Handlers) DeleteSession(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return response.Error(c, "session_id is required", 400, nil)
	}
	h.Service.Sessions.Delete(sessionID)
	return response.Success(c, "Session deleted successfully", fiber.Map{"session_id": sessionID}, nil)
}
