package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"wealthpath-backend/internal/domain"
	"wealthpath-backend/internal/scenarios"
	"wealthpath-backend/internal/session"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupSimulationTest(t *testing.T) (*Handlers, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Scenario{}, &domain.Person{}, &domain.Income{},
		&domain.Asset{}, &domain.Mortgage{}, &domain.Expense{},
	))

	sessions := session.NewStore(30 * time.Minute)
	scenarioService := &scenarios.Service{DB: db, Sessions: sessions}
	svc := &Service{
		Scenarios:         scenarioService,
		Sessions:          sessions,
		DefaultIterations: 16,
		MaxIterations:     256,
	}
	return &Handlers{Service: svc}, db
}

func newSimulationApp(h *Handlers) *fiber.App {
	app := fiber.New()
	app.Post("/api/v1/simulation/run", h.Run)
	app.Post("/api/v1/simulation/init", h.Init)
	app.Post("/api/v1/simulation/recalc", h.Recalc)
	app.Delete("/api/v1/simulation/sessions/:session_id", h.DeleteSession)
	return app
}

// seedScenario stores a small deterministic household: ten years, fixed
// growth, one earner.
func seedScenario(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	thisYear := time.Now().Year()
	assumptions, err := json.Marshal(map[string]interface{}{
		"start_year":         thisYear,
		"end_year":           thisYear + 9,
		"equity_return_mean": 0,
		"equity_return_std":  0,
	})
	require.NoError(t, err)

	scenario := &domain.Scenario{
		Name:        "test household",
		Assumptions: datatypes.JSON(assumptions),
	}
	require.NoError(t, db.Create(scenario).Error)

	person := &domain.Person{
		ScenarioID: scenario.ScenarioID, Label: "you",
		BirthYear: thisYear - 45, RetirementAge: 50, StatePensionAge: 67,
	}
	require.NoError(t, db.Create(person).Error)
	require.NoError(t, db.Create(&domain.Income{
		ScenarioID: scenario.ScenarioID, PersonID: &person.PersonID,
		Kind: "salary", GrossAnnual: 55_000,
	}).Error)
	require.NoError(t, db.Create(&domain.Asset{
		ScenarioID: scenario.ScenarioID, Name: "ISA", Type: "ISA",
		Balance: 40_000, GrowthMean: 0.04, WithdrawalPriority: 1,
	}).Error)
	require.NoError(t, db.Create(&domain.Asset{
		ScenarioID: scenario.ScenarioID, Name: "Cash", Type: "CASH",
	}).Error)
	return scenario.ScenarioID
}

func simRequest(t *testing.T, app *fiber.App, method, url string, body interface{}) (map[string]interface{}, int) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	var out map[string]interface{}
	_ = json.Unmarshal(raw, &out)
	return out, resp.StatusCode
}

func TestRun_ReturnsAggregatedSeries(t *testing.T) {
	h, db := setupSimulationTest(t)
	app := newSimulationApp(h)
	scenarioID := seedScenario(t, db)

	out, status := simRequest(t, app, "POST", "/api/v1/simulation/run", map[string]interface{}{
		"scenario_id": scenarioID.String(),
		"iterations":  8,
		"seed":        42,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "success", out["status"])

	data := out["data"].(map[string]interface{})
	series := data["series"].(map[string]interface{})
	netWorth := series["net_worth"].([]interface{})
	assert.Len(t, netWorth, 10)
	assert.Len(t, data["years"], 10)
	assert.Equal(t, float64(50), data["percentile"])

	meta := out["metadata"].(map[string]interface{})
	assert.Equal(t, float64(8), meta["iterations"])
	assert.Equal(t, float64(42), meta["seed"])
}

func TestRun_InvalidAndUnknownScenario(t *testing.T) {
	h, _ := setupSimulationTest(t)
	app := newSimulationApp(h)

	_, status := simRequest(t, app, "POST", "/api/v1/simulation/run", map[string]interface{}{
		"scenario_id": "not-a-uuid",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, status = simRequest(t, app, "POST", "/api/v1/simulation/run", map[string]interface{}{
		"scenario_id": uuid.New().String(),
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRun_IterationsOverCapRejected(t *testing.T) {
	h, db := setupSimulationTest(t)
	app := newSimulationApp(h)
	scenarioID := seedScenario(t, db)

	out, status := simRequest(t, app, "POST", "/api/v1/simulation/run", map[string]interface{}{
		"scenario_id": scenarioID.String(),
		"iterations":  100_000,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "error", out["status"])
}

func TestInitRecalcDeleteFlow(t *testing.T) {
	h, db := setupSimulationTest(t)
	app := newSimulationApp(h)
	scenarioID := seedScenario(t, db)

	out, status := simRequest(t, app, "POST", "/api/v1/simulation/init", map[string]interface{}{
		"scenario_id": scenarioID.String(),
		"iterations":  16,
		"seed":        7,
	})
	require.Equal(t, fiber.StatusCreated, status)
	sessionID := out["metadata"].(map[string]interface{})["session_id"].(string)
	require.NotEmpty(t, sessionID)

	// Recalc with a changed spend target succeeds against the cached draws.
	out, status = simRequest(t, app, "POST", "/api/v1/simulation/recalc", map[string]interface{}{
		"session_id": sessionID,
		"params":     map[string]interface{}{"annual_spend_target": 20_000},
	})
	require.Equal(t, fiber.StatusOK, status)
	data := out["data"].(map[string]interface{})
	assert.Len(t, data["series"].(map[string]interface{})["discretionary_spend"], 10)

	// Unknown session is a 404.
	_, status = simRequest(t, app, "POST", "/api/v1/simulation/recalc", map[string]interface{}{
		"session_id": uuid.New().String(),
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	// Teardown, then the session is gone.
	_, status = simRequest(t, app, "DELETE", "/api/v1/simulation/sessions/"+sessionID, nil)
	require.Equal(t, fiber.StatusOK, status)
	_, status = simRequest(t, app, "POST", "/api/v1/simulation/recalc", map[string]interface{}{
		"session_id": sessionID,
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestScenarioEditInvalidatesSession(t *testing.T) {
	h, db := setupSimulationTest(t)
	app := newSimulationApp(h)
	scenarioID := seedScenario(t, db)

	out, status := simRequest(t, app, "POST", "/api/v1/simulation/init", map[string]interface{}{
		"scenario_id": scenarioID.String(),
		"seed":        7,
	})
	require.Equal(t, fiber.StatusCreated, status)
	sessionID := out["metadata"].(map[string]interface{})["session_id"].(string)

	// Editing the scenario through the scenarios service drops the session.
	name := "edited"
	_, err := h.Service.Scenarios.UpdateScenario(context.Background(), scenarios.UpdateScenarioInput{
		ScenarioID: scenarioID,
		Name:       &name,
	})
	require.NoError(t, err)

	_, status = simRequest(t, app, "POST", "/api/v1/simulation/recalc", map[string]interface{}{
		"session_id": sessionID,
	})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestResolve_AppliesAssumptionOverridesAndDefaults(t *testing.T) {
	_, db := setupSimulationTest(t)
	scenarioID := seedScenario(t, db)

	scenarioService := &scenarios.Service{DB: db}
	stored, err := scenarioService.GetScenarioByID(context.Background(), scenarioID)
	require.NoError(t, err)

	resolved, err := Resolve(stored)
	require.NoError(t, err)

	thisYear := time.Now().Year()
	assert.Equal(t, thisYear, resolved.Assumptions.StartYear)
	assert.Equal(t, thisYear+9, resolved.Assumptions.EndYear)
	assert.Equal(t, 0.0, resolved.Assumptions.EquityReturnMean)
	// Keys absent from the document keep engine defaults.
	assert.Equal(t, 20_000.0, resolved.Assumptions.ISAAnnualLimit)
	assert.Equal(t, 55, resolved.Assumptions.PensionAccessAge)
	assert.Equal(t, 12_570.0, resolved.Assumptions.Tax.PersonalAllowance)

	require.Len(t, resolved.People, 1)
	require.Len(t, resolved.Incomes, 1)
	require.Len(t, resolved.Assets, 2)
	assert.Equal(t, resolved.People[0].ID, resolved.Incomes[0].PersonID)
}

func TestUpdateScenario_ReplaceMortgage(t *testing.T) {
	_, db := setupSimulationTest(t)
	scenarioID := seedScenario(t, db)
	require.NoError(t, db.Create(&domain.Mortgage{
		ScenarioID: scenarioID, Balance: 180_000, AnnualRate: 0.04, MonthlyPayment: 950,
	}).Error)

	scenarioService := &scenarios.Service{DB: db}
	stored, err := scenarioService.GetScenarioByID(context.Background(), scenarioID)
	require.NoError(t, err)

	resolved, err := Resolve(stored)
	require.NoError(t, err)
	require.NotNil(t, resolved.Mortgage)
	assert.Equal(t, 180_000.0, resolved.Mortgage.Balance)
}
