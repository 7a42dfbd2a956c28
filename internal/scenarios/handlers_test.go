package scenarios

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"wealthpath-backend/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeInvalidator struct {
	calls []string
}

func (f *fakeInvalidator) InvalidateScenario(scenarioID string) int {
	f.calls = append(f.calls, scenarioID)
	return 1
}

func setupScenariosTest(t *testing.T) (*Handlers, *gorm.DB, *fakeInvalidator) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Scenario{}, &domain.Person{}, &domain.Income{},
		&domain.Asset{}, &domain.Mortgage{}, &domain.Expense{},
	))
	inv := &fakeInvalidator{}
	svc := &Service{DB: db, Sessions: inv}
	return &Handlers{Service: svc}, db, inv
}

func newScenariosApp(h *Handlers) *fiber.App {
	app := fiber.New()
	app.Post("/api/v1/scenarios/create-scenario", h.CreateScenario)
	app.Get("/api/v1/scenarios/get-all-scenarios", h.GetAllScenarios)
	app.Get("/api/v1/scenarios/get-scenario/:scenario_id", h.GetScenario)
	app.Put("/api/v1/scenarios/update-scenario/:scenario_id", h.UpdateScenario)
	app.Delete("/api/v1/scenarios/delete-scenario/:scenario_id", h.DeleteScenario)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}) (map[string]interface{}, int) {
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

func scenarioBody() map[string]interface{} {
	return map[string]interface{}{
		"name":        "Base plan",
		"description": "household baseline",
		"assumptions": map[string]interface{}{"inflation_rate": 0.02, "end_year": 2035},
		"people": []map[string]interface{}{
			{"label": "you", "birth_year": 1985, "retirement_age": 60, "state_pension_age": 67},
		},
		"assets": []map[string]interface{}{
			{"name": "ISA", "type": "ISA", "balance": 40000, "withdrawal_priority": 1},
			{"name": "Cash", "type": "CASH", "balance": 5000},
		},
		"incomes": []map[string]interface{}{
			{"kind": "salary", "gross_annual": 55000},
		},
	}
}

func TestCreateScenario_MissingName(t *testing.T) {
	h, _, _ := setupScenariosTest(t)
	app := newScenariosApp(h)

	out, status := doJSON(t, app, "POST", "/api/v1/scenarios/create-scenario", map[string]interface{}{
		"description": "no name",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "error", out["status"])
}

func TestCreateScenario_PersistsChildren(t *testing.T) {
	h, db, _ := setupScenariosTest(t)
	app := newScenariosApp(h)

	out, status := doJSON(t, app, "POST", "/api/v1/scenarios/create-scenario", scenarioBody())
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "success", out["status"])

	data := out["data"].(map[string]interface{})
	scenarioID := data["scenario_id"].(string)
	assert.NotEqual(t, uuid.Nil.String(), scenarioID)

	var people, assets, incomes int64
	db.Model(&domain.Person{}).Count(&people)
	db.Model(&domain.Asset{}).Count(&assets)
	db.Model(&domain.Income{}).Count(&incomes)
	assert.Equal(t, int64(1), people)
	assert.Equal(t, int64(2), assets)
	assert.Equal(t, int64(1), incomes)
}

func TestGetScenario_InvalidAndMissing(t *testing.T) {
	h, _, _ := setupScenariosTest(t)
	app := newScenariosApp(h)

	_, status := doJSON(t, app, "GET", "/api/v1/scenarios/get-scenario/not-a-uuid", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	_, status = doJSON(t, app, "GET", "/api/v1/scenarios/get-scenario/"+uuid.New().String(), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestGetScenario_ReturnsNestedChildren(t *testing.T) {
	h, _, _ := setupScenariosTest(t)
	app := newScenariosApp(h)

	created, _ := doJSON(t, app, "POST", "/api/v1/scenarios/create-scenario", scenarioBody())
	scenarioID := created["data"].(map[string]interface{})["scenario_id"].(string)

	out, status := doJSON(t, app, "GET", "/api/v1/scenarios/get-scenario/"+scenarioID, nil)
	require.Equal(t, fiber.StatusOK, status)
	data := out["data"].(map[string]interface{})
	assert.Len(t, data["people"], 1)
	assert.Len(t, data["assets"], 2)
	assert.Len(t, data["incomes"], 1)
}

func TestUpdateScenario_ReplacesChildrenAndInvalidatesSessions(t *testing.T) {
	h, db, inv := setupScenariosTest(t)
	app := newScenariosApp(h)

	created, _ := doJSON(t, app, "POST", "/api/v1/scenarios/create-scenario", scenarioBody())
	scenarioID := created["data"].(map[string]interface{})["scenario_id"].(string)

	update := map[string]interface{}{
		"name": "Renamed plan",
		"people": []map[string]interface{}{
			{"label": "you", "birth_year": 1985, "retirement_age": 58, "state_pension_age": 67},
			{"label": "partner", "birth_year": 1987, "retirement_age": 60, "state_pension_age": 67},
		},
		"assets": []map[string]interface{}{
			{"name": "Pension", "type": "PENSION", "balance": 150000, "withdrawal_priority": 9},
		},
	}
	out, status := doJSON(t, app, "PUT", "/api/v1/scenarios/update-scenario/"+scenarioID, update)
	require.Equal(t, fiber.StatusOK, status)
	data := out["data"].(map[string]interface{})
	assert.Equal(t, "Renamed plan", data["name"])
	assert.Len(t, data["people"], 2)
	assert.Len(t, data["assets"], 1)

	// Old children are gone, not orphaned.
	var assets int64
	db.Model(&domain.Asset{}).Count(&assets)
	assert.Equal(t, int64(1), assets)

	require.Len(t, inv.calls, 1)
	assert.Equal(t, scenarioID, inv.calls[0])
}

func TestUpdateScenario_NotFound(t *testing.T) {
	h, _, inv := setupScenariosTest(t)
	app := newScenariosApp(h)

	_, status := doJSON(t, app, "PUT", "/api/v1/scenarios/update-scenario/"+uuid.New().String(), map[string]interface{}{"name": "x"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Empty(t, inv.calls)
}

func TestDeleteScenario_RemovesAndInvalidates(t *testing.T) {
	h, db, inv := setupScenariosTest(t)
	app := newScenariosApp(h)

	created, _ := doJSON(t, app, "POST", "/api/v1/scenarios/create-scenario", scenarioBody())
	scenarioID := created["data"].(map[string]interface{})["scenario_id"].(string)

	_, status := doJSON(t, app, "DELETE", "/api/v1/scenarios/delete-scenario/"+scenarioID, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, inv.calls, 1)
	assert.Equal(t, scenarioID, inv.calls[0])

	var scenariosCount, people int64
	db.Model(&domain.Scenario{}).Count(&scenariosCount)
	db.Model(&domain.Person{}).Count(&people)
	assert.Equal(t, int64(0), scenariosCount)
	assert.Equal(t, int64(0), people)

	// Deleting again is a 404.
	_, status = doJSON(t, app, "DELETE", "/api/v1/scenarios/delete-scenario/"+scenarioID, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
