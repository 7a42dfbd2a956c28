package app

import (
	"wealthpath-backend/internal/config"
	"wealthpath-backend/internal/database"
	"wealthpath-backend/internal/health"
	"wealthpath-backend/internal/middleware"
	"wealthpath-backend/internal/scenarios"
	"wealthpath-backend/internal/session"
	"wealthpath-backend/internal/simulation"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CreateApp builds the Fiber app with all global middleware and route
// registration. The returned DB and Redis client are shared with the caller
// for startup checks and shutdown.
func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	app.Use(middleware.CORS(middleware.CORSConfig{
		AllowedSuffix: cfg.FrontendURLEndsWith,
		DevPassword:   cfg.DevPassword,
	}))

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		rdb = redis.NewClient(opt)
		// Health request marker needs Redis; skip it entirely without one.
		app.Use(middleware.HealthMarker(rdb))
	}

	app.Use(middleware.ResponseFormatter())
	app.Use(middleware.Tracing())
	app.Use(middleware.RouteLogger())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		var errDB error
		db, errDB = database.Open(cfg.DatabaseURL)
		if errDB != nil {
			return nil, nil, nil, errDB
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, nil, err
		}
	}

	// Health module (GET /, GET /reset, GET /health/json, GET /health/errors)
	healthHandlers := &health.Handlers{
		Rdb:            rdb,
		DB:             dbPinger(db),
		HealthAdminKey: cfg.HealthAdminKey,
	}
	app.Get("/", healthHandlers.Dashboard)
	app.Get("/reset", healthHandlers.Reset)
	app.Get("/health/json", healthHandlers.JSON)
	app.Get("/health/errors", healthHandlers.Errors)

	sessions := session.NewStore(cfg.SessionTTL)

	if db != nil {
		// Scenarios module
		scenarioService := &scenarios.Service{DB: db, Sessions: sessions}
		scenarioHandlers := &scenarios.Handlers{Service: scenarioService}
		scenarioGroup := app.Group("/api/v1/scenarios")
		scenarioGroup.Post("/create-scenario", scenarioHandlers.CreateScenario)
		scenarioGroup.Get("/get-all-scenarios", scenarioHandlers.GetAllScenarios)
		scenarioGroup.Get("/get-scenario/:scenario_id", scenarioHandlers.GetScenario)
		scenarioGroup.Put("/update-scenario/:scenario_id", scenarioHandlers.UpdateScenario)
		scenarioGroup.Delete("/delete-scenario/:scenario_id", scenarioHandlers.DeleteScenario)

		// Simulation module
		simService := &simulation.Service{
			Scenarios:         scenarioService,
			Sessions:          sessions,
			DefaultIterations: cfg.DefaultIterations,
			MaxIterations:     cfg.MaxIterations,
		}
		simHandlers := &simulation.Handlers{Service: simService}
		simGroup := app.Group("/api/v1/simulation")
		simGroup.Post("/run", simHandlers.Run)
		simGroup.Post("/init", simHandlers.Init)
		simGroup.Post("/recalc", simHandlers.Recalc)
		simGroup.Delete("/sessions/:session_id", simHandlers.DeleteSession)
	}

	return app, db, rdb, nil
}

// dbPinger adapts a gorm DB to the health check's pinger; nil in, nil out.
func dbPinger(db *gorm.DB) health.DBPinger {
	if db == nil {
		return nil
	}
	return gormPinger{db: db}
}

type gormPinger struct {
	db *gorm.DB
}

func (p gormPinger) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
