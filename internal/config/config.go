package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string

	SessionTTL        time.Duration // simulation session lifetime
	DefaultIterations int           // Monte Carlo paths when the client does not ask
	MaxIterations     int           // hard per-request ceiling
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	ttlMinutes := viper.GetInt("SESSION_TTL_MINUTES")
	if ttlMinutes <= 0 {
		ttlMinutes = 30
	}
	iterations := viper.GetInt("DEFAULT_ITERATIONS")
	if iterations <= 0 {
		iterations = 1000
	}
	maxIterations := viper.GetInt("MAX_ITERATIONS")
	if maxIterations <= 0 {
		maxIterations = 10_000
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SessionTTL:          time.Duration(ttlMinutes) * time.Minute,
		DefaultIterations:   iterations,
		MaxIterations:       maxIterations,
	}, nil
}
