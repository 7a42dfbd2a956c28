package database

import (
	"wealthpath-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for the scenario models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Scenario{},
		&domain.Person{},
		&domain.Income{},
		&domain.Asset{},
		&domain.Mortgage{},
		&domain.Expense{},
	)
}
