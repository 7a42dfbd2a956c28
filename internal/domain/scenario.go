package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Scenario is the persisted household plan. Economic assumptions are stored
// as a JSON document so new knobs never need a migration; absent keys fall
// back to engine defaults at resolve time.
type Scenario struct {
	ScenarioID  uuid.UUID      `gorm:"column:scenario_id;type:uuid;primaryKey" json:"scenario_id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Description string         `gorm:"column:description" json:"description"`
	Assumptions datatypes.JSON `gorm:"column:assumptions;type:jsonb" json:"assumptions"`

	People    []Person   `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE" json:"people"`
	Incomes   []Income   `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE" json:"incomes"`
	Assets    []Asset    `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE" json:"assets"`
	Mortgages []Mortgage `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE" json:"mortgages"`
	Expenses  []Expense  `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE" json:"expenses"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Scenario) TableName() string {
	return "scenarios"
}

// BeforeCreate: never insert zero UUID for primary key; generate random when not set.
func (s *Scenario) BeforeCreate(tx *gorm.DB) error {
	if s.ScenarioID == uuid.Nil {
		s.ScenarioID = uuid.New()
	}
	return nil
}
