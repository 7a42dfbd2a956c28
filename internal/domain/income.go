package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Income is a recurring income source. Kind is one of salary, rental, gift.
// A nil PersonID means household-level income.
type Income struct {
	IncomeID           uuid.UUID  `gorm:"column:income_id;type:uuid;primaryKey" json:"income_id"`
	ScenarioID         uuid.UUID  `gorm:"column:scenario_id;type:uuid;not null;index" json:"scenario_id"`
	PersonID           *uuid.UUID `gorm:"column:person_id;type:uuid" json:"person_id"`
	Kind               string     `gorm:"column:kind;not null" json:"kind"`
	GrossAnnual        float64    `gorm:"column:gross_annual;type:decimal(18,2);not null" json:"gross_annual"`
	GrowthRate         float64    `gorm:"column:growth_rate;not null;default:0" json:"growth_rate"`
	EmployeePensionPct float64    `gorm:"column:employee_pension_pct;not null;default:0" json:"employee_pension_pct"`
	EmployerPensionPct float64    `gorm:"column:employer_pension_pct;not null;default:0" json:"employer_pension_pct"`
	StartYear          int        `gorm:"column:start_year;not null;default:0" json:"start_year"`
	EndYear            int        `gorm:"column:end_year;not null;default:0" json:"end_year"`
	CreatedAt          time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Income) TableName() string {
	return "incomes"
}

func (i *Income) BeforeCreate(tx *gorm.DB) error {
	if i.IncomeID == uuid.Nil {
		i.IncomeID = uuid.New()
	}
	return nil
}
