package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Expense is a recurring outflow, optionally inflation-linked.
type Expense struct {
	ExpenseID       uuid.UUID `gorm:"column:expense_id;type:uuid;primaryKey" json:"expense_id"`
	ScenarioID      uuid.UUID `gorm:"column:scenario_id;type:uuid;not null;index" json:"scenario_id"`
	Name            string    `gorm:"column:name;not null" json:"name"`
	MonthlyAmount   float64   `gorm:"column:monthly_amount;type:decimal(18,2);not null" json:"monthly_amount"`
	StartYear       int       `gorm:"column:start_year;not null;default:0" json:"start_year"`
	EndYear         int       `gorm:"column:end_year;not null;default:0" json:"end_year"`
	InflationLinked bool      `gorm:"column:inflation_linked;not null;default:true" json:"inflation_linked"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ExpenseID == uuid.Nil {
		e.ExpenseID = uuid.New()
	}
	return nil
}
