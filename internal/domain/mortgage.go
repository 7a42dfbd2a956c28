package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Mortgage is amortized monthly by the engine until its balance reaches
// zero. A scenario currently simulates at most one mortgage; the first row
// wins at resolve time.
type Mortgage struct {
	MortgageID     uuid.UUID `gorm:"column:mortgage_id;type:uuid;primaryKey" json:"mortgage_id"`
	ScenarioID     uuid.UUID `gorm:"column:scenario_id;type:uuid;not null;index" json:"scenario_id"`
	Balance        float64   `gorm:"column:balance;type:decimal(18,2);not null" json:"balance"`
	AnnualRate     float64   `gorm:"column:annual_rate;not null" json:"annual_rate"`
	MonthlyPayment float64   `gorm:"column:monthly_payment;type:decimal(18,2);not null" json:"monthly_payment"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Mortgage) TableName() string {
	return "mortgages"
}

func (m *Mortgage) BeforeCreate(tx *gorm.DB) error {
	if m.MortgageID == uuid.Nil {
		m.MortgageID = uuid.New()
	}
	return nil
}
