package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Person is one household member of a scenario.
type Person struct {
	PersonID        uuid.UUID `gorm:"column:person_id;type:uuid;primaryKey" json:"person_id"`
	ScenarioID      uuid.UUID `gorm:"column:scenario_id;type:uuid;not null;index" json:"scenario_id"`
	Label           string    `gorm:"column:label;not null" json:"label"`
	BirthYear       int       `gorm:"column:birth_year;not null" json:"birth_year"`
	RetirementAge   int       `gorm:"column:retirement_age;not null" json:"retirement_age"`
	StatePensionAge int       `gorm:"column:state_pension_age;not null;default:67" json:"state_pension_age"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Person) TableName() string {
	return "people"
}

func (p *Person) BeforeCreate(tx *gorm.DB) error {
	if p.PersonID == uuid.Nil {
		p.PersonID = uuid.New()
	}
	return nil
}
