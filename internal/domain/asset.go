package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Asset is an account or pot. Type is one of CASH, ISA, GIA, PENSION.
// Growth fields of zero defer to the scenario's equity assumptions at
// resolve time; CASH stays at zero growth.
type Asset struct {
	AssetID              uuid.UUID  `gorm:"column:asset_id;type:uuid;primaryKey" json:"asset_id"`
	ScenarioID           uuid.UUID  `gorm:"column:scenario_id;type:uuid;not null;index" json:"scenario_id"`
	PersonID             *uuid.UUID `gorm:"column:person_id;type:uuid" json:"person_id"`
	Name                 string     `gorm:"column:name;not null" json:"name"`
	Type                 string     `gorm:"column:type;not null" json:"type"`
	Balance              float64    `gorm:"column:balance;type:decimal(18,2);not null;default:0" json:"balance"`
	CostBasis            float64    `gorm:"column:cost_basis;type:decimal(18,2);not null;default:0" json:"cost_basis"`
	ContributionCap      float64    `gorm:"column:contribution_cap;type:decimal(18,2);not null;default:0" json:"contribution_cap"`
	GrowthMean           float64    `gorm:"column:growth_mean;not null;default:0" json:"growth_mean"`
	GrowthStd            float64    `gorm:"column:growth_std;not null;default:0" json:"growth_std"`
	WithdrawalPriority   int        `gorm:"column:withdrawal_priority;not null;default:0" json:"withdrawal_priority"`
	StopContribsAtRetire bool       `gorm:"column:stop_contribs_at_retire;not null;default:false" json:"stop_contribs_at_retire"`
	CreatedAt            time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt            time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Asset) TableName() string {
	return "assets"
}

func (a *Asset) BeforeCreate(tx *gorm.DB) error {
	if a.AssetID == uuid.Nil {
		a.AssetID = uuid.New()
	}
	return nil
}
