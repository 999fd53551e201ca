package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Preset stores generation overrides. Parameters and Probabilities are jsonb
// so new knobs do not need a migration.
type Preset struct {
	Id            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Key           string         `gorm:"type:varchar(4)" json:"key"`
	Scale         string         `gorm:"type:varchar(32)" json:"scale"`
	Mode          string         `gorm:"type:varchar(16)" json:"mode"`
	Parameters    datatypes.JSON `gorm:"type:jsonb" json:"parameters,omitempty"`
	Probabilities datatypes.JSON `gorm:"type:jsonb" json:"probabilities,omitempty"`
	CreatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Preset) TableName() string {
	return "stream_presets"
}
