package dto

import (
	"time"

	"github.com/google/uuid"

	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/weather"
)

type CreatePresetRequest struct {
	Name          string                   `json:"name" validate:"required,max=64"`
	Description   string                   `json:"description"`
	Key           string                   `json:"key" validate:"max=4"`
	Scale         string                   `json:"scale" validate:"max=32"`
	Mode          string                   `json:"mode" validate:"max=16"`
	Parameters    *weather.ParameterSet    `json:"parameters,omitempty"`
	Probabilities *generator.Probabilities `json:"probabilities,omitempty"`
}

type PresetResponse struct {
	Id            uuid.UUID                `json:"id"`
	Name          string                   `json:"name"`
	Description   string                   `json:"description,omitempty"`
	Key           string                   `json:"key,omitempty"`
	Scale         string                   `json:"scale,omitempty"`
	Mode          string                   `json:"mode,omitempty"`
	Parameters    *weather.ParameterSet    `json:"parameters,omitempty"`
	Probabilities *generator.Probabilities `json:"probabilities,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     *time.Time               `json:"updated_at"`
}

type ListPresetsResponse struct {
	Presets []*PresetResponse `json:"presets"`
	Total   int64             `json:"total"`
}
