package entity

import (
	"time"

	"github.com/google/uuid"

	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/weather"
)

// Preset is a named set of overrides applied to the generator config when a
// session opens. Nil or empty fields leave the configured value alone.
type Preset struct {
	Id            uuid.UUID
	Name          string
	Description   string
	Key           string
	Scale         string
	Mode          string
	Parameters    *weather.ParameterSet
	Probabilities *generator.Probabilities
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// Apply overlays the preset on cfg.
func (p *Preset) Apply(cfg generator.Config) generator.Config {
	if p.Key != "" {
		cfg.Key = p.Key
	}
	if p.Scale != "" {
		cfg.Scale = p.Scale
	}
	if p.Mode != "" {
		cfg.Mode = p.Mode
	}
	if p.Parameters != nil {
		cfg.Parameters = *p.Parameters
	}
	if p.Probabilities != nil {
		cfg.Probabilities = *p.Probabilities
	}
	return cfg
}
