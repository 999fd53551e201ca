package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ambient-stream-be/internal/entity"
	"ambient-stream-be/internal/repository/contract"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/weather"
)

func params(fn func(p *weather.ParameterSet)) *weather.ParameterSet {
	p := weather.Defaults()
	fn(&p)
	return &p
}

// DefaultPresets is the catalogue installed by cmd/seed and by the in-memory
// repository at boot.
func DefaultPresets() []entity.Preset {
	return []entity.Preset{
		{
			Name:        "dawn",
			Description: "Bright lydian colour, slow and open",
			Key:         "C",
			Scale:       "major",
			Mode:        "lydian",
			Parameters: params(func(p *weather.ParameterSet) {
				p.Tempo = 66
				p.Density = 0.35
				p.MinOctave, p.MaxOctave = 4, 6
				p.MinVelocity, p.MaxVelocity = 30, 80
				p.MaxDurationMs = 3000
			}),
		},
		{
			Name:        "rain",
			Description: "Dorian pedal washes",
			Key:         "D",
			Scale:       "minor",
			Mode:        "dorian",
			Probabilities: &generator.Probabilities{
				Silence: 0.15,
				Pedal:   0.2,
				Chord:   0.35,
			},
		},
		{
			Name:        "nocturne",
			Description: "Low, sparse harmonic minor",
			Key:         "A",
			Scale:       "harmonic_minor",
			Parameters: params(func(p *weather.ParameterSet) {
				p.Tempo = 60
				p.Density = 0.3
				p.MinOctave, p.MaxOctave = 2, 4
				p.MinVelocity, p.MaxVelocity = 25, 70
				p.SustainProbability = 0.75
			}),
		},
		{
			Name:        "drift",
			Description: "Whole-tone counterpoint",
			Key:         "F#",
			Scale:       "whole_tone",
			Probabilities: &generator.Probabilities{
				Silence:      0.2,
				Pedal:        0.05,
				Chord:        0.15,
				Counterpoint: 0.35,
			},
		},
		{
			Name:        "blue-room",
			Description: "Blues scale, mid register",
			Key:         "E",
			Scale:       "blues",
			Parameters: params(func(p *weather.ParameterSet) {
				p.Tempo = 96
				p.Density = 0.6
			}),
		},
	}
}

// SeedPresets creates every default preset missing from repo and returns how
// many it added.
func SeedPresets(ctx context.Context, repo contract.PresetRepository) (int, error) {
	added := 0
	for _, p := range DefaultPresets() {
		existing, err := repo.FindByName(ctx, p.Name)
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}
		p.Id = uuid.New()
		p.CreatedAt = time.Now()
		if err := repo.Create(ctx, &p); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
