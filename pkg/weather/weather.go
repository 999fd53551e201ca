// Package weather maps an observed weather sample to generation parameters.
package weather

import (
	"time"

	"ambient-stream-be/pkg/theory"
)

type Condition string

const (
	ConditionClear   Condition = "clear"
	ConditionCloudy  Condition = "cloudy"
	ConditionFog     Condition = "fog"
	ConditionDrizzle Condition = "drizzle"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "storm"
)

type TemperatureBand string

const (
	BandFreezing TemperatureBand = "freezing"
	BandCold     TemperatureBand = "cold"
	BandMild     TemperatureBand = "mild"
	BandWarm     TemperatureBand = "warm"
	BandHot      TemperatureBand = "hot"
)

// Sample is one observation. ConditionCode follows the WMO weather
// interpretation codes used by Open-Meteo.
type Sample struct {
	TemperatureC  float64   `json:"temperature_c" validate:"gte=-90,lte=60"`
	ConditionCode int       `json:"condition_code" validate:"gte=0,lte=99"`
	Location      string    `json:"location,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

func (s Sample) Condition() Condition {
	return ConditionFromCode(s.ConditionCode)
}

func (s Sample) Band() TemperatureBand {
	return BandFor(s.TemperatureC)
}

// ParameterSet is everything weather can bias.
type ParameterSet struct {
	Tempo              float64            `json:"tempo"`
	Density            float64            `json:"density"`
	MinOctave          int                `json:"min_octave"`
	MaxOctave          int                `json:"max_octave"`
	MinVelocity        int                `json:"min_velocity"`
	MaxVelocity        int                `json:"max_velocity"`
	MinDurationMs      float64            `json:"min_duration_ms"`
	MaxDurationMs      float64            `json:"max_duration_ms"`
	SustainProbability float64            `json:"sustain_probability"`
	PreferredScales    []theory.ScaleType `json:"preferred_scales,omitempty"`
	Condition          Condition          `json:"condition,omitempty"`
	Band               TemperatureBand    `json:"band,omitempty"`
}

// PitchRange converts the octave bounds to inclusive MIDI pitches.
func (p ParameterSet) PitchRange() (int, int) {
	return theory.OctaveRange(p.MinOctave, p.MaxOctave)
}

func Defaults() ParameterSet {
	return ParameterSet{
		Tempo:              80,
		Density:            0.5,
		MinOctave:          3,
		MaxOctave:          5,
		MinVelocity:        40,
		MaxVelocity:        100,
		MinDurationMs:      300,
		MaxDurationMs:      2000,
		SustainProbability: 0.6,
	}
}

func ConditionFromCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case code >= 51 && code <= 57:
		return ConditionDrizzle
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		return ConditionStorm
	default:
		return ConditionCloudy
	}
}

// BandFor buckets a temperature; each band includes its lower bound.
func BandFor(celsius float64) TemperatureBand {
	switch {
	case celsius < 0:
		return BandFreezing
	case celsius < 10:
		return BandCold
	case celsius < 20:
		return BandMild
	case celsius < 30:
		return BandWarm
	default:
		return BandHot
	}
}
