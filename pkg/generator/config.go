package generator

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"ambient-stream-be/pkg/weather"
)

var ErrInvalidConfig = errors.New("invalid generator config")

// Probabilities partition one uniform draw: silence, pedal, chord,
// counterpoint, then a plain note for whatever remains.
type Probabilities struct {
	Silence      float64 `json:"silence" validate:"gte=0,lte=1"`
	Pedal        float64 `json:"pedal" validate:"gte=0,lte=1"`
	Chord        float64 `json:"chord" validate:"gte=0,lte=1"`
	Counterpoint float64 `json:"counterpoint" validate:"gte=0,lte=1"`
}

func (p Probabilities) Sum() float64 {
	return p.Silence + p.Pedal + p.Chord + p.Counterpoint
}

type Config struct {
	Probabilities Probabilities
	Parameters    weather.ParameterSet

	InstrumentMin int `validate:"gte=0,lte=127"`
	InstrumentMax int `validate:"gte=0,lte=127,gtefield=InstrumentMin"`

	ChordMinTones         int `validate:"gte=2,lte=5"`
	ChordMaxTones         int `validate:"lte=5,gtefield=ChordMinTones"`
	CounterpointMinVoices int `validate:"gte=2,lte=4"`
	CounterpointMaxVoices int `validate:"lte=4,gtefield=CounterpointMinVoices"`

	SilenceMinMs float64 `validate:"gt=0"`
	SilenceMaxMs float64 `validate:"gtfield=SilenceMinMs"`

	ContextChangeProbability float64       `validate:"gte=0,lte=1"`
	ContextMinDwell          time.Duration `validate:"gte=0"`
	SustainRestPeriod        time.Duration `validate:"gte=0"`

	IntervalMinMs  float64 `validate:"gt=0"`
	IntervalMaxMs  float64 `validate:"gtefield=IntervalMinMs"`
	FixedTickMs    float64 `validate:"gte=0"`
	ReferenceTempo float64 `validate:"gt=0"`

	// Initial context. Empty means random.
	Key   string
	Scale string
	Mode  string

	LockKey   bool
	LockScale bool
	LockMode  bool

	Channel *int `validate:"omitempty,gte=0,lte=15"`
}

func DefaultConfig() Config {
	return Config{
		Probabilities: Probabilities{
			Silence:      0.2,
			Pedal:        0.1,
			Chord:        0.4,
			Counterpoint: 0,
		},
		Parameters:               weather.Defaults(),
		InstrumentMin:            21,
		InstrumentMax:            108,
		ChordMinTones:            2,
		ChordMaxTones:            5,
		CounterpointMinVoices:    2,
		CounterpointMaxVoices:    4,
		SilenceMinMs:             100,
		SilenceMaxMs:             600,
		ContextChangeProbability: 0.01,
		ContextMinDwell:          2 * time.Minute,
		SustainRestPeriod:        20 * time.Second,
		IntervalMinMs:            250,
		IntervalMaxMs:            1200,
		ReferenceTempo:           80,
	}
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if sum := c.Probabilities.Sum(); sum > 1 {
		return fmt.Errorf("%w: probabilities sum to %.3f", ErrInvalidConfig, sum)
	}
	p := c.Parameters
	if p.MinVelocity < 1 || p.MaxVelocity > 127 || p.MinVelocity > p.MaxVelocity {
		return fmt.Errorf("%w: velocity range %d-%d", ErrInvalidConfig, p.MinVelocity, p.MaxVelocity)
	}
	if p.MinDurationMs <= 0 || p.MinDurationMs > p.MaxDurationMs {
		return fmt.Errorf("%w: duration range %.0f-%.0f", ErrInvalidConfig, p.MinDurationMs, p.MaxDurationMs)
	}
	if p.Density < 0 || p.Density > 1 {
		return fmt.Errorf("%w: density %.2f", ErrInvalidConfig, p.Density)
	}
	if p.MinOctave > p.MaxOctave {
		return fmt.Errorf("%w: octave range %d-%d", ErrInvalidConfig, p.MinOctave, p.MaxOctave)
	}
	return nil
}
