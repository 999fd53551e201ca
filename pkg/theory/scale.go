package theory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownKey   = errors.New("unknown key")
	ErrUnknownScale = errors.New("unknown scale")
	ErrUnknownMode  = errors.New("unknown mode")
)

// ScaleType names an entry of the scale table.
type ScaleType string

const (
	ScaleMajor           ScaleType = "major"
	ScaleMinor           ScaleType = "minor"
	ScaleHarmonicMinor   ScaleType = "harmonic_minor"
	ScaleMelodicMinor    ScaleType = "melodic_minor"
	ScalePentatonicMajor ScaleType = "pentatonic_major"
	ScalePentatonicMinor ScaleType = "pentatonic_minor"
	ScaleBlues           ScaleType = "blues"
	ScaleWholeTone       ScaleType = "whole_tone"
	ScaleChromatic       ScaleType = "chromatic"
)

// ScaleDefinition is a semitone offset list relative to the tonic, starting at 0.
type ScaleDefinition struct {
	Name        ScaleType `json:"name"`
	Degrees     []int     `json:"degrees"`
	DefaultMode Mode      `json:"default_mode"`
}

// scaleOrder fixes iteration order for random choice and listing.
var scaleOrder = []ScaleType{
	ScaleMajor,
	ScaleMinor,
	ScaleHarmonicMinor,
	ScaleMelodicMinor,
	ScalePentatonicMajor,
	ScalePentatonicMinor,
	ScaleBlues,
	ScaleWholeTone,
	ScaleChromatic,
}

var scaleTable = map[ScaleType]ScaleDefinition{
	ScaleMajor:           {Name: ScaleMajor, Degrees: []int{0, 2, 4, 5, 7, 9, 11}, DefaultMode: ModeIonian},
	ScaleMinor:           {Name: ScaleMinor, Degrees: []int{0, 2, 3, 5, 7, 8, 10}, DefaultMode: ModeAeolian},
	ScaleHarmonicMinor:   {Name: ScaleHarmonicMinor, Degrees: []int{0, 2, 3, 5, 7, 8, 11}, DefaultMode: ModeAeolian},
	ScaleMelodicMinor:    {Name: ScaleMelodicMinor, Degrees: []int{0, 2, 3, 5, 7, 9, 11}, DefaultMode: ModeAeolian},
	ScalePentatonicMajor: {Name: ScalePentatonicMajor, Degrees: []int{0, 2, 4, 7, 9}, DefaultMode: ModeIonian},
	ScalePentatonicMinor: {Name: ScalePentatonicMinor, Degrees: []int{0, 3, 5, 7, 10}, DefaultMode: ModeAeolian},
	ScaleBlues:           {Name: ScaleBlues, Degrees: []int{0, 3, 5, 6, 7, 10}, DefaultMode: ModeAeolian},
	ScaleWholeTone:       {Name: ScaleWholeTone, Degrees: []int{0, 2, 4, 6, 8, 10}, DefaultMode: ModeIonian},
	ScaleChromatic:       {Name: ScaleChromatic, Degrees: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, DefaultMode: ModeIonian},
}

// Scales lists every known scale in table order.
func Scales() []ScaleType {
	out := make([]ScaleType, len(scaleOrder))
	copy(out, scaleOrder)
	return out
}

// Lookup returns a copy of the scale definition so callers cannot mutate the table.
func Lookup(scale ScaleType) (ScaleDefinition, bool) {
	def, ok := scaleTable[scale]
	if !ok {
		return ScaleDefinition{}, false
	}
	degrees := make([]int, len(def.Degrees))
	copy(degrees, def.Degrees)
	def.Degrees = degrees
	return def, true
}

func ScaleDegrees(scale ScaleType) ([]int, error) {
	def, ok := Lookup(scale)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScale, scale)
	}
	return def.Degrees, nil
}

// ParseScale accepts table names case-insensitively; spaces and dashes count as underscores.
func ParseScale(name string) (ScaleType, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	s := ScaleType(normalized)
	if _, ok := scaleTable[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScale, name)
	}
	return s, nil
}
