package theory

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PitchClass is a pitch modulo the octave, 0 (C) through 11 (B).
type PitchClass int

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var flatNames = map[string]PitchClass{
	"DB": 1, "EB": 3, "GB": 6, "AB": 8, "BB": 10,
	"CB": 11, "FB": 4, "E#": 5, "B#": 0,
}

func (p PitchClass) String() string {
	return sharpNames[int(p.normalize())]
}

func (p PitchClass) normalize() PitchClass {
	return PitchClass(((int(p) % 12) + 12) % 12)
}

// ParsePitchClass accepts note names (C, F#, Bb, ...) or integers 0 to 11.
func ParsePitchClass(s string) (PitchClass, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, fmt.Errorf("%w: empty", ErrUnknownKey)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 || n > 11 {
			return 0, fmt.Errorf("%w: %d out of range", ErrUnknownKey, n)
		}
		return PitchClass(n), nil
	}

	upper := strings.ToUpper(raw)
	upper = strings.NewReplacer("♯", "#", "♭", "B").Replace(upper)
	for i, name := range sharpNames {
		if name == upper {
			return PitchClass(i), nil
		}
	}
	if pc, ok := flatNames[upper]; ok {
		return pc, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// PitchClassesFor returns the pitch classes of scale in key under mode, ordered from the tonic.
// Modes rotate relative to the scale's default mode, so asking for the default mode is the identity.
func PitchClassesFor(key PitchClass, scale ScaleType, mode Mode) ([]PitchClass, error) {
	def, ok := Lookup(scale)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScale, scale)
	}
	target, err := ModeRotation(mode)
	if err != nil {
		return nil, err
	}
	base, err := ModeRotation(def.DefaultMode)
	if err != nil {
		return nil, err
	}

	n := len(def.Degrees)
	shift := ((target-base)%n + n) % n
	first := def.Degrees[shift]

	out := make([]PitchClass, n)
	for i := 0; i < n; i++ {
		offset := ((def.Degrees[(i+shift)%n]-first)%12 + 12) % 12
		out[i] = (PitchClass(offset) + key).normalize()
	}
	return out, nil
}

// AbsolutePitchesInRange lists every pitch in [min, max] whose class is in pcs, ascending.
func AbsolutePitchesInRange(pcs []PitchClass, min, max int) []int {
	if min > max || len(pcs) == 0 {
		return nil
	}
	var member [12]bool
	for _, pc := range pcs {
		member[pc.normalize()] = true
	}

	out := make([]int, 0, (max-min+1)*len(pcs)/12+1)
	for p := min; p <= max; p++ {
		if member[((p%12)+12)%12] {
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

// PitchName formats a MIDI pitch in scientific notation, 60 being C4.
func PitchName(pitch int) string {
	return fmt.Sprintf("%s%d", PitchClass(pitch).String(), pitch/12-1)
}

// OctaveRange converts inclusive octave bounds to MIDI pitch bounds.
func OctaveRange(minOctave, maxOctave int) (int, int) {
	return (minOctave + 1) * 12, (maxOctave+1)*12 + 11
}
