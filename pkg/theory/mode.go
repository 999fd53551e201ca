package theory

import (
	"fmt"
	"strings"
)

type Mode string

const (
	ModeIonian     Mode = "ionian"
	ModeDorian     Mode = "dorian"
	ModePhrygian   Mode = "phrygian"
	ModeLydian     Mode = "lydian"
	ModeMixolydian Mode = "mixolydian"
	ModeAeolian    Mode = "aeolian"
	ModeLocrian    Mode = "locrian"
)

var modeOrder = []Mode{
	ModeIonian,
	ModeDorian,
	ModePhrygian,
	ModeLydian,
	ModeMixolydian,
	ModeAeolian,
	ModeLocrian,
}

func Modes() []Mode {
	out := make([]Mode, len(modeOrder))
	copy(out, modeOrder)
	return out
}

// ModeRotation is the number of degrees the ionian pattern is shifted to obtain the mode.
func ModeRotation(mode Mode) (int, error) {
	for i, m := range modeOrder {
		if m == mode {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func ParseMode(name string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(name)))
	if _, err := ModeRotation(m); err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return m, nil
}
