package theory

import "time"

// MusicalContext is the tonal frame the generator draws pitches from.
type MusicalContext struct {
	Key           PitchClass `json:"key"`
	Scale         ScaleType  `json:"scale"`
	Mode          Mode       `json:"mode"`
	EstablishedAt time.Time  `json:"established_at"`
}

func (c MusicalContext) PitchClasses() ([]PitchClass, error) {
	return PitchClassesFor(c.Key, c.Scale, c.Mode)
}

func (c MusicalContext) String() string {
	return c.Key.String() + " " + string(c.Scale) + " (" + string(c.Mode) + ")"
}
