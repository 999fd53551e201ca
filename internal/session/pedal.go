package session

import "ambient-stream-be/pkg/events"

// PedalState mirrors the pedals as the client sees them and remembers the
// notes struck while sustain was down.
type PedalState struct {
	Sustain   bool `json:"sustain"`
	Sostenuto bool `json:"sostenuto"`
	Soft      bool `json:"soft"`

	held []events.GeneratedNote
}

// Apply records a pedal change. Lifting sustain returns the notes it was holding.
func (p *PedalState) Apply(evt events.PedalEvent) []events.GeneratedNote {
	switch evt.Pedal {
	case events.PedalSustain:
		wasDown := p.Sustain
		p.Sustain = evt.Engaged
		if wasDown && !evt.Engaged {
			released := p.held
			p.held = nil
			return released
		}
	case events.PedalSostenuto:
		p.Sostenuto = evt.Engaged
	case events.PedalSoft:
		p.Soft = evt.Engaged
	}
	return nil
}

// Hold remembers notes struck while sustain is engaged.
func (p *PedalState) Hold(notes ...events.GeneratedNote) {
	if !p.Sustain {
		return
	}
	p.held = append(p.held, notes...)
}

func (p *PedalState) Held() int {
	return len(p.held)
}

func (p *PedalState) Reset() {
	*p = PedalState{}
}
