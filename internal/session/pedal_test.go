package session

import (
	"testing"
	"time"

	"ambient-stream-be/pkg/events"
)

func TestPedalStateHoldsOnlyUnderSustain(t *testing.T) {
	var p PedalState
	at := time.Now()

	p.Hold(events.GeneratedNote{Pitch: 40})
	if p.Held() != 0 {
		t.Fatalf("held %d notes without sustain", p.Held())
	}

	p.Apply(events.NewPedalEvent(events.PedalSustain, true, at))
	p.Hold(events.GeneratedNote{Pitch: 60}, events.GeneratedNote{Pitch: 64})
	p.Apply(events.NewPedalEvent(events.PedalSoft, true, at))
	p.Hold(events.GeneratedNote{Pitch: 67})

	released := p.Apply(events.NewPedalEvent(events.PedalSustain, false, at))
	if len(released) != 3 {
		t.Fatalf("released %d notes, want 3", len(released))
	}
	for i, want := range []int{60, 64, 67} {
		if released[i].Pitch != want {
			t.Errorf("released[%d] = %d, want %d", i, released[i].Pitch, want)
		}
	}
	if p.Held() != 0 || p.Sustain {
		t.Errorf("state after release = %+v held=%d", p, p.Held())
	}
	if !p.Soft {
		t.Error("soft pedal should be unaffected by sustain")
	}

	if again := p.Apply(events.NewPedalEvent(events.PedalSustain, false, at)); again != nil {
		t.Errorf("second release returned %v", again)
	}
}

func TestPedalStateReset(t *testing.T) {
	p := PedalState{Sustain: true, Sostenuto: true, Soft: true}
	p.Hold(events.GeneratedNote{Pitch: 60})
	p.Reset()
	if p.Sustain || p.Sostenuto || p.Soft || p.Held() != 0 {
		t.Errorf("reset left %+v", p)
	}
}
