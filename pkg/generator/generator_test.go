package generator

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func newTestGenerator(t *testing.T, cfg Config, clock *fakeClock, seed uint64) *Generator {
	t.Helper()
	g, err := New(cfg, logger.NewNopLogger(), WithRandom(NewSeededRandom(seed)), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func inScale(t *testing.T, g *Generator, pitch int) bool {
	t.Helper()
	pcs, err := g.Context().PitchClasses()
	if err != nil {
		t.Fatal(err)
	}
	for _, pc := range pcs {
		if int(pc) == ((pitch%12)+12)%12 {
			return true
		}
	}
	return false
}

func checkNote(t *testing.T, g *Generator, n events.GeneratedNote) {
	t.Helper()
	if n.Pitch < g.cfg.InstrumentMin || n.Pitch > g.cfg.InstrumentMax {
		t.Fatalf("pitch %d outside instrument bounds", n.Pitch)
	}
	if !inScale(t, g, n.Pitch) {
		t.Fatalf("pitch %d (%s) not in %s", n.Pitch, theory.PitchName(n.Pitch), g.Context())
	}
	if n.Velocity < 1 || n.Velocity > 127 {
		t.Fatalf("velocity %d out of range", n.Velocity)
	}
	if n.DurationMs <= 0 {
		t.Fatalf("duration %v not positive", n.DurationMs)
	}
}

func TestGeneratedEventInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probabilities = Probabilities{Silence: 0.1, Pedal: 0.1, Chord: 0.3, Counterpoint: 0.3}
	cfg.ContextChangeProbability = 0.05
	cfg.ContextMinDwell = 10 * time.Second
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 42)

	counts := map[events.Kind]int{}
	counterpoints := 0
	for i := 0; i < 10000; i++ {
		clock.Advance(500 * time.Millisecond)
		evt := g.Next()
		counts[evt.Kind()]++

		switch e := evt.(type) {
		case events.NoteEvent:
			checkNote(t, g, e.Note)
		case events.ChordEvent:
			if len(e.Notes) < 2 {
				t.Fatalf("chord with %d notes", len(e.Notes))
			}
			if e.Style == events.ChordHarmonic && len(e.Notes) > 5 {
				t.Fatalf("harmonic chord with %d notes", len(e.Notes))
			}
			if e.Style == events.ChordCounterpoint && len(e.Notes) > 4 {
				t.Fatalf("counterpoint with %d voices", len(e.Notes))
			}
			seen := map[int]bool{}
			for _, n := range e.Notes {
				checkNote(t, g, n)
				if seen[n.Pitch] {
					t.Fatalf("chord repeats pitch %d", n.Pitch)
				}
				seen[n.Pitch] = true
			}
			if e.Style == events.ChordCounterpoint {
				counterpoints++
				if len(e.Bands) != len(e.Notes) {
					t.Fatalf("%d bands for %d voices", len(e.Bands), len(e.Notes))
				}
				for v, n := range e.Notes {
					b := e.Bands[v]
					if n.Pitch < b.Min || n.Pitch > b.Max {
						t.Fatalf("voice %d pitch %d outside band %+v", v, n.Pitch, b)
					}
					if v > 0 && e.Bands[v-1].Max >= b.Min {
						t.Fatalf("bands overlap: %+v %+v", e.Bands[v-1], b)
					}
				}
			}
		case events.PedalEvent:
			if e.Value != 0 && e.Value != 127 {
				t.Fatalf("pedal value %d", e.Value)
			}
		case events.SilenceEvent:
			if e.DurationMs < cfg.SilenceMinMs || e.DurationMs >= cfg.SilenceMaxMs {
				t.Fatalf("silence %v outside [%v,%v)", e.DurationMs, cfg.SilenceMinMs, cfg.SilenceMaxMs)
			}
		case events.ContextChangeEvent:
			if e.Previous == nil {
				t.Fatal("drift without previous context")
			}
		default:
			t.Fatalf("unexpected event %T", evt)
		}
	}

	for _, k := range []events.Kind{events.KindNote, events.KindChord, events.KindPedal, events.KindSilence, events.KindContextChange} {
		if counts[k] == 0 {
			t.Errorf("no %s events in 10000 draws", k)
		}
	}
	if counterpoints == 0 {
		t.Error("no counterpoint chords generated")
	}
}

func TestSilenceFrequency(t *testing.T) {
	clock := newClock()
	g := newTestGenerator(t, DefaultConfig(), clock, 7)

	const n = 20000
	silences := 0
	for i := 0; i < n; i++ {
		if g.Next().Kind() == events.KindSilence {
			silences++
		}
	}
	frac := float64(silences) / n
	if frac < 0.15 || frac > 0.25 {
		t.Errorf("silence fraction %.3f outside [0.15, 0.25]", frac)
	}
}

func TestNoContextChangeBeforeDwell(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextChangeProbability = 1
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 3)

	for i := 0; i < 119; i++ {
		clock.Advance(time.Second)
		if evt := g.Next(); evt.Kind() == events.KindContextChange {
			t.Fatalf("context changed after %ds", i+1)
		}
	}
}

func TestContextChangeMovesExactlyOneAxis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextChangeProbability = 1
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 11)

	for i := 0; i < 200; i++ {
		clock.Advance(3 * time.Minute)
		evt, ok := g.Next().(events.ContextChangeEvent)
		if !ok {
			t.Fatalf("iteration %d: expected context change", i)
		}
		prev, next := *evt.Previous, evt.Context
		moved := 0
		if prev.Key != next.Key {
			moved++
		}
		if prev.Scale != next.Scale {
			moved++
		}
		if prev.Mode != next.Mode {
			moved++
		}
		if moved != 1 {
			t.Fatalf("%s -> %s moved %d axes", prev, next, moved)
		}
		if !next.EstablishedAt.Equal(clock.Now()) {
			t.Fatalf("established at %v, want %v", next.EstablishedAt, clock.Now())
		}
	}
}

func TestContextChangeRate(t *testing.T) {
	const n = 20000
	tests := []struct {
		p   float64
		tol float64
	}{
		{0.01, 0.004},
		{0.05, 0.008},
		{0.2, 0.015},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("p=%.2f", tt.p), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ContextChangeProbability = tt.p
			cfg.ContextMinDwell = 0
			clock := newClock()
			g := newTestGenerator(t, cfg, clock, 21)

			changes := 0
			for i := 0; i < n; i++ {
				clock.Advance(500 * time.Millisecond)
				evt, ok := g.Next().(events.ContextChangeEvent)
				if !ok {
					continue
				}
				changes++
				prev, next := *evt.Previous, evt.Context
				moved := 0
				if prev.Key != next.Key {
					moved++
				}
				if prev.Scale != next.Scale {
					moved++
				}
				if prev.Mode != next.Mode {
					moved++
				}
				if moved != 1 {
					t.Fatalf("%s -> %s moved %d axes", prev, next, moved)
				}
			}

			rate := float64(changes) / n
			if math.Abs(rate-tt.p) > tt.tol {
				t.Errorf("change rate %.4f, want %.2f +/- %.3f", rate, tt.p, tt.tol)
			}
		})
	}
}

func TestLockedAxesNeverDrift(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextChangeProbability = 1
	cfg.Key = "D"
	cfg.Scale = "minor"
	cfg.LockKey = true
	cfg.LockScale = true
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 5)

	for i := 0; i < 50; i++ {
		clock.Advance(3 * time.Minute)
		evt := g.Next().(events.ContextChangeEvent)
		if evt.Axis != events.AxisMode {
			t.Fatalf("locked axis moved: %s", evt.Axis)
		}
		if evt.Context.Key != 2 || evt.Context.Scale != theory.ScaleMinor {
			t.Fatalf("locked context changed to %s", evt.Context)
		}
	}
}

func TestScaleDriftPrefersWeatherScales(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ContextChangeProbability = 1
	cfg.Scale = "major"
	cfg.LockKey = true
	cfg.LockMode = true
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 9)
	g.ApplyWeather(&weather.Sample{TemperatureC: 12, ConditionCode: 95})

	for i := 0; i < 30; i++ {
		clock.Advance(3 * time.Minute)
		evt := g.Next().(events.ContextChangeEvent)
		s := evt.Context.Scale
		if s != theory.ScaleHarmonicMinor && s != theory.ScaleBlues {
			t.Fatalf("storm drift picked %s", s)
		}
	}
}

func TestSustainRestPeriod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probabilities = Probabilities{Pedal: 1}
	cfg.Parameters.SustainProbability = 1
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 1)

	on, ok := g.Next().(events.PedalEvent)
	if !ok || on.Pedal != events.PedalSustain || !on.Engaged {
		t.Fatalf("expected sustain engage, got %+v", on)
	}
	clock.Advance(2 * time.Second)
	off, ok := g.Next().(events.PedalEvent)
	if !ok || off.Engaged {
		t.Fatalf("expected sustain release, got %+v", off)
	}

	clock.Advance(5 * time.Second)
	if evt := g.Next(); evt.Kind() != events.KindNote {
		t.Fatalf("sustain re-engaged inside rest period: %T", evt)
	}

	clock.Advance(16 * time.Second)
	again, ok := g.Next().(events.PedalEvent)
	if !ok || !again.Engaged {
		t.Fatalf("expected sustain to re-engage after rest, got %+v", again)
	}
}

func TestEmptyRangeFallsBackToMinimum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Key = "C"
	cfg.Scale = "major"
	cfg.Mode = "ionian"
	cfg.InstrumentMin = 61
	cfg.InstrumentMax = 61
	cfg.Probabilities = Probabilities{Chord: 0.5}
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 2)

	for i := 0; i < 100; i++ {
		evt, ok := g.Next().(events.NoteEvent)
		if !ok {
			t.Fatalf("expected degraded note, got %T", evt)
		}
		if evt.Note.Pitch != 61 {
			t.Fatalf("pitch %d, want fallback 61", evt.Note.Pitch)
		}
	}
}

func TestSetContextRejectsInvalidAxes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Key = "A"
	cfg.Scale = "minor"
	clock := newClock()
	g := newTestGenerator(t, cfg, clock, 4)

	evt, err := g.SetContext("E", "bebop", "")
	if !errors.Is(err, theory.ErrUnknownScale) {
		t.Fatalf("expected ErrUnknownScale, got %v", err)
	}
	if evt == nil || evt.Context.Key != 4 || evt.Context.Scale != theory.ScaleMinor {
		t.Fatalf("valid key should apply and scale be retained, got %+v", evt)
	}
	if evt.Axis != events.AxisManual {
		t.Errorf("axis = %s, want manual", evt.Axis)
	}

	evt, err = g.SetContext("", "", "hypophrygian")
	if !errors.Is(err, theory.ErrUnknownMode) || evt != nil {
		t.Fatalf("invalid mode: evt=%v err=%v", evt, err)
	}
	if g.Context().Mode != theory.ModeAeolian {
		t.Errorf("mode changed to %s", g.Context().Mode)
	}
}

func TestInvalidInitialContextFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Key = "Q"
	cfg.Scale = "major"
	cfg.Mode = "nope"
	g := newTestGenerator(t, cfg, newClock(), 8)
	if g.Context().Scale != theory.ScaleMajor || g.Context().Mode != theory.ModeIonian {
		t.Errorf("context = %s", g.Context())
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"probabilities over one", func(c *Config) { c.Probabilities.Chord = 0.9 }},
		{"negative probability", func(c *Config) { c.Probabilities.Pedal = -0.1 }},
		{"inverted instrument", func(c *Config) { c.InstrumentMin, c.InstrumentMax = 100, 20 }},
		{"single tone chords", func(c *Config) { c.ChordMinTones = 1 }},
		{"six tone chords", func(c *Config) { c.ChordMaxTones = 6 }},
		{"chord floor above five", func(c *Config) { c.ChordMinTones, c.ChordMaxTones = 6, 6 }},
		{"five voices", func(c *Config) { c.CounterpointMaxVoices = 5 }},
		{"voice floor above four", func(c *Config) { c.CounterpointMinVoices, c.CounterpointMaxVoices = 5, 5 }},
		{"bad velocity", func(c *Config) { c.Parameters.MaxVelocity = 200 }},
		{"bad channel", func(c *Config) { ch := 16; c.Channel = &ch }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, logger.NewNopLogger()); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNextInterval(t *testing.T) {
	cfg := DefaultConfig()
	g := newTestGenerator(t, cfg, newClock(), 6)
	for i := 0; i < 1000; i++ {
		d := g.NextInterval()
		if d < 250*time.Millisecond || d >= 1200*time.Millisecond {
			t.Fatalf("interval %v outside default window", d)
		}
	}

	g.ApplyWeather(&weather.Sample{TemperatureC: 35, ConditionCode: 95})
	for i := 0; i < 1000; i++ {
		if d := g.NextInterval(); d >= 1200*time.Millisecond {
			t.Fatalf("hot storm should speed up, got %v", d)
		}
	}

	cfg.FixedTickMs = 125
	fixed := newTestGenerator(t, cfg, newClock(), 6)
	if d := fixed.NextInterval(); d != 125*time.Millisecond {
		t.Errorf("fixed tick = %v", d)
	}
}

func TestSameSeedSameStream(t *testing.T) {
	cfg := DefaultConfig()
	a := newTestGenerator(t, cfg, newClock(), 99)
	b := newTestGenerator(t, cfg, newClock(), 99)
	for i := 0; i < 500; i++ {
		ea, eb := a.Next(), b.Next()
		if ea.Kind() != eb.Kind() {
			t.Fatalf("streams diverged at %d: %s vs %s", i, ea.Kind(), eb.Kind())
		}
		if na, ok := ea.(events.NoteEvent); ok && na.Note.Pitch != eb.(events.NoteEvent).Note.Pitch {
			t.Fatalf("pitches diverged at %d", i)
		}
	}
}

func TestWeatherMovesPitchRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Probabilities = Probabilities{}
	g := newTestGenerator(t, cfg, newClock(), 12)
	g.ApplyWeather(&weather.Sample{TemperatureC: 32, ConditionCode: 0})

	lo, hi := g.Parameters().PitchRange()
	for i := 0; i < 500; i++ {
		n := g.Next().(events.NoteEvent).Note
		if n.Pitch < lo || n.Pitch > hi {
			t.Fatalf("pitch %d outside weather range %d-%d", n.Pitch, lo, hi)
		}
	}
}
