// Package generator produces the stream of musical events for one session.
//
// A Generator is not safe for concurrent use; the owning session serialises
// every call.
package generator

import (
	"errors"
	"fmt"
	"time"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

const module = "GENERATOR"

type Option func(*Generator)

func WithRandom(r Random) Option {
	return func(g *Generator) { g.rnd = r }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

type Generator struct {
	cfg Config
	log logger.ILogger
	rnd Random
	now func() time.Time

	ctx          theory.MusicalContext
	pitchClasses []theory.PitchClass

	sample *weather.Sample

	sustainOn         bool
	sostenutoOn       bool
	softOn            bool
	sustainReleasedAt time.Time
}

// New validates cfg and picks the initial context. Unparseable Key, Scale or
// Mode values are logged and replaced by a random choice.
func New(cfg Config, log logger.ILogger, opts ...Option) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Generator{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(g)
	}
	if g.rnd == nil {
		g.rnd = newTimeSeededRandom()
	}
	if g.now == nil {
		g.now = time.Now
	}
	g.setContext(g.initialContext())
	return g, nil
}

func (g *Generator) initialContext() theory.MusicalContext {
	keys := 12
	scales := theory.Scales()

	ctx := theory.MusicalContext{
		Key:   theory.PitchClass(g.rnd.IntN(keys)),
		Scale: scales[g.rnd.IntN(len(scales))],
	}
	if g.cfg.Key != "" {
		if k, err := theory.ParsePitchClass(g.cfg.Key); err == nil {
			ctx.Key = k
		} else {
			g.log.Warn(module, "Invalid initial key, using random", map[string]interface{}{"key": g.cfg.Key, "error": err.Error()})
		}
	}
	if g.cfg.Scale != "" {
		if s, err := theory.ParseScale(g.cfg.Scale); err == nil {
			ctx.Scale = s
		} else {
			g.log.Warn(module, "Invalid initial scale, using random", map[string]interface{}{"scale": g.cfg.Scale, "error": err.Error()})
		}
	}

	def, _ := theory.Lookup(ctx.Scale)
	ctx.Mode = def.DefaultMode
	if g.cfg.Mode != "" {
		if m, err := theory.ParseMode(g.cfg.Mode); err == nil {
			ctx.Mode = m
		} else {
			g.log.Warn(module, "Invalid initial mode, using scale default", map[string]interface{}{"mode": g.cfg.Mode, "error": err.Error()})
		}
	}
	ctx.EstablishedAt = g.now()
	return ctx
}

func (g *Generator) setContext(ctx theory.MusicalContext) {
	pcs, err := ctx.PitchClasses()
	if err != nil {
		// only reachable with a corrupted context; keep the previous one
		g.log.Error(module, "Rejected context", map[string]interface{}{"context": ctx.String(), "error": err})
		return
	}
	g.ctx = ctx
	g.pitchClasses = pcs
}

func (g *Generator) Context() theory.MusicalContext {
	return g.ctx
}

// Parameters are the config parameters, or the weather-derived set once a sample is applied.
func (g *Generator) Parameters() weather.ParameterSet {
	if g.sample != nil {
		return weather.DeriveGenerationParameters(g.sample)
	}
	return g.cfg.Parameters
}

// ApplyWeather sets the sample consulted on every Next call. nil restores the configured parameters.
func (g *Generator) ApplyWeather(sample *weather.Sample) {
	if sample == nil {
		g.sample = nil
		return
	}
	s := *sample
	g.sample = &s
}

// SetContext applies a manual change. Each non-empty axis is validated on its
// own; invalid axes are logged and keep their value while valid ones apply.
// The returned event is nil when nothing changed.
func (g *Generator) SetContext(key, scale, mode string) (*events.ContextChangeEvent, error) {
	prev := g.ctx
	next := prev
	var errs []error

	if key != "" {
		if k, err := theory.ParsePitchClass(key); err != nil {
			errs = append(errs, err)
		} else {
			next.Key = k
		}
	}
	if scale != "" {
		if s, err := theory.ParseScale(scale); err != nil {
			errs = append(errs, err)
		} else {
			next.Scale = s
		}
	}
	if mode != "" {
		if m, err := theory.ParseMode(mode); err != nil {
			errs = append(errs, err)
		} else {
			next.Mode = m
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		g.log.Warn(module, "Rejected context values", map[string]interface{}{
			"key": key, "scale": scale, "mode": mode, "error": err.Error(),
		})
	}
	if next.Key == prev.Key && next.Scale == prev.Scale && next.Mode == prev.Mode {
		return nil, err
	}

	next.EstablishedAt = g.now()
	g.setContext(next)
	return &events.ContextChangeEvent{Context: g.ctx, Axis: events.AxisManual, Previous: &prev}, err
}

// ResetPedals forgets engaged pedals, as after an all-notes-off. The sustain
// rest period keeps running from the last real release.
func (g *Generator) ResetPedals() {
	g.sustainOn = false
	g.sostenutoOn = false
	g.softOn = false
}

// Next produces exactly one event.
func (g *Generator) Next() events.MusicalEvent {
	now := g.now()
	params := g.Parameters()

	if evt, ok := g.drift(now, params); ok {
		return evt
	}

	p := g.cfg.Probabilities
	silence := clampFloat(p.Silence*(1.5-params.Density), 0, 1)
	r := g.rnd.Float64()

	switch {
	case r < silence:
		return events.SilenceEvent{
			DurationMs: uniformFloat(g.rnd, g.cfg.SilenceMinMs, g.cfg.SilenceMaxMs),
			At:         now,
		}
	case r < silence+p.Pedal:
		if evt, ok := g.pedal(now, params); ok {
			return evt
		}
		return g.note(now, params)
	case r < silence+p.Pedal+p.Chord:
		return g.chord(now, params)
	case r < silence+p.Pedal+p.Chord+p.Counterpoint:
		return g.counterpoint(now, params)
	default:
		return g.note(now, params)
	}
}

// NextInterval is the wait before the following Next call.
func (g *Generator) NextInterval() time.Duration {
	if g.cfg.FixedTickMs > 0 {
		return msToDuration(g.cfg.FixedTickMs)
	}
	params := g.Parameters()
	tempo := params.Tempo
	if tempo <= 0 {
		tempo = g.cfg.ReferenceTempo
	}
	ms := uniformFloat(g.rnd, g.cfg.IntervalMinMs, g.cfg.IntervalMaxMs)
	ms = ms * (g.cfg.ReferenceTempo / tempo) / (0.5 + clampFloat(params.Density, 0, 1))
	if ms < 10 {
		ms = 10
	}
	return msToDuration(ms)
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func (g *Generator) String() string {
	return fmt.Sprintf("generator{%s}", g.ctx.String())
}
