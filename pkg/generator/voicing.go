package generator

import (
	"time"

	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

// bounds intersects the parameter octave range with the instrument range.
func (g *Generator) bounds(params weather.ParameterSet) (int, int) {
	lo, hi := params.PitchRange()
	if lo < g.cfg.InstrumentMin {
		lo = g.cfg.InstrumentMin
	}
	if hi > g.cfg.InstrumentMax {
		hi = g.cfg.InstrumentMax
	}
	return lo, hi
}

// pool lists the in-scale pitches of [lo, hi]. When nothing qualifies the
// range minimum stands in so the stream never stalls.
func (g *Generator) pool(lo, hi int) []int {
	pitches := theory.AbsolutePitchesInRange(g.pitchClasses, lo, hi)
	if len(pitches) > 0 {
		return pitches
	}
	fallback := clampInt(lo, g.cfg.InstrumentMin, g.cfg.InstrumentMax)
	g.log.Warn(module, "No scale pitches in range, using range minimum", map[string]interface{}{
		"min": lo, "max": hi, "context": g.ctx.String(), "fallback": fallback,
	})
	return []int{fallback}
}

func (g *Generator) makeNote(pitch int, durationMs float64, params weather.ParameterSet, now time.Time) events.GeneratedNote {
	velocity := clampInt(uniformInt(g.rnd, params.MinVelocity, params.MaxVelocity), 1, 127)
	if durationMs <= 0 {
		durationMs = 1
	}
	return events.GeneratedNote{
		Pitch:      clampInt(pitch, g.cfg.InstrumentMin, g.cfg.InstrumentMax),
		Velocity:   velocity,
		DurationMs: durationMs,
		Channel:    g.cfg.Channel,
		EmittedAt:  now,
	}
}

func (g *Generator) duration(params weather.ParameterSet) float64 {
	return uniformFloat(g.rnd, params.MinDurationMs, params.MaxDurationMs)
}

func (g *Generator) note(now time.Time, params weather.ParameterSet) events.MusicalEvent {
	lo, hi := g.bounds(params)
	pitches := g.pool(lo, hi)
	pitch := pitches[g.rnd.IntN(len(pitches))]
	return events.NoteEvent{
		Note:    g.makeNote(pitch, g.duration(params), params, now),
		Context: g.ctx,
	}
}

// chord stacks every other scale tone above a random root. Narrow pools fall
// back to adjacent tones, and to a single note below two pitches.
func (g *Generator) chord(now time.Time, params weather.ParameterSet) events.MusicalEvent {
	lo, hi := g.bounds(params)
	pitches := g.pool(lo, hi)
	if len(pitches) < 2 {
		return g.note(now, params)
	}

	tones := uniformInt(g.rnd, g.cfg.ChordMinTones, g.cfg.ChordMaxTones+1)
	step := 2
	if fit := (len(pitches)-1)/step + 1; fit < tones {
		tones = fit
	}
	if tones < 2 {
		step = 1
		tones = 2
	}

	root := g.rnd.IntN(len(pitches) - (tones-1)*step)
	dur := g.duration(params)
	notes := make([]events.GeneratedNote, 0, tones)
	for i := 0; i < tones; i++ {
		notes = append(notes, g.makeNote(pitches[root+i*step], dur, params, now))
	}

	return events.ChordEvent{
		Notes:   notes,
		Style:   events.ChordHarmonic,
		Context: g.ctx,
		At:      now,
	}
}

// counterpoint gives each voice its own contiguous register band.
func (g *Generator) counterpoint(now time.Time, params weather.ParameterSet) events.MusicalEvent {
	lo, hi := g.bounds(params)
	span := hi - lo + 1
	voices := uniformInt(g.rnd, g.cfg.CounterpointMinVoices, g.cfg.CounterpointMaxVoices+1)
	if voices > span {
		voices = span
	}
	if voices < 2 {
		return g.note(now, params)
	}

	width := span / voices
	notes := make([]events.GeneratedNote, 0, voices)
	bands := make([]events.Band, 0, voices)
	for i := 0; i < voices; i++ {
		band := events.Band{Min: lo + i*width, Max: lo + (i+1)*width - 1}
		if i == voices-1 {
			band.Max = hi
		}
		pitches := theory.AbsolutePitchesInRange(g.pitchClasses, band.Min, band.Max)
		if len(pitches) == 0 {
			continue
		}
		pitch := pitches[g.rnd.IntN(len(pitches))]
		notes = append(notes, g.makeNote(pitch, g.duration(params), params, now))
		bands = append(bands, band)
	}
	if len(notes) < 2 {
		return g.note(now, params)
	}

	return events.ChordEvent{
		Notes:   notes,
		Style:   events.ChordCounterpoint,
		Bands:   bands,
		Context: g.ctx,
		At:      now,
	}
}

// pedal toggles one pedal. Sustain cannot re-engage inside its rest period;
// ok is false in that case and the caller plays a note instead.
func (g *Generator) pedal(now time.Time, params weather.ParameterSet) (events.MusicalEvent, bool) {
	sp := clampFloat(params.SustainProbability, 0, 1)
	r := g.rnd.Float64()

	switch {
	case r < sp:
		if g.sustainOn {
			g.sustainOn = false
			g.sustainReleasedAt = now
			return events.NewPedalEvent(events.PedalSustain, false, now), true
		}
		if !g.sustainReleasedAt.IsZero() && now.Sub(g.sustainReleasedAt) < g.cfg.SustainRestPeriod {
			g.log.Debug(module, "Sustain resting", map[string]interface{}{
				"since_release_ms": now.Sub(g.sustainReleasedAt).Milliseconds(),
			})
			return nil, false
		}
		g.sustainOn = true
		return events.NewPedalEvent(events.PedalSustain, true, now), true
	case r < sp+(1-sp)/2:
		g.sostenutoOn = !g.sostenutoOn
		return events.NewPedalEvent(events.PedalSostenuto, g.sostenutoOn, now), true
	default:
		g.softOn = !g.softOn
		return events.NewPedalEvent(events.PedalSoft, g.softOn, now), true
	}
}

// drift moves exactly one unlocked axis once the context has dwelt long enough.
func (g *Generator) drift(now time.Time, params weather.ParameterSet) (events.MusicalEvent, bool) {
	if now.Sub(g.ctx.EstablishedAt) < g.cfg.ContextMinDwell {
		return nil, false
	}
	if g.rnd.Float64() >= g.cfg.ContextChangeProbability {
		return nil, false
	}

	axes := make([]events.ContextAxis, 0, 3)
	if !g.cfg.LockKey {
		axes = append(axes, events.AxisKey)
	}
	if !g.cfg.LockScale {
		axes = append(axes, events.AxisScale)
	}
	if !g.cfg.LockMode {
		axes = append(axes, events.AxisMode)
	}
	if len(axes) == 0 {
		return nil, false
	}

	prev := g.ctx
	next := prev
	axis := axes[g.rnd.IntN(len(axes))]
	switch axis {
	case events.AxisKey:
		next.Key = (prev.Key + theory.PitchClass(1+g.rnd.IntN(11))) % 12
	case events.AxisScale:
		next.Scale = g.pickScale(prev.Scale, params.PreferredScales)
	case events.AxisMode:
		modes := make([]theory.Mode, 0, 6)
		for _, m := range theory.Modes() {
			if m != prev.Mode {
				modes = append(modes, m)
			}
		}
		next.Mode = modes[g.rnd.IntN(len(modes))]
	}
	next.EstablishedAt = now
	g.setContext(next)

	g.log.Info(module, "Context drifted", map[string]interface{}{
		"axis": string(axis), "from": prev.String(), "to": g.ctx.String(),
	})
	return events.ContextChangeEvent{Context: g.ctx, Axis: axis, Previous: &prev}, true
}

func (g *Generator) pickScale(current theory.ScaleType, preferred []theory.ScaleType) theory.ScaleType {
	candidates := make([]theory.ScaleType, 0, len(preferred))
	for _, s := range preferred {
		if s != current {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		for _, s := range theory.Scales() {
			if s != current {
				candidates = append(candidates, s)
			}
		}
	}
	return candidates[g.rnd.IntN(len(candidates))]
}
