package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler only fires timers when the test asks it to.
type manualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	pending []*manualTimer
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)}
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	m.pending = append(m.pending, t)
	return t
}

func (m *manualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Fire runs the oldest live timer and reports whether one existed.
func (m *manualScheduler) Fire() bool {
	m.mu.Lock()
	var next *manualTimer
	for len(m.pending) > 0 {
		t := m.pending[0]
		m.pending = m.pending[1:]
		if !t.stopped {
			next = t
			break
		}
	}
	if next == nil {
		m.mu.Unlock()
		return false
	}
	m.now = m.now.Add(next.d)
	m.mu.Unlock()

	next.f()
	return true
}

func (m *manualScheduler) live() []*manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*manualTimer
	for _, t := range m.pending {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []events.MusicalEvent
}

func (r *recorder) Emit(evt events.MusicalEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) all() []events.MusicalEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.MusicalEvent(nil), r.events...)
}

func (r *recorder) count(kind events.Kind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

// scriptedSource replays a fixed list of events, then plays silence.
type scriptedSource struct {
	script  []events.MusicalEvent
	i       int
	ctx     theory.MusicalContext
	panicAt int
	resets  int
	weather *weather.Sample
}

func newScriptedSource(script ...events.MusicalEvent) *scriptedSource {
	return &scriptedSource{
		script:  script,
		ctx:     theory.MusicalContext{Key: 0, Scale: theory.ScaleMajor, Mode: theory.ModeIonian},
		panicAt: -1,
	}
}

func (s *scriptedSource) Next() events.MusicalEvent {
	i := s.i
	s.i++
	if i == s.panicAt {
		panic("scripted failure")
	}
	if i < len(s.script) {
		return s.script[i]
	}
	return events.SilenceEvent{DurationMs: 100}
}

func (s *scriptedSource) NextInterval() time.Duration    { return 100 * time.Millisecond }
func (s *scriptedSource) Context() theory.MusicalContext { return s.ctx }
func (s *scriptedSource) ApplyWeather(w *weather.Sample) { s.weather = w }
func (s *scriptedSource) ResetPedals()                   { s.resets++ }

func (s *scriptedSource) SetContext(key, scale, mode string) (*events.ContextChangeEvent, error) {
	if key == "" {
		return nil, nil
	}
	k, err := theory.ParsePitchClass(key)
	if err != nil {
		return nil, err
	}
	prev := s.ctx
	s.ctx.Key = k
	return &events.ContextChangeEvent{Context: s.ctx, Axis: events.AxisManual, Previous: &prev}, nil
}

func note(pitch int) events.NoteEvent {
	return events.NoteEvent{Note: events.GeneratedNote{Pitch: pitch, Velocity: 80, DurationMs: 1000}}
}

func newTestSession(src Source) (*Session, *recorder, *manualScheduler) {
	rec := &recorder{}
	sched := newManualScheduler()
	s := New(src, rec, logger.NewNopLogger(), WithScheduler(sched))
	return s, rec, sched
}

func TestStartAnnouncesContextFirst(t *testing.T) {
	s, rec, sched := newTestSession(newScriptedSource(note(60)))

	require.True(t, s.Start())
	got := rec.all()
	require.Len(t, got, 1)
	cc, ok := got[0].(events.ContextChangeEvent)
	require.True(t, ok, "first event must be the context announcement")
	assert.Equal(t, events.AxisInitial, cc.Axis)
	assert.Equal(t, StateStreaming, s.State())

	require.True(t, sched.Fire())
	assert.Equal(t, events.KindNote, rec.all()[1].Kind())
}

func TestStartIsIdempotent(t *testing.T) {
	s, rec, sched := newTestSession(newScriptedSource())

	require.True(t, s.Start())
	assert.False(t, s.Start())
	assert.Len(t, rec.all(), 1)
	assert.Len(t, sched.live(), 1, "a second start must not add a timer chain")
}

func TestStopEmitsExactlyOneAllNotesOff(t *testing.T) {
	s, rec, sched := newTestSession(newScriptedSource(note(60), note(64)))

	s.Start()
	sched.Fire()
	sched.Fire()
	require.True(t, s.Stop())
	assert.False(t, s.Stop())

	assert.Equal(t, 1, rec.count(events.KindAllNotesOff))
	all := rec.all()
	assert.Equal(t, events.KindAllNotesOff, all[len(all)-1].Kind())
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.ActiveNotes())
	assert.False(t, sched.Fire(), "no timer may survive stop")
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	s, rec, _ := newTestSession(newScriptedSource())
	assert.False(t, s.Stop())
	assert.Empty(t, rec.all())
}

func TestNoEventAfterStop(t *testing.T) {
	s, rec, sched := newTestSession(newScriptedSource(note(60), note(62), note(64)))

	s.Start()
	pending := sched.live()
	require.Len(t, pending, 1)

	s.Stop()
	before := len(rec.all())

	// the callback already fired and was waiting on the lock
	pending[0].f()
	assert.Len(t, rec.all(), before)
	assert.Equal(t, events.KindAllNotesOff, rec.all()[before-1].Kind())
}

func TestRestartIgnoresOldChain(t *testing.T) {
	s, rec, sched := newTestSession(newScriptedSource(note(60), note(62)))

	s.Start()
	old := sched.live()[0]
	s.Stop()
	s.Start()
	before := len(rec.all())

	old.f()
	assert.Len(t, rec.all(), before, "a timer from the previous run must not emit")
	require.True(t, sched.Fire())
	assert.Len(t, rec.all(), before+1)
}

func TestSustainReleaseListsHeldNotes(t *testing.T) {
	now := time.Time{}
	src := newScriptedSource(
		note(50),
		events.NewPedalEvent(events.PedalSustain, true, now),
		note(60),
		events.ChordEvent{Notes: []events.GeneratedNote{{Pitch: 64, Velocity: 70, DurationMs: 900}, {Pitch: 67, Velocity: 70, DurationMs: 900}}},
		events.NewPedalEvent(events.PedalSustain, false, now),
		note(72),
	)
	s, rec, sched := newTestSession(src)

	s.Start()
	for i := 0; i < 6; i++ {
		require.True(t, sched.Fire())
	}

	var release *events.ReleaseEvent
	for _, e := range rec.all() {
		if r, ok := e.(events.ReleaseEvent); ok {
			release = &r
		}
	}
	require.NotNil(t, release)
	var pitches []int
	for _, n := range release.Notes {
		pitches = append(pitches, n.Pitch)
	}
	assert.Equal(t, []int{60, 64, 67}, pitches)
	assert.Equal(t, 1, rec.count(events.KindRelease))

	all := rec.all()
	// pedal-off is immediately followed by its release
	for i, e := range all {
		if p, ok := e.(events.PedalEvent); ok && !p.Engaged {
			assert.Equal(t, events.KindRelease, all[i+1].Kind())
		}
	}
}

func TestTickPanicIsSkipped(t *testing.T) {
	src := newScriptedSource(note(60), note(62), note(64))
	src.panicAt = 1
	s, rec, sched := newTestSession(src)

	s.Start()
	for i := 0; i < 3; i++ {
		require.True(t, sched.Fire(), "the chain must survive a failed tick")
	}
	assert.Equal(t, 2, rec.count(events.KindNote))
	assert.Equal(t, 1, s.Snapshot().TickErrors)
}

func TestActiveNotesExpire(t *testing.T) {
	s, _, sched := newTestSession(newScriptedSource(note(60)))

	s.Start()
	sched.Fire()
	assert.Equal(t, []int{60}, s.ActiveNotes())

	// ten silent ticks of 100ms push past the 1000ms duration
	for i := 0; i < 10; i++ {
		sched.Fire()
	}
	assert.Empty(t, s.ActiveNotes())
}

func TestConfigureEmitsWhileStreaming(t *testing.T) {
	src := newScriptedSource()
	s, rec, _ := newTestSession(src)

	require.NoError(t, s.Configure("D", "", ""))
	assert.Empty(t, rec.all(), "idle sessions only remember the change")

	s.Start()
	assert.Equal(t, theory.PitchClass(2), rec.all()[0].(events.ContextChangeEvent).Context.Key)

	require.NoError(t, s.Configure("E", "", ""))
	last := rec.all()[len(rec.all())-1].(events.ContextChangeEvent)
	assert.Equal(t, events.AxisManual, last.Axis)

	assert.Error(t, s.Configure("Z", "", ""))
	assert.Equal(t, theory.PitchClass(4), src.ctx.Key)
}

func TestStopResetsGeneratorPedals(t *testing.T) {
	src := newScriptedSource(events.NewPedalEvent(events.PedalSoft, true, time.Time{}))
	s, _, sched := newTestSession(src)
	s.Start()
	sched.Fire()
	assert.True(t, s.Snapshot().Pedals.Soft)

	s.Stop()
	assert.False(t, s.Snapshot().Pedals.Soft)
	assert.Equal(t, 1, src.resets)
}

type countingObserver struct {
	started, stopped, changed int
}

func (o *countingObserver) SessionStarted(Snapshot)                            { o.started++ }
func (o *countingObserver) SessionStopped(Snapshot)                            { o.stopped++ }
func (o *countingObserver) ContextChanged(Snapshot, events.ContextChangeEvent) { o.changed++ }

func TestObserverHooks(t *testing.T) {
	obs := &countingObserver{}
	src := newScriptedSource(events.ContextChangeEvent{Axis: events.AxisKey})
	rec := &recorder{}
	sched := newManualScheduler()
	s := New(src, rec, logger.NewNopLogger(), WithScheduler(sched), WithObserver(obs))

	s.Start()
	sched.Fire()
	s.Stop()
	assert.Equal(t, 1, obs.started)
	assert.Equal(t, 1, obs.changed)
	assert.Equal(t, 1, obs.stopped)
}

func TestWithRealGeneratorAndTimers(t *testing.T) {
	cfg := generator.DefaultConfig()
	cfg.FixedTickMs = 2
	gen, err := generator.New(cfg, logger.NewNopLogger(), generator.WithRandom(generator.NewSeededRandom(1)))
	require.NoError(t, err)

	rec := &recorder{}
	s := New(gen, rec, logger.NewNopLogger())
	s.Start()
	assert.Eventually(t, func() bool { return len(rec.all()) > 20 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	n := len(rec.all())
	time.Sleep(30 * time.Millisecond)
	all := rec.all()
	assert.Len(t, all, n)
	assert.Equal(t, events.KindContextChange, all[0].Kind())
	assert.Equal(t, events.KindAllNotesOff, all[len(all)-1].Kind())
	assert.Equal(t, 1, rec.count(events.KindAllNotesOff))
}
