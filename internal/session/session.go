package session

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

const (
	module = "SESSION"

	// used when a tick fails before it could ask for the next interval
	fallbackInterval = 500 * time.Millisecond
)

type State string

const (
	StateIdle      State = "idle"
	StateStreaming State = "streaming"
)

// Source produces events. *generator.Generator implements it.
type Source interface {
	Next() events.MusicalEvent
	NextInterval() time.Duration
	Context() theory.MusicalContext
	SetContext(key, scale, mode string) (*events.ContextChangeEvent, error)
	ApplyWeather(sample *weather.Sample)
	ResetPedals()
}

// Emitter receives events in order. Emit is called with the session lock
// held and must not block or call back into the session.
type Emitter interface {
	Emit(evt events.MusicalEvent)
}

// Observer is told about lifecycle changes, under the session lock.
type Observer interface {
	SessionStarted(snap Snapshot)
	SessionStopped(snap Snapshot)
	ContextChanged(snap Snapshot, evt events.ContextChangeEvent)
}

type nopObserver struct{}

func (nopObserver) SessionStarted(Snapshot)                            {}
func (nopObserver) SessionStopped(Snapshot)                            {}
func (nopObserver) ContextChanged(Snapshot, events.ContextChangeEvent) {}

type Snapshot struct {
	ID          uuid.UUID             `json:"id"`
	State       State                 `json:"state"`
	Context     theory.MusicalContext `json:"context"`
	StartedAt   time.Time             `json:"started_at"`
	Emitted     int64                 `json:"emitted"`
	ActiveNotes int                   `json:"active_notes"`
	Pedals      PedalState            `json:"pedals"`
	TickErrors  int                   `json:"tick_errors"`
}

type Option func(*Session)

func WithScheduler(s Scheduler) Option {
	return func(sess *Session) { sess.sched = s }
}

func WithObserver(o Observer) Option {
	return func(sess *Session) { sess.observer = o }
}

func WithID(id uuid.UUID) Option {
	return func(sess *Session) { sess.ID = id }
}

// Session drives one Source on a self-rescheduling timer chain and delivers
// its events to one Emitter.
type Session struct {
	ID uuid.UUID

	mu       sync.Mutex
	state    State
	epoch    uint64
	timer    Timer
	source   Source
	emitter  Emitter
	observer Observer
	sched    Scheduler
	log      logger.ILogger

	pedals     PedalState
	active     map[int]time.Time
	startedAt  time.Time
	emitted    int64
	tickErrors int
}

func New(source Source, emitter Emitter, log logger.ILogger, opts ...Option) *Session {
	s := &Session{
		ID:       uuid.New(),
		state:    StateIdle,
		source:   source,
		emitter:  emitter,
		observer: nopObserver{},
		sched:    NewRealScheduler(),
		log:      log,
		active:   make(map[int]time.Time),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start announces the current context and begins ticking. It reports false
// when the session was already streaming.
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStreaming {
		return false
	}
	s.state = StateStreaming
	s.epoch++
	s.startedAt = s.sched.Now()

	s.emitLocked(events.ContextChangeEvent{Context: s.source.Context(), Axis: events.AxisInitial})
	s.observer.SessionStarted(s.snapshotLocked())
	s.scheduleLocked(s.source.NextInterval())

	s.log.Info(module, "Session started", map[string]interface{}{
		"session_id": s.ID.String(), "context": s.source.Context().String(),
	})
	return true
}

// Stop cancels the timer chain and emits one all-notes-off. It reports false
// when the session was idle.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStreaming {
		return false
	}
	s.epoch++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.active = make(map[int]time.Time)
	s.pedals.Reset()
	s.source.ResetPedals()
	s.state = StateIdle

	s.emitLocked(events.AllNotesOffEvent{At: s.sched.Now()})
	s.observer.SessionStopped(s.snapshotLocked())

	s.log.Info(module, "Session stopped", map[string]interface{}{
		"session_id": s.ID.String(), "emitted": s.emitted,
	})
	return true
}

// Configure changes the context by hand. While streaming, an accepted change
// is emitted straight away.
func (s *Session) Configure(key, scale, mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt, err := s.source.SetContext(key, scale, mode)
	if evt != nil && s.state == StateStreaming {
		s.emitLocked(*evt)
		s.observer.ContextChanged(s.snapshotLocked(), *evt)
	}
	return err
}

func (s *Session) ApplyWeather(sample *weather.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source.ApplyWeather(sample)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ActiveNotes lists the pitches still sounding, ascending.
func (s *Session) ActiveNotes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.sched.Now())

	out := make([]int, 0, len(s.active))
	for p := range s.active {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.ID,
		State:       s.state,
		Context:     s.source.Context(),
		StartedAt:   s.startedAt,
		Emitted:     s.emitted,
		ActiveNotes: len(s.active),
		Pedals:      s.pedals,
		TickErrors:  s.tickErrors,
	}
}

func (s *Session) scheduleLocked(d time.Duration) {
	epoch := s.epoch
	s.timer = s.sched.AfterFunc(d, func() { s.tick(epoch) })
}

func (s *Session) tick(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// a stop or restart happened after this timer fired
	if s.state != StateStreaming || epoch != s.epoch {
		return
	}
	s.scheduleLocked(s.stepLocked())
}

func (s *Session) stepLocked() (next time.Duration) {
	next = fallbackInterval
	defer func() {
		if r := recover(); r != nil {
			s.tickErrors++
			s.log.Error(module, "Tick failed, skipping", map[string]interface{}{
				"session_id": s.ID.String(),
				"error":      fmt.Errorf("tick panic: %v", r),
				"stack":      string(debug.Stack()),
			})
		}
	}()

	now := s.sched.Now()
	s.pruneLocked(now)
	s.dispatchLocked(s.source.Next(), now)
	return s.source.NextInterval()
}

func (s *Session) dispatchLocked(evt events.MusicalEvent, now time.Time) {
	switch e := evt.(type) {
	case events.PedalEvent:
		released := s.pedals.Apply(e)
		s.emitLocked(e)
		if len(released) > 0 {
			s.emitLocked(events.ReleaseEvent{Notes: released, At: now})
		}
		return
	case events.NoteEvent:
		s.trackLocked(now, e.Note)
	case events.ChordEvent:
		s.trackLocked(now, e.Notes...)
	case events.ContextChangeEvent:
		s.emitLocked(e)
		s.observer.ContextChanged(s.snapshotLocked(), e)
		return
	}
	s.emitLocked(evt)
}

func (s *Session) trackLocked(now time.Time, notes ...events.GeneratedNote) {
	for _, n := range notes {
		until := now.Add(time.Duration(n.DurationMs * float64(time.Millisecond)))
		if cur, ok := s.active[n.Pitch]; !ok || until.After(cur) {
			s.active[n.Pitch] = until
		}
	}
	s.pedals.Hold(notes...)
}

func (s *Session) pruneLocked(now time.Time) {
	for p, until := range s.active {
		if !now.Before(until) {
			delete(s.active, p)
		}
	}
}

func (s *Session) emitLocked(evt events.MusicalEvent) {
	s.emitter.Emit(evt)
	s.emitted++
}
