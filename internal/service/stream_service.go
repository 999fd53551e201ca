package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/internal/session"
	"ambient-stream-be/pkg/events"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/store"
	"ambient-stream-be/pkg/weather"
)

const streamModule = "STREAM"

var ErrSessionNotFound = errors.New("session not found on this instance")

// EventPublisher is satisfied by *nats.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, events.Event) error { return nil }

type OpenOptions struct {
	Key        string
	Scale      string
	Mode       string
	Preset     string
	RemoteAddr string
}

type IStreamService interface {
	// Open builds a generator for one listener and registers an idle session.
	Open(ctx context.Context, emitter session.Emitter, opts OpenOptions) (*session.Session, error)
	// Close stops the session and removes it from the registry.
	Close(id uuid.UUID)
	Get(id uuid.UUID) (*session.Session, bool)
	// Start and Stop return the snapshot taken right after the transition.
	Start(id uuid.UUID) (session.Snapshot, error)
	Stop(id uuid.UUID) (session.Snapshot, error)
	// Snapshots covers sessions owned by this instance.
	Snapshots() []session.Snapshot
	// List covers every instance sharing the registry.
	List(ctx context.Context) ([]store.SessionRecord, error)
	Record(ctx context.Context, id string) (*store.SessionRecord, error)
	// ApplyWeather retunes every local session and returns how many it touched.
	ApplyWeather(sample *weather.Sample) int
	LatestWeather() *weather.Sample
	Shutdown(ctx context.Context) error
}

type StreamOption func(*streamService)

func WithSessionScheduler(s session.Scheduler) StreamOption {
	return func(svc *streamService) { svc.scheduler = s }
}

func WithGeneratorOptions(opts ...generator.Option) StreamOption {
	return func(svc *streamService) { svc.genOpts = append(svc.genOpts, opts...) }
}

// WithStreamLogger routes per-session logs away from the application log.
func WithStreamLogger(l logger.ILogger) StreamOption {
	return func(svc *streamService) { svc.streamLog = l }
}

type streamEntry struct {
	sess       *session.Session
	preset     string
	remoteAddr string
	createdAt  time.Time
}

type updateKind int

const (
	updateOpened updateKind = iota
	updateStarted
	updateStopped
	updateContext
	updateClosed
)

type lifecycleUpdate struct {
	kind  updateKind
	snap  session.Snapshot
	entry *streamEntry
	evt   *events.ContextChangeEvent
}

type streamService struct {
	base       generator.Config
	presets    IPresetService
	registry   store.Store
	publisher  EventPublisher
	instanceID string
	logger     logger.ILogger
	streamLog  logger.ILogger
	scheduler  session.Scheduler
	genOpts    []generator.Option
	tracer     trace.Tracer

	mu       sync.RWMutex
	sessions map[uuid.UUID]*streamEntry
	weather  *weather.Sample

	updates chan lifecycleUpdate
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewStreamService(
	base generator.Config,
	presets IPresetService,
	registry store.Store,
	publisher EventPublisher,
	instanceID string,
	log logger.ILogger,
	opts ...StreamOption,
) IStreamService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	s := &streamService{
		base:       base,
		presets:    presets,
		registry:   registry,
		publisher:  publisher,
		instanceID: instanceID,
		logger:     log,
		streamLog:  log,
		tracer:     otel.Tracer("stream-service"),
		sessions:   make(map[uuid.UUID]*streamEntry),
		updates:    make(chan lifecycleUpdate, 512),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.runUpdates()
	return s
}

func (s *streamService) Open(ctx context.Context, emitter session.Emitter, opts OpenOptions) (*session.Session, error) {
	ctx, span := s.tracer.Start(ctx, "StreamService.Open", trace.WithAttributes(
		attribute.String("stream.preset", opts.Preset),
		attribute.String("stream.key", opts.Key),
		attribute.String("stream.scale", opts.Scale),
		attribute.String("stream.mode", opts.Mode),
	))
	defer span.End()

	cfg := s.base
	if s.presets != nil && opts.Preset != "" {
		var err error
		if cfg, err = s.presets.ApplyPreset(ctx, opts.Preset, s.base); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "preset")
			return nil, err
		}
	}

	gen, err := generator.New(cfg, s.streamLog, s.genOpts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generator")
		return nil, err
	}
	if opts.Key != "" || opts.Scale != "" || opts.Mode != "" {
		if _, err := gen.SetContext(opts.Key, opts.Scale, opts.Mode); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "context")
			return nil, err
		}
	}

	s.mu.RLock()
	sample := s.weather
	s.mu.RUnlock()
	if sample != nil {
		gen.ApplyWeather(sample)
	}

	id := uuid.New()
	entry := &streamEntry{preset: opts.Preset, remoteAddr: opts.RemoteAddr, createdAt: time.Now()}
	sessOpts := []session.Option{
		session.WithID(id),
		session.WithObserver(&streamObserver{svc: s, entry: entry}),
	}
	if s.scheduler != nil {
		sessOpts = append(sessOpts, session.WithScheduler(s.scheduler))
	}
	entry.sess = session.New(gen, emitter, s.streamLog, sessOpts...)

	s.mu.Lock()
	s.sessions[id] = entry
	count := len(s.sessions)
	s.mu.Unlock()

	s.enqueue(lifecycleUpdate{kind: updateOpened, snap: entry.sess.Snapshot(), entry: entry})
	span.SetAttributes(attribute.String("session.id", id.String()))

	s.logger.Info(streamModule, "Session opened", map[string]interface{}{
		"session_id": id.String(),
		"context":    gen.Context().String(),
		"preset":     opts.Preset,
		"remote":     opts.RemoteAddr,
		"local":      count,
	})
	return entry.sess, nil
}

func (s *streamService) Close(id uuid.UUID) {
	s.mu.Lock()
	entry, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}

	entry.sess.Stop()
	s.enqueue(lifecycleUpdate{kind: updateClosed, snap: entry.sess.Snapshot(), entry: entry})
	s.logger.Info(streamModule, "Session closed", map[string]interface{}{"session_id": id.String()})
}

func (s *streamService) Get(id uuid.UUID) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return entry.sess, true
}

func (s *streamService) Start(id uuid.UUID) (session.Snapshot, error) {
	sess, ok := s.Get(id)
	if !ok {
		return session.Snapshot{}, ErrSessionNotFound
	}
	sess.Start()
	return sess.Snapshot(), nil
}

func (s *streamService) Stop(id uuid.UUID) (session.Snapshot, error) {
	sess, ok := s.Get(id)
	if !ok {
		return session.Snapshot{}, ErrSessionNotFound
	}
	sess.Stop()
	return sess.Snapshot(), nil
}

func (s *streamService) Snapshots() []session.Snapshot {
	s.mu.RLock()
	entries := make([]*streamEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]session.Snapshot, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.sess.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (s *streamService) List(ctx context.Context) ([]store.SessionRecord, error) {
	return s.registry.List(ctx)
}

func (s *streamService) Record(ctx context.Context, id string) (*store.SessionRecord, error) {
	return s.registry.Get(ctx, id)
}

func (s *streamService) ApplyWeather(sample *weather.Sample) int {
	s.mu.Lock()
	s.weather = sample
	entries := make([]*streamEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	for _, e := range entries {
		e.sess.ApplyWeather(sample)
	}
	return len(entries)
}

func (s *streamService) LatestWeather() *weather.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weather
}

// Shutdown closes every local session and waits for the registry worker to
// drain.
func (s *streamService) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Close(id)
	}

	s.once.Do(func() { close(s.done) })
	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue never blocks; observer callbacks run under the session lock.
func (s *streamService) enqueue(u lifecycleUpdate) {
	select {
	case s.updates <- u:
	default:
		s.logger.Warn(streamModule, "Lifecycle queue full, dropping update", map[string]interface{}{
			"session_id": u.snap.ID.String(),
		})
	}
}

func (s *streamService) runUpdates() {
	defer close(s.stopped)
	for {
		select {
		case u := <-s.updates:
			s.handleUpdate(u)
		case <-s.done:
			for {
				select {
				case u := <-s.updates:
					s.handleUpdate(u)
				default:
					return
				}
			}
		}
	}
}

func (s *streamService) handleUpdate(u lifecycleUpdate) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := u.snap.ID.String()
	if u.kind == updateClosed {
		if err := s.registry.Delete(ctx, id); err != nil {
			s.logger.Warn(streamModule, "Failed to remove session record", map[string]interface{}{
				"session_id": id, "error": err.Error(),
			})
		}
	} else {
		rec := s.recordFor(u)
		if err := s.registry.Save(ctx, rec); err != nil {
			s.logger.Warn(streamModule, "Failed to save session record", map[string]interface{}{
				"session_id": id, "error": err.Error(),
			})
		}
	}

	evt, ok := s.eventFor(u)
	if !ok {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn(streamModule, "Failed to publish lifecycle event", map[string]interface{}{
			"session_id": id, "type": evt.EventType(), "error": err.Error(),
		})
	}
}

func (s *streamService) recordFor(u lifecycleUpdate) *store.SessionRecord {
	status := store.StatusIdle
	if u.snap.State == session.StateStreaming {
		status = store.StatusStreaming
	}
	return &store.SessionRecord{
		ID:         u.snap.ID.String(),
		InstanceID: s.instanceID,
		Status:     status,
		Key:        u.snap.Context.Key.String(),
		Scale:      string(u.snap.Context.Scale),
		Mode:       string(u.snap.Context.Mode),
		Preset:     u.entry.preset,
		Emitted:    u.snap.Emitted,
		TickErrors: u.snap.TickErrors,
		RemoteAddr: u.entry.remoteAddr,
		CreatedAt:  u.entry.createdAt,
		UpdatedAt:  time.Now(),
	}
}

func (s *streamService) eventFor(u lifecycleUpdate) (events.Event, bool) {
	data := map[string]interface{}{
		"session_id":  u.snap.ID.String(),
		"instance_id": s.instanceID,
		"key":         u.snap.Context.Key.String(),
		"scale":       string(u.snap.Context.Scale),
		"mode":        string(u.snap.Context.Mode),
	}
	switch u.kind {
	case updateStarted:
		return events.NewBaseEvent(events.TypeSessionStarted, data, u.snap.StartedAt), true
	case updateStopped:
		data["emitted"] = u.snap.Emitted
		return events.NewBaseEvent(events.TypeSessionStopped, data, time.Now()), true
	case updateContext:
		data["axis"] = string(u.evt.Axis)
		if u.evt.Previous != nil {
			data["previous"] = u.evt.Previous.String()
		}
		return events.NewBaseEvent(events.TypeContextChanged, data, u.evt.Context.EstablishedAt), true
	}
	return nil, false
}

type streamObserver struct {
	svc   *streamService
	entry *streamEntry
}

func (o *streamObserver) SessionStarted(snap session.Snapshot) {
	o.svc.enqueue(lifecycleUpdate{kind: updateStarted, snap: snap, entry: o.entry})
}

func (o *streamObserver) SessionStopped(snap session.Snapshot) {
	o.svc.enqueue(lifecycleUpdate{kind: updateStopped, snap: snap, entry: o.entry})
}

func (o *streamObserver) ContextChanged(snap session.Snapshot, evt events.ContextChangeEvent) {
	o.svc.enqueue(lifecycleUpdate{kind: updateContext, snap: snap, entry: o.entry, evt: &evt})
}
