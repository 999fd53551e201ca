package events

import (
	"strings"
	"time"

	"ambient-stream-be/pkg/theory"
)

// Kind is the wire name of a musical event variant.
type Kind string

const (
	KindNote          Kind = "note"
	KindChord         Kind = "chord"
	KindPedal         Kind = "pedal"
	KindContextChange Kind = "context_change"
	KindSilence       Kind = "silence"
	KindRelease       Kind = "release"
	KindAllNotesOff   Kind = "all_notes_off"
)

type PedalKind string

const (
	PedalSustain   PedalKind = "sustain"
	PedalSostenuto PedalKind = "sostenuto"
	PedalSoft      PedalKind = "soft"
)

type ChordStyle string

const (
	ChordHarmonic     ChordStyle = "harmonic"
	ChordCounterpoint ChordStyle = "counterpoint"
)

// ContextAxis says which part of the musical context moved.
type ContextAxis string

const (
	AxisKey     ContextAxis = "key"
	AxisScale   ContextAxis = "scale"
	AxisMode    ContextAxis = "mode"
	AxisInitial ContextAxis = "initial"
	AxisManual  ContextAxis = "manual"
)

// MusicalEvent is a closed union: only the variants in this file implement it.
type MusicalEvent interface {
	Event
	Kind() Kind
	musical()
}

type GeneratedNote struct {
	Pitch      int       `json:"pitch"`
	Velocity   int       `json:"velocity"`
	DurationMs float64   `json:"duration_ms"`
	Channel    *int      `json:"channel,omitempty"`
	EmittedAt  time.Time `json:"emitted_at"`
}

func (n GeneratedNote) payload() map[string]interface{} {
	m := map[string]interface{}{
		"pitch":       n.Pitch,
		"name":        theory.PitchName(n.Pitch),
		"velocity":    n.Velocity,
		"duration_ms": n.DurationMs,
	}
	if n.Channel != nil {
		m["channel"] = *n.Channel
	}
	return m
}

// Band is an inclusive pitch register owned by one counterpoint voice.
type Band struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type NoteEvent struct {
	Note    GeneratedNote         `json:"note"`
	Context theory.MusicalContext `json:"context"`
}

type ChordEvent struct {
	Notes   []GeneratedNote       `json:"notes"`
	Style   ChordStyle            `json:"style"`
	Bands   []Band                `json:"bands,omitempty"`
	Context theory.MusicalContext `json:"context"`
	At      time.Time             `json:"at"`
}

type PedalEvent struct {
	Pedal   PedalKind `json:"pedal"`
	Engaged bool      `json:"engaged"`
	Value   int       `json:"value"`
	At      time.Time `json:"at"`
}

type ContextChangeEvent struct {
	Context  theory.MusicalContext  `json:"context"`
	Axis     ContextAxis            `json:"axis"`
	Previous *theory.MusicalContext `json:"previous,omitempty"`
}

type SilenceEvent struct {
	DurationMs float64   `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// ReleaseEvent lists the notes held by the sustain pedal at the moment it lifted.
type ReleaseEvent struct {
	Notes []GeneratedNote `json:"notes"`
	At    time.Time       `json:"at"`
}

type AllNotesOffEvent struct {
	At time.Time `json:"at"`
}

func NewPedalEvent(kind PedalKind, engaged bool, at time.Time) PedalEvent {
	value := 0
	if engaged {
		value = 127
	}
	return PedalEvent{Pedal: kind, Engaged: engaged, Value: value, At: at}
}

func (NoteEvent) Kind() Kind          { return KindNote }
func (ChordEvent) Kind() Kind         { return KindChord }
func (PedalEvent) Kind() Kind         { return KindPedal }
func (ContextChangeEvent) Kind() Kind { return KindContextChange }
func (SilenceEvent) Kind() Kind       { return KindSilence }
func (ReleaseEvent) Kind() Kind       { return KindRelease }
func (AllNotesOffEvent) Kind() Kind   { return KindAllNotesOff }

func (NoteEvent) musical()          {}
func (ChordEvent) musical()         {}
func (PedalEvent) musical()         {}
func (ContextChangeEvent) musical() {}
func (SilenceEvent) musical()       {}
func (ReleaseEvent) musical()       {}
func (AllNotesOffEvent) musical()   {}

func musicalType(k Kind) string {
	return "MUSIC_" + strings.ToUpper(string(k))
}

func (e NoteEvent) EventType() string          { return musicalType(e.Kind()) }
func (e ChordEvent) EventType() string         { return musicalType(e.Kind()) }
func (e PedalEvent) EventType() string         { return musicalType(e.Kind()) }
func (e ContextChangeEvent) EventType() string { return TypeContextChanged }
func (e SilenceEvent) EventType() string       { return musicalType(e.Kind()) }
func (e ReleaseEvent) EventType() string       { return musicalType(e.Kind()) }
func (e AllNotesOffEvent) EventType() string   { return musicalType(e.Kind()) }

func (e NoteEvent) Timestamp() time.Time          { return e.Note.EmittedAt }
func (e ChordEvent) Timestamp() time.Time         { return e.At }
func (e PedalEvent) Timestamp() time.Time         { return e.At }
func (e ContextChangeEvent) Timestamp() time.Time { return e.Context.EstablishedAt }
func (e SilenceEvent) Timestamp() time.Time       { return e.At }
func (e ReleaseEvent) Timestamp() time.Time       { return e.At }
func (e AllNotesOffEvent) Timestamp() time.Time   { return e.At }

func contextPayload(c theory.MusicalContext) map[string]interface{} {
	return map[string]interface{}{
		"key":   c.Key.String(),
		"scale": string(c.Scale),
		"mode":  string(c.Mode),
	}
}

func notesPayload(notes []GeneratedNote) []map[string]interface{} {
	out := make([]map[string]interface{}, len(notes))
	for i, n := range notes {
		out[i] = n.payload()
	}
	return out
}

func (e NoteEvent) Payload() map[string]interface{} {
	m := e.Note.payload()
	m["context"] = contextPayload(e.Context)
	return m
}

func (e ChordEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"style":   string(e.Style),
		"notes":   notesPayload(e.Notes),
		"voices":  len(e.Notes),
		"context": contextPayload(e.Context),
	}
}

func (e PedalEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"pedal":   string(e.Pedal),
		"engaged": e.Engaged,
		"value":   e.Value,
	}
}

func (e ContextChangeEvent) Payload() map[string]interface{} {
	m := contextPayload(e.Context)
	m["axis"] = string(e.Axis)
	if e.Previous != nil {
		m["previous"] = contextPayload(*e.Previous)
	}
	return m
}

func (e SilenceEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"duration_ms": e.DurationMs}
}

func (e ReleaseEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"notes": notesPayload(e.Notes)}
}

func (e AllNotesOffEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}
