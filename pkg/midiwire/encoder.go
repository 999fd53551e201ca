// Package midiwire renders musical events as raw MIDI channel messages for
// clients that drive a synth directly.
package midiwire

import (
	"encoding/json"

	"gitlab.com/gomidi/midi/v2"

	"ambient-stream-be/pkg/events"
)

const (
	ccSustain     = 64
	ccSostenuto   = 66
	ccSoft        = 67
	ccAllNotesOff = 123

	defaultChannel = 0
)

// Message is one MIDI message. Note-offs carry the delay after which the
// client should send them.
type Message struct {
	Bytes   Bytes   `json:"bytes"`
	DelayMs float64 `json:"delay_ms,omitempty"`
}

// Bytes marshals as a JSON array of numbers rather than base64.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

type Encoder struct {
	channel uint8
}

func NewEncoder(channel int) *Encoder {
	if channel < 0 || channel > 15 {
		channel = defaultChannel
	}
	return &Encoder{channel: uint8(channel)}
}

func (e *Encoder) channelFor(n events.GeneratedNote) uint8 {
	if n.Channel != nil && *n.Channel >= 0 && *n.Channel <= 15 {
		return uint8(*n.Channel)
	}
	return e.channel
}

func (e *Encoder) noteMessages(n events.GeneratedNote) []Message {
	ch := e.channelFor(n)
	key := clamp7(n.Pitch)
	return []Message{
		{Bytes: Bytes(midi.NoteOn(ch, key, clamp7(n.Velocity)))},
		{Bytes: Bytes(midi.NoteOff(ch, key)), DelayMs: n.DurationMs},
	}
}

// Encode returns nil for events with no MIDI rendering (silence, context changes).
func (e *Encoder) Encode(evt events.MusicalEvent) []Message {
	switch v := evt.(type) {
	case events.NoteEvent:
		return e.noteMessages(v.Note)
	case events.ChordEvent:
		out := make([]Message, 0, 2*len(v.Notes))
		for _, n := range v.Notes {
			out = append(out, e.noteMessages(n)...)
		}
		return out
	case events.PedalEvent:
		var cc uint8
		switch v.Pedal {
		case events.PedalSustain:
			cc = ccSustain
		case events.PedalSostenuto:
			cc = ccSostenuto
		case events.PedalSoft:
			cc = ccSoft
		default:
			return nil
		}
		return []Message{{Bytes: Bytes(midi.ControlChange(e.channel, cc, clamp7(v.Value)))}}
	case events.ReleaseEvent:
		out := make([]Message, 0, len(v.Notes))
		for _, n := range v.Notes {
			out = append(out, Message{Bytes: Bytes(midi.NoteOff(e.channelFor(n), clamp7(n.Pitch)))})
		}
		return out
	case events.AllNotesOffEvent:
		return []Message{
			{Bytes: Bytes(midi.ControlChange(e.channel, ccSustain, 0))},
			{Bytes: Bytes(midi.ControlChange(e.channel, ccAllNotesOff, 0))},
		}
	}
	return nil
}

func clamp7(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
