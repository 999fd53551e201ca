package midiwire

import (
	"bytes"
	"testing"
	"time"

	"ambient-stream-be/pkg/events"
)

func TestEncodeNote(t *testing.T) {
	enc := NewEncoder(0)
	msgs := enc.Encode(events.NoteEvent{Note: events.GeneratedNote{Pitch: 60, Velocity: 100, DurationMs: 750}})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if !bytes.Equal(msgs[0].Bytes, []byte{0x90, 60, 100}) {
		t.Errorf("note on = % X", msgs[0].Bytes)
	}
	if msgs[1].Bytes[0]&0xF0 != 0x80 || msgs[1].Bytes[1] != 60 {
		t.Errorf("note off = % X", msgs[1].Bytes)
	}
	if msgs[1].DelayMs != 750 {
		t.Errorf("note off delay = %v", msgs[1].DelayMs)
	}
}

func TestEncodeUsesNoteChannel(t *testing.T) {
	ch := 9
	msgs := NewEncoder(2).Encode(events.NoteEvent{Note: events.GeneratedNote{Pitch: 36, Velocity: 90, DurationMs: 100, Channel: &ch}})
	if msgs[0].Bytes[0] != 0x99 {
		t.Errorf("status = %X, want 99", msgs[0].Bytes[0])
	}
}

func TestEncodePedals(t *testing.T) {
	enc := NewEncoder(1)
	tests := []struct {
		kind events.PedalKind
		cc   byte
	}{
		{events.PedalSustain, 64},
		{events.PedalSostenuto, 66},
		{events.PedalSoft, 67},
	}
	for _, tt := range tests {
		msgs := enc.Encode(events.NewPedalEvent(tt.kind, true, time.Now()))
		if len(msgs) != 1 || !bytes.Equal(msgs[0].Bytes, []byte{0xB1, tt.cc, 127}) {
			t.Errorf("%s: %v", tt.kind, msgs)
		}
	}
}

func TestEncodeAllNotesOffAndSilence(t *testing.T) {
	enc := NewEncoder(0)
	msgs := enc.Encode(events.AllNotesOffEvent{})
	if len(msgs) != 2 || msgs[1].Bytes[1] != 123 {
		t.Errorf("all notes off = %v", msgs)
	}
	if got := enc.Encode(events.SilenceEvent{DurationMs: 300}); got != nil {
		t.Errorf("silence encoded to %v", got)
	}
}

func TestEncodeChordAndRelease(t *testing.T) {
	enc := NewEncoder(0)
	notes := []events.GeneratedNote{{Pitch: 60, Velocity: 80, DurationMs: 1}, {Pitch: 64, Velocity: 80, DurationMs: 1}}
	if got := enc.Encode(events.ChordEvent{Notes: notes}); len(got) != 4 {
		t.Errorf("chord produced %d messages", len(got))
	}
	if got := enc.Encode(events.ReleaseEvent{Notes: notes}); len(got) != 2 {
		t.Errorf("release produced %d messages", len(got))
	}
}

func TestBytesMarshalAsNumbers(t *testing.T) {
	out, err := Message{Bytes: Bytes{0x90, 60, 100}}.Bytes.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "[144,60,100]" {
		t.Errorf("marshalled %s", out)
	}
}
