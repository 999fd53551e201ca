package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/pkg/events"
)

type decodedFrame struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Data      json.RawMessage   `json:"data"`
	Midi      []json.RawMessage `json:"midi"`
}

func readFrame(t *testing.T, c *Client) decodedFrame {
	t.Helper()
	select {
	case raw := <-c.Send:
		var f decodedFrame
		require.NoError(t, json.Unmarshal(raw, &f))
		return f
	case <-time.After(time.Second):
		t.Fatal("no frame queued")
	}
	return decodedFrame{}
}

func note(pitch int) events.NoteEvent {
	return events.NoteEvent{Note: events.GeneratedNote{Pitch: pitch, Velocity: 80, DurationMs: 500}}
}

func TestClientEmitFrameShape(t *testing.T) {
	c := NewClient(nil, nil, 4, false, 0, logger.NewNopLogger())
	c.SessionID = uuid.New()

	c.Emit(note(60))
	f := readFrame(t, c)

	assert.Equal(t, "note", f.Type)
	assert.Equal(t, c.SessionID.String(), f.SessionID)
	assert.Contains(t, string(f.Data), `"pitch":60`)
	assert.Empty(t, f.Midi)
}

func TestClientEmitWithMidi(t *testing.T) {
	c := NewClient(nil, nil, 4, true, 2, logger.NewNopLogger())

	c.Emit(note(60))
	f := readFrame(t, c)

	require.Len(t, f.Midi, 2)
	assert.JSONEq(t, `{"bytes":[146,60,80]}`, string(f.Midi[0]))
	assert.JSONEq(t, `{"bytes":[130,60,0],"delay_ms":500}`, string(f.Midi[1]))
}

func TestClientDropsWhenFull(t *testing.T) {
	c := NewClient(nil, nil, 2, false, 0, logger.NewNopLogger())

	for i := 0; i < 5; i++ {
		c.Emit(note(60 + i))
	}

	assert.Len(t, c.Send, 2)
	assert.EqualValues(t, 3, c.Dropped())
}

func TestClientIgnoresEmitAfterClose(t *testing.T) {
	c := NewClient(nil, nil, 2, false, 0, logger.NewNopLogger())
	c.closeSend()
	c.closeSend()

	assert.NotPanics(t, func() { c.Emit(note(60)) })
}

func TestHandleControl(t *testing.T) {
	c := NewClient(nil, nil, 8, false, 0, logger.NewNopLogger())
	var got []string
	onControl := func(msg *ControlMessage) (interface{}, error) {
		got = append(got, msg.Type)
		if msg.Type == ControlConfigure {
			return nil, assert.AnError
		}
		return "ok", nil
	}

	c.handleControl([]byte(`{"type":"ping"}`), onControl)
	assert.Equal(t, "pong", readFrame(t, c).Type)

	c.handleControl([]byte(`{"type":"start"}`), onControl)
	ack := readFrame(t, c)
	assert.Equal(t, "ack", ack.Type)
	assert.JSONEq(t, `{"control":"start","result":"ok"}`, string(ack.Data))

	c.handleControl([]byte(`{"type":"nope"}`), onControl)
	assert.Equal(t, "error", readFrame(t, c).Type)

	c.handleControl([]byte(`{"type":"configure","key":"C"}`), onControl)
	assert.Equal(t, "error", readFrame(t, c).Type)

	assert.Equal(t, []string{"start", "configure"}, got)
}

func TestHubBroadcastAndUnregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, "test", logger.NewNopLogger())
	go hub.Run(ctx)

	a := NewClient(hub, nil, 4, false, 0, logger.NewNopLogger())
	a.SessionID = uuid.New()
	b := NewClient(hub, nil, 4, false, 0, logger.NewNopLogger())
	b.SessionID = uuid.New()
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 5*time.Millisecond)

	hub.Broadcast("weather", map[string]string{"condition": "rain"})
	for _, c := range []*Client{a, b} {
		f := readFrame(t, c)
		assert.Equal(t, "weather", f.Type)
		assert.JSONEq(t, `{"condition":"rain"}`, string(f.Data))
	}

	hub.Unregister(a)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	_, open := <-a.Send
	assert.False(t, open)

	cancel()
	// after the hub stops, unregistering still closes the queue
	require.Eventually(t, func() bool {
		select {
		case <-hub.done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	hub.Unregister(b)
	_, open = <-b.Send
	assert.False(t, open)
}
