package nats

import (
	"testing"
	"time"
)

func TestDecodeEnvelope(t *testing.T) {
	raw := []byte(`{"type":"WEATHER_SAMPLE","data":{"temperature_c":3.5},"occurred_at":"2024-02-01T10:00:00Z"}`)
	evt, err := Decode("events.WEATHER_SAMPLE", raw)
	if err != nil {
		t.Fatal(err)
	}
	if evt.EventType() != "WEATHER_SAMPLE" {
		t.Errorf("type = %s", evt.EventType())
	}
	if evt.Payload()["temperature_c"] != 3.5 {
		t.Errorf("payload = %v", evt.Payload())
	}
	if !evt.Timestamp().Equal(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("timestamp = %v", evt.Timestamp())
	}
}

func TestDecodeBarePayloadUsesSubject(t *testing.T) {
	evt, err := Decode("events.WEATHER_SAMPLE", []byte(`{"temperature_c":21,"condition_code":61}`))
	if err != nil {
		t.Fatal(err)
	}
	if evt.EventType() != "WEATHER_SAMPLE" {
		t.Errorf("type = %s", evt.EventType())
	}
	if evt.Payload()["condition_code"] != float64(61) {
		t.Errorf("payload = %v", evt.Payload())
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode("events.X", []byte("not json")); err == nil {
		t.Error("expected an error")
	}
}

func TestSubject(t *testing.T) {
	if got := Subject("SESSION_STARTED"); got != "events.SESSION_STARTED" {
		t.Errorf("Subject = %s", got)
	}
}
