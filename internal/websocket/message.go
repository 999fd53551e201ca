package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"ambient-stream-be/pkg/midiwire"
	"ambient-stream-be/pkg/weather"
)

// Control frame types sent by listeners.
const (
	ControlStart     = "start"
	ControlStop      = "stop"
	ControlConfigure = "configure"
	ControlWeather   = "weather"
	ControlPing      = "ping"
)

var validate = validator.New()

// Frame is everything the server writes to a listener.
type Frame struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id,omitempty"`
	Data      interface{}        `json:"data,omitempty"`
	Midi      []midiwire.Message `json:"midi,omitempty"`
}

type ControlMessage struct {
	Type    string          `json:"type" validate:"required,oneof=start stop configure weather ping"`
	Key     string          `json:"key,omitempty" validate:"max=4"`
	Scale   string          `json:"scale,omitempty" validate:"max=32"`
	Mode    string          `json:"mode,omitempty" validate:"max=16"`
	Weather *weather.Sample `json:"weather,omitempty" validate:"required_if=Type weather"`
}

// DecodeControl parses and validates one inbound frame.
func DecodeControl(raw []byte) (*ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed control frame: %w", err)
	}
	if err := validate.Struct(&msg); err != nil {
		return nil, describeInvalid(err)
	}
	if msg.Type == ControlConfigure && msg.Key == "" && msg.Scale == "" && msg.Mode == "" {
		return nil, errors.New("configure needs at least one of key, scale or mode")
	}
	return &msg, nil
}

func describeInvalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "oneof":
		return fmt.Errorf("unknown control type %q", fe.Value())
	case "required_if":
		return fmt.Errorf("%s is required for this type", fe.Field())
	}
	return fmt.Errorf("%s failed %s", fe.Field(), fe.Tag())
}

func ErrorFrame(sessionID string, err error) Frame {
	return Frame{Type: "error", SessionID: sessionID, Data: map[string]string{"message": err.Error()}}
}

func encodeFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}
