package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"ambient-stream-be/internal/pkg/logger"
	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/service"
	"ambient-stream-be/internal/session"
	internalWS "ambient-stream-be/internal/websocket"
	"ambient-stream-be/pkg/generator"
	"ambient-stream-be/pkg/theory"
	"ambient-stream-be/pkg/weather"
)

type StreamHandlerConfig struct {
	JwtSecret   string
	AutoStart   bool
	SendBuffer  int
	MidiChannel int
}

type StreamHandler struct {
	stream service.IStreamService
	hub    *internalWS.Hub
	cfg    StreamHandlerConfig
	logger logger.ILogger
}

func NewStreamHandler(stream service.IStreamService, hub *internalWS.Hub, cfg StreamHandlerConfig, log logger.ILogger) *StreamHandler {
	return &StreamHandler{stream: stream, hub: hub, cfg: cfg, logger: log}
}

// ServeWs opens a session for the caller and streams it over a websocket.
func (h *StreamHandler) ServeWs(c *fiber.Ctx) error {
	userID := ""
	if h.cfg.JwtSecret != "" {
		id, err := serverutils.ParseToken(h.cfg.JwtSecret, serverutils.BearerToken(c))
		if err != nil {
			h.logger.Warn("StreamHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "invalid token"))
		}
		userID = id
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	opts := service.OpenOptions{
		Key:        c.Query("key"),
		Scale:      c.Query("scale"),
		Mode:       c.Query("mode"),
		Preset:     c.Query("preset"),
		RemoteAddr: c.IP(),
	}
	client := internalWS.NewClient(h.hub, nil, h.cfg.SendBuffer, c.QueryBool("midi", false), h.cfg.MidiChannel, h.logger)

	sess, err := h.stream.Open(c.UserContext(), client, opts)
	if err != nil {
		return openError(err)
	}
	client.SessionID = sess.ID

	err = websocket.New(func(conn *websocket.Conn) {
		defer h.stream.Close(sess.ID)

		h.logger.Info("StreamHandler", "Starting WebSocket session", map[string]interface{}{
			"session_id": sess.ID.String(), "user_id": userID,
		})
		client.SendFrame(internalWS.Frame{Type: "session", Data: sess.Snapshot()})
		if h.cfg.AutoStart {
			sess.Start()
		}
		internalWS.ServeWs(client, conn, h.controlFor(sess))
		h.logger.Info("StreamHandler", "WebSocket session ended", map[string]interface{}{
			"session_id": sess.ID.String(), "dropped": client.Dropped(),
		})
	})(c)
	if err != nil {
		h.stream.Close(sess.ID)
	}
	return err
}

func (h *StreamHandler) controlFor(sess *session.Session) internalWS.ControlFunc {
	return func(msg *internalWS.ControlMessage) (interface{}, error) {
		switch msg.Type {
		case internalWS.ControlStart:
			changed := sess.Start()
			return map[string]interface{}{"changed": changed, "state": sess.State()}, nil
		case internalWS.ControlStop:
			changed := sess.Stop()
			return map[string]interface{}{"changed": changed, "state": sess.State()}, nil
		case internalWS.ControlConfigure:
			if err := sess.Configure(msg.Key, msg.Scale, msg.Mode); err != nil {
				return nil, err
			}
			return sess.Snapshot().Context, nil
		case internalWS.ControlWeather:
			if msg.Weather.ObservedAt.IsZero() {
				msg.Weather.ObservedAt = time.Now().UTC()
			}
			sess.ApplyWeather(msg.Weather)
			return weather.DeriveGenerationParameters(msg.Weather), nil
		}
		return nil, fmt.Errorf("unsupported control %q", msg.Type)
	}
}

func openError(err error) error {
	switch {
	case errors.Is(err, service.ErrPresetNotFound):
		return serverutils.NewHTTPError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, theory.ErrUnknownKey),
		errors.Is(err, theory.ErrUnknownScale),
		errors.Is(err, theory.ErrUnknownMode),
		errors.Is(err, generator.ErrInvalidConfig):
		return serverutils.NewHTTPError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return serverutils.NewHTTPError(fiber.StatusGatewayTimeout, err.Error())
	}
	return err
}

// RegisterRoutes registers the websocket endpoint.
func (h *StreamHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
