package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambient-stream-be/internal/pkg/serverutils"
	"ambient-stream-be/internal/service"
	"ambient-stream-be/internal/session"
)

// closingStream reports a successful transition for a session that is gone
// from the live set by the time anyone looks it up again.
type closingStream struct {
	service.IStreamService
	known uuid.UUID
}

func (s *closingStream) Get(uuid.UUID) (*session.Session, bool) { return nil, false }

func (s *closingStream) Start(id uuid.UUID) (session.Snapshot, error) {
	if id != s.known {
		return session.Snapshot{}, service.ErrSessionNotFound
	}
	return session.Snapshot{ID: id, State: session.StateStreaming}, nil
}

func (s *closingStream) Stop(id uuid.UUID) (session.Snapshot, error) {
	if id != s.known {
		return session.Snapshot{}, service.ErrSessionNotFound
	}
	return session.Snapshot{ID: id, State: session.StateIdle}, nil
}

func newSessionApp(stream service.IStreamService) *fiber.App {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	NewSessionController(stream, "").RegisterRoutes(app.Group("/api"))
	return app
}

func TestSessionTransitionAfterDisconnect(t *testing.T) {
	id := uuid.New()
	app := newSessionApp(&closingStream{known: id})

	tests := []struct {
		path  string
		code  int
		state session.State
	}{
		{"/api/sessions/" + id.String() + "/start", http.StatusOK, session.StateStreaming},
		{"/api/sessions/" + id.String() + "/stop", http.StatusOK, session.StateIdle},
		{"/api/sessions/" + uuid.NewString() + "/start", http.StatusNotFound, ""},
		{"/api/sessions/bogus/stop", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(http.MethodPost, tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
			if tt.code != http.StatusOK {
				return
			}

			body, _ := io.ReadAll(resp.Body)
			var env struct {
				Data session.Snapshot `json:"data"`
			}
			require.NoError(t, json.Unmarshal(body, &env))
			assert.Equal(t, id, env.Data.ID)
			assert.Equal(t, tt.state, env.Data.State)
		})
	}
}
