package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session record not found")

const (
	StatusStreaming = "STREAMING"
	StatusIdle      = "IDLE"
	StatusClosed    = "CLOSED"
)

// SessionRecord is the registry view of a live stream session. It never
// contains generated music.
type SessionRecord struct {
	ID         string    `json:"id"`
	InstanceID string    `json:"instance_id"`
	Status     string    `json:"status"`
	Key        string    `json:"key"`
	Scale      string    `json:"scale"`
	Mode       string    `json:"mode"`
	Preset     string    `json:"preset,omitempty"`
	Emitted    int64     `json:"emitted"`
	TickErrors int       `json:"tick_errors"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Store keeps session records. Implementations expire stale records on their own.
type Store interface {
	// Save creates or replaces a record and refreshes its expiry.
	Save(ctx context.Context, rec *SessionRecord) error
	// Get returns ErrNotFound when the record is missing or expired.
	Get(ctx context.Context, id string) (*SessionRecord, error)
	List(ctx context.Context) ([]SessionRecord, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
