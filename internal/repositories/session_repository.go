package repositories

import (
	"context"
	"errors"

	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists one record per browser session. Save replaces
// the whole record atomically.
type SessionRepository interface {
	Load(ctx context.Context, id string) (*models.Session, error)
	Save(ctx context.Context, s *models.Session) error
	Delete(ctx context.Context, id string) error

	// LookupToken maps a bearer token back to the session holding it.
	LookupToken(ctx context.Context, token string) (string, error)

	// ActiveIDs lists sessions that currently hold a token.
	ActiveIDs(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
}

// EventLogRepository archives portal events.
type EventLogRepository interface {
	Record(ctx context.Context, event *events.Event) error
	Recent(ctx context.Context, limit int) ([]*events.Event, error)
	Close() error
}
