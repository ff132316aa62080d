package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/victorcreed/student-power-frontend/internal/repositories"
)

// SessionRevalidator periodically re-verifies every signed in session so a
// revoked or expired token is cleared without waiting for the next request.
type SessionRevalidator struct {
	cron     *cron.Cron
	sessions repositories.SessionRepository
	service  SessionService
	logger   *slog.Logger
	schedule string
}

func NewSessionRevalidator(sessions repositories.SessionRepository, service SessionService, interval time.Duration, logger *slog.Logger) *SessionRevalidator {
	return &SessionRevalidator{
		cron:     cron.New(),
		sessions: sessions,
		service:  service,
		logger:   logger,
		schedule: fmt.Sprintf("@every %s", interval),
	}
}

// Start registers the sweep and starts the scheduler.
func (r *SessionRevalidator) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() { r.Sweep(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	r.cron.Start()
	r.logger.Info("Session revalidation started", "schedule", r.schedule)
	return nil
}

// Stop waits for a running sweep to finish or ctx to expire.
func (r *SessionRevalidator) Stop(ctx context.Context) {
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	r.logger.Info("Session revalidation stopped")
}

// Sweep verifies each active session once. It returns how many sessions were
// checked and how many were cleared.
func (r *SessionRevalidator) Sweep(ctx context.Context) (checked, cleared int) {
	ids, err := r.sessions.ActiveIDs(ctx)
	if err != nil {
		r.logger.Error("Failed to list active sessions", "error", err)
		return 0, 0
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		checked++
		sess, err := r.service.VerifyUser(ctx, id)
		if err == nil && !sess.IsAuthenticated() {
			if derr := r.sessions.Delete(ctx, id); derr != nil {
				r.logger.Error("Failed to drop inactive session", "session_id", id, "error", derr)
			}
		}
		if err != nil || !sess.IsAuthenticated() {
			cleared++
		}
	}
	if checked > 0 {
		r.logger.Info("Session sweep complete", "checked", checked, "cleared", cleared)
	}
	return checked, cleared
}
