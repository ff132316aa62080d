package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/repositories"
)

// PortalEvent is one archived portal event.
type PortalEvent struct {
	ID         uint           `gorm:"primaryKey"`
	EventID    string         `gorm:"size:64;uniqueIndex;not null"`
	Type       string         `gorm:"size:64;index;not null"`
	Source     string         `gorm:"size:64"`
	Version    string         `gorm:"size:16"`
	UserID     string         `gorm:"size:64;index"`
	UserType   string         `gorm:"size:16"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt time.Time      `gorm:"index;not null"`
	CreatedAt  time.Time
}

func (PortalEvent) TableName() string { return "portal_events" }

type EventLogPostgreSQL struct {
	db *gorm.DB
}

func NewEventLogPostgreSQL(db *gorm.DB) repositories.EventLogRepository {
	return &EventLogPostgreSQL{db: db}
}

// Migrate creates or updates the portal_events table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&PortalEvent{})
}

// Record inserts the event; replays of the same event id are ignored.
func (r *EventLogPostgreSQL) Record(ctx context.Context, event *events.Event) error {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	row := PortalEvent{
		EventID:    event.ID,
		Type:       string(event.Type),
		Source:     event.Source,
		Version:    event.Version,
		UserID:     event.UserID,
		UserType:   event.UserType,
		Payload:    datatypes.JSON(payload),
		OccurredAt: event.Timestamp,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("record event %s: %w", event.ID, err)
	}
	return nil
}

// Recent returns the newest events first.
func (r *EventLogPostgreSQL) Recent(ctx context.Context, limit int) ([]*events.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []PortalEvent
	if err := r.db.WithContext(ctx).Order("occurred_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}

	out := make([]*events.Event, 0, len(rows))
	for _, row := range rows {
		e := &events.Event{
			ID:        row.EventID,
			Type:      events.EventType(row.Type),
			Source:    row.Source,
			Version:   row.Version,
			Timestamp: row.OccurredAt,
			UserID:    row.UserID,
			UserType:  row.UserType,
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &e.Data); err != nil {
				return nil, fmt.Errorf("decode event %s: %w", row.EventID, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *EventLogPostgreSQL) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
