// Package events publishes portal activity (sign-ins, applications, approvals)
// onto a watermill topic so other services and the audit archive can follow it.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "student-power-portal"
	EventVersion = "1.0"
)

type EventType string

const (
	SessionSignedIn          EventType = "session.signed_in"
	SessionLoggedOut         EventType = "session.logged_out"
	SessionInvalidated       EventType = "session.invalidated"
	JobApplied               EventType = "job.applied"
	JobApproved              EventType = "job.approved"
	JobDeleted               EventType = "job.deleted"
	ApplicationStatusChanged EventType = "application.status_changed"
)

type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	UserID    string                 `json:"user_id,omitempty"`
	UserType  string                 `json:"user_type,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent stamps a new event with id, source, version and time.
func NewEvent(t EventType, userID, userType string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      t,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		UserType:  userType,
		Data:      data,
	}
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
