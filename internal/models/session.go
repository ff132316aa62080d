package models

import "time"

// SessionVersion is bumped whenever the persisted session record changes shape.
// Records written with another version are discarded on load.
const SessionVersion = 1

// Session is the single persisted record describing who is signed in and as
// what. Token, type and profile always travel together.
type Session struct {
	Version         int          `json:"version"`
	ID              string       `json:"id"`
	Token           string       `json:"token,omitempty"`
	RawRole         string       `json:"raw_role,omitempty"`
	ResolvedType    UserType     `json:"resolved_type,omitempty"`
	Profile         *UserProfile `json:"profile,omitempty"`
	IsLoading       bool         `json:"is_loading,omitempty"`
	LoadingSince    time.Time    `json:"loading_since,omitempty"`
	AuthenticatedAt time.Time    `json:"authenticated_at,omitempty"`
	LastVerifiedAt  time.Time    `json:"last_verified_at,omitempty"`
}

// NewAnonymousSession returns an empty session bound to id.
func NewAnonymousSession(id string) *Session {
	return &Session{Version: SessionVersion, ID: id}
}

// IsAuthenticated is true only when a token is present, whatever the other
// fields say.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != ""
}

// UserID returns the id of the signed-in user, if the profile carries one.
func (s *Session) UserID() ID {
	if s == nil || s.Profile == nil || s.Profile.User == nil {
		return ""
	}
	return s.Profile.User.ID
}

// Role returns the raw role of the profile user, falling back to the role
// captured at sign-in.
func (s *Session) Role() string {
	if s == nil {
		return ""
	}
	if s.Profile != nil && s.Profile.User != nil && s.Profile.User.Role != "" {
		return s.Profile.User.Role
	}
	return s.RawRole
}
