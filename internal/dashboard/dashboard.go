// Package dashboard describes the per-role dashboard shells: which tabs exist,
// which one is active and what the overview card shows.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/models"
)

type Tab string

const (
	TabOverview     Tab = "overview"
	TabJobs         Tab = "jobs"
	TabUsers        Tab = "users"
	TabApplications Tab = "applications"
)

// TabLink is a tab as rendered in the navigation.
type TabLink struct {
	Tab    Tab
	Label  string
	Active bool
}

var tabs = map[models.UserType][]TabLink{
	models.UserTypeSchool:  {{Tab: TabOverview, Label: "Overview"}, {Tab: TabJobs, Label: "Projects"}, {Tab: TabUsers, Label: "Users"}},
	models.UserTypeCompany: {{Tab: TabOverview, Label: "Overview"}, {Tab: TabJobs, Label: "Jobs"}, {Tab: TabUsers, Label: "Users"}},
	models.UserTypeStudent: {{Tab: TabOverview, Label: "Overview"}, {Tab: TabJobs, Label: "Jobs"}, {Tab: TabApplications, Label: "My Applications"}},
}

// Tabs returns the navigation of t's dashboard with active marked.
func Tabs(t models.UserType, active Tab) []TabLink {
	out := append([]TabLink(nil), tabs[t]...)
	for i := range out {
		out[i].Active = out[i].Tab == active
	}
	return out
}

// SelectTab parses a requested tab. Anything the dashboard does not offer
// selects the overview.
func SelectTab(t models.UserType, raw string) Tab {
	for _, l := range tabs[t] {
		if string(l.Tab) == raw {
			return l.Tab
		}
	}
	return TabOverview
}

// Overview is the profile card. It is built from the session alone.
type Overview struct {
	Title    string
	Name     string
	Email    string
	OrgLabel string
}

func BuildOverview(s *models.Session, t models.UserType) Overview {
	o := Overview{}
	var p models.UserProfile
	if s != nil && s.Profile != nil {
		p = *s.Profile
	}
	if p.User != nil {
		o.Name, o.Email = p.User.Name, p.User.Email
	}

	switch t {
	case models.UserTypeSchool:
		o.Title, o.OrgLabel = "School Dashboard", "School Profile"
		if p.School != nil && p.School.Name != "" {
			o.Name = p.School.Name
		}
	case models.UserTypeCompany:
		o.Title, o.OrgLabel = "Company Dashboard", "Company Profile"
		if p.Company != nil && p.Company.Name != "" {
			o.Name = p.Company.Name
		}
	case models.UserTypeStudent:
		o.Title, o.OrgLabel = "Student Dashboard", "Student Profile"
		if p.School != nil {
			o.OrgLabel = p.School.Name
		}
	}
	return o
}

// TabState is what a dashboard remembers between requests.
type TabState struct {
	ActiveTab Tab          `json:"active_tab"`
	Loaded    map[Tab]bool `json:"loaded,omitempty"`
}

// Tracker records the active tab of each dashboard per session.
type Tracker struct {
	cache *cache.CacheManager
}

func NewTracker(cm *cache.CacheManager) *Tracker {
	return &Tracker{cache: cm}
}

func stateKey(sid string, t models.UserType) string {
	return cache.ViewKey(sid, "tabs:"+string(t))
}

// Activate makes tab the active tab of t's dashboard. It reports whether the
// tab's data should be fetched: on first activation and whenever the user
// switches to it from another tab. Re-rendering the active tab reuses the
// cached data.
func (tr *Tracker) Activate(ctx context.Context, sid string, t models.UserType, tab Tab) (bool, error) {
	var st TabState
	err := tr.cache.View.Get(ctx, stateKey(sid, t), &st)
	if err != nil && !errors.Is(err, cache.ErrCacheNotFound) {
		return true, fmt.Errorf("failed to load tab state: %w", err)
	}

	fetch := ShouldFetch(st, tab)
	if st.Loaded == nil {
		st.Loaded = map[Tab]bool{}
	}
	st.ActiveTab = tab
	st.Loaded[tab] = true
	if err := tr.cache.View.Set(ctx, stateKey(sid, t), st, cache.ViewCacheConfig.TTL); err != nil {
		return fetch, fmt.Errorf("failed to save tab state: %w", err)
	}
	return fetch, nil
}

// ShouldFetch is the fetch decision of Activate. The overview never fetches.
func ShouldFetch(prev TabState, tab Tab) bool {
	if tab == TabOverview {
		return false
	}
	return !prev.Loaded[tab] || prev.ActiveTab != tab
}
