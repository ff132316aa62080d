package workflow

import (
	"errors"
	"testing"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

func TestCheckJobTransition(t *testing.T) {
	tests := []struct {
		from, to models.JobStatus
		ok       bool
	}{
		{models.JobStatusDraft, models.JobStatusActive, true},
		{models.JobStatusActive, models.JobStatusExpired, true},
		{models.JobStatusActive, models.JobStatusClosed, true},
		{models.JobStatusActive, models.JobStatusActive, true},
		{models.JobStatusDraft, models.JobStatusClosed, false},
		{models.JobStatusExpired, models.JobStatusActive, false},
		{models.JobStatusClosed, models.JobStatusDraft, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckJobTransition(tt.from, tt.to)
			if tt.ok && err != nil {
				t.Errorf("expected allowed, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrTransitionNotAllowed) {
				t.Errorf("expected ErrTransitionNotAllowed, got %v", err)
			}
		})
	}
}

func TestCheckApplicationTransition(t *testing.T) {
	tests := []struct {
		from, to models.ApplicationStatus
		ok       bool
	}{
		{models.ApplicationPending, models.ApplicationInterviewing, true},
		{models.ApplicationApplied, models.ApplicationAccepted, true},
		{"", models.ApplicationRejected, true},
		{models.ApplicationInterviewing, models.ApplicationAccepted, true},
		{models.ApplicationInterviewing, models.ApplicationPending, false},
		{models.ApplicationAccepted, models.ApplicationRejected, false},
		{models.ApplicationRejected, models.ApplicationInterviewing, false},
		{models.ApplicationAccepted, models.ApplicationAccepted, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckApplicationTransition(tt.from, tt.to)
			if tt.ok != (err == nil) {
				t.Errorf("CheckApplicationTransition(%q, %q) = %v, want ok=%v", tt.from, tt.to, err, tt.ok)
			}
		})
	}
}

func TestParseStatuses(t *testing.T) {
	if _, err := ParseJobStatus("archived"); err == nil {
		t.Error("expected archived to be rejected")
	}
	if s, err := ParseJobStatus("draft"); err != nil || s != models.JobStatusDraft {
		t.Errorf("ParseJobStatus(draft) = %q, %v", s, err)
	}
	if _, err := ParseApplicationStatus("hired"); err == nil {
		t.Error("expected hired to be rejected")
	}
}

func TestNextApplicationStatuses(t *testing.T) {
	if got := NextApplicationStatuses(""); len(got) != 3 {
		t.Errorf("from empty: %v", got)
	}
	if got := NextApplicationStatuses(models.ApplicationAccepted); len(got) != 0 {
		t.Errorf("from accepted: %v", got)
	}
	if !IsTerminal(models.ApplicationRejected) || IsTerminal(models.ApplicationInterviewing) {
		t.Error("unexpected terminal states")
	}
}
