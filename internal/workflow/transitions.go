// Package workflow holds the status graphs for job postings and applications.
//
// Job postings:
//
//	draft ──► active ──► expired
//	             └─────► closed
//
// Applications:
//
//	applied / pending ──► interviewing ──► accepted
//	        │                  └─────────► rejected
//	        └──► accepted | rejected
//
// accepted and rejected are terminal. Transitions are checked before the
// remote call is made; the server may enforce its own rules on top.
package workflow

import (
	"errors"
	"fmt"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

var ErrTransitionNotAllowed = errors.New("status transition not allowed")

var jobTransitions = map[models.JobStatus][]models.JobStatus{
	models.JobStatusDraft:  {models.JobStatusActive},
	models.JobStatusActive: {models.JobStatusExpired, models.JobStatusClosed},
}

var applicationTransitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.ApplicationApplied:      {models.ApplicationAccepted, models.ApplicationRejected, models.ApplicationInterviewing},
	models.ApplicationPending:      {models.ApplicationAccepted, models.ApplicationRejected, models.ApplicationInterviewing},
	models.ApplicationInterviewing: {models.ApplicationAccepted, models.ApplicationRejected},
}

// ParseJobStatus converts a raw string to a JobStatus.
func ParseJobStatus(s string) (models.JobStatus, error) {
	st := models.JobStatus(s)
	switch st {
	case models.JobStatusDraft, models.JobStatusActive, models.JobStatusExpired, models.JobStatusClosed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// ParseApplicationStatus converts a raw string to an ApplicationStatus.
func ParseApplicationStatus(s string) (models.ApplicationStatus, error) {
	st := models.ApplicationStatus(s)
	switch st {
	case models.ApplicationApplied, models.ApplicationPending, models.ApplicationAccepted,
		models.ApplicationRejected, models.ApplicationInterviewing:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// CheckJobTransition returns ErrTransitionNotAllowed unless from → to is in
// the job graph. Keeping the current status is always allowed.
func CheckJobTransition(from, to models.JobStatus) error {
	if from == to {
		return nil
	}
	for _, s := range jobTransitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: job %s → %s", ErrTransitionNotAllowed, from, to)
}

// CheckApplicationTransition returns ErrTransitionNotAllowed unless from → to
// is in the application graph. An empty from is treated as applied.
func CheckApplicationTransition(from, to models.ApplicationStatus) error {
	if from == "" {
		from = models.ApplicationApplied
	}
	if from == to {
		return nil
	}
	for _, s := range applicationTransitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: application %s → %s", ErrTransitionNotAllowed, from, to)
}

// NextApplicationStatuses lists the statuses reachable from s, for rendering
// the status controls.
func NextApplicationStatuses(s models.ApplicationStatus) []models.ApplicationStatus {
	if s == "" {
		s = models.ApplicationApplied
	}
	return append([]models.ApplicationStatus(nil), applicationTransitions[s]...)
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.ApplicationStatus) bool {
	return s == models.ApplicationAccepted || s == models.ApplicationRejected
}
