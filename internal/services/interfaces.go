package services

import (
	"context"
	"errors"
	"time"

	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

var (
	ErrSessionInvalid       = errors.New("session is no longer valid")
	ErrForbidden            = errors.New("action not allowed for this user")
	ErrApplyInFlight        = errors.New("application already in progress for this job")
	ErrConfirmationRequired = errors.New("confirmation required")
)

// User-facing fallback messages, used when the API gives no text of its own.
const (
	MsgSignInFailed     = "Failed to sign in"
	MsgSignUpFailed     = "Failed to sign up"
	MsgLoadJobsFailed   = "Failed to load jobs. Please try again."
	MsgLoadJobFailed    = "Failed to load job details. Please try again."
	MsgSaveJobFailed    = "Failed to save job. Please try again."
	MsgDeleteJobFailed  = "Failed to delete job. Please try again."
	MsgApplyFailed      = "Failed to apply for the job. Please try again."
	MsgApproveFailed    = "Failed to approve job. Please try again."
	MsgLoadAppsFailed   = "Failed to load applications. Please try again."
	MsgLoadMyAppsFailed = "Failed to load your applications. Please try again."
	MsgStatusFailed     = "Failed to update application status. Please try again."
	MsgLoadUsersFailed  = "Failed to load users. Please try again."
	MsgCreateUserFailed = "Failed to create user. Please try again."
	MsgApplySucceeded   = "Successfully applied for the job!"
	MsgJobCreated       = "Job created successfully!"
	MsgJobUpdated       = "Job updated successfully!"
	MsgJobDeleted       = "Job deleted successfully."
	MsgJobApproved      = "Job approved."
	MsgStatusUpdated    = "Application status updated."
	MsgUserCreated      = "User created successfully!"
	MsgSignUpSucceeded  = "Account created. Please sign in."
)

// Apply button labels.
const (
	ApplyLabel    = "Apply"
	ApplyingLabel = "Applying..."
	AppliedLabel  = "Applied"
)

// ===== VIEW STATE DTOs =====

// JobListView is the cached state of one job list view of a session.
type JobListView struct {
	Filters    models.JobFilters   `json:"filters"`
	Page       int                 `json:"page"`
	Jobs       []models.JobPosting `json:"jobs"`
	Pagination models.Pagination   `json:"pagination"`
	Error      string              `json:"error,omitempty"`
	FetchedAt  time.Time           `json:"fetched_at"`

	// Stale marks a response that lost the race to a newer request; it is
	// rendered but was not stored.
	Stale bool `json:"-"`
	// Applying holds job ids with an apply request in flight.
	Applying map[models.ID]bool `json:"-"`
}

// Empty reports whether there is nothing to list.
func (v *JobListView) Empty() bool { return len(v.Jobs) == 0 }

// ApplyState returns the apply button label for job.
func (v *JobListView) ApplyState(job models.JobPosting) string {
	return ApplyButtonState(job, v.Applying[job.ID])
}

// ApplicationListView is the cached state of one application list view.
type ApplicationListView struct {
	JobID        models.ID            `json:"job_id,omitempty"`
	Page         int                  `json:"page"`
	Applications []models.Application `json:"applications"`
	JobInfo      *models.JobPosting   `json:"job_info,omitempty"`
	Pagination   models.Pagination    `json:"pagination"`
	Error        string               `json:"error,omitempty"`
	FetchedAt    time.Time            `json:"fetched_at"`

	Stale bool `json:"-"`
}

func (v *ApplicationListView) Empty() bool { return len(v.Applications) == 0 }

// UserListView is the cached users list of an admin.
type UserListView struct {
	Users     []models.ManagedUser `json:"users"`
	Error     string               `json:"error,omitempty"`
	FetchedAt time.Time            `json:"fetched_at"`
}

// Flash is a one-shot banner shown on the next rendered page.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ListRequest describes which page of a list view is wanted. Reload forces a
// fetch even when cached state matches.
type ListRequest struct {
	Filters models.JobFilters
	Page    int
	Reload  bool
}

// ===== SERVICE INTERFACES =====

type SessionService interface {
	Current(ctx context.Context, sid string) (*models.Session, error)
	SignIn(ctx context.Context, sid string, form *validator.SignInForm) (*models.Session, error)
	SignUp(ctx context.Context, form *validator.SignUpForm) error
	VerifyUser(ctx context.Context, sid string) (*models.Session, error)
	Logout(ctx context.Context, sid string) error
	ClearByToken(ctx context.Context, token string)

	NeedsVerification(s *models.Session) bool
	IsLoading(s *models.Session) bool
	Schools(ctx context.Context) ([]models.Organization, error)
}

type JobService interface {
	List(ctx context.Context, s *models.Session, view string, req ListRequest) (*JobListView, error)
	Cached(ctx context.Context, s *models.Session, view string) (*JobListView, error)
	Get(ctx context.Context, s *models.Session, id models.ID) (*models.JobPosting, error)
	Create(ctx context.Context, s *models.Session, form *validator.JobForm) (*models.JobPosting, error)
	Update(ctx context.Context, s *models.Session, id models.ID, form *validator.JobForm) (*models.JobPosting, error)
	Delete(ctx context.Context, s *models.Session, id models.ID, confirmed bool) error
	Apply(ctx context.Context, s *models.Session, id models.ID, form *validator.ApplyForm) (*models.Application, error)
	Approve(ctx context.Context, s *models.Session, id models.ID) error
	ApplyStates(ctx context.Context, s *models.Session, jobs []models.JobPosting) map[models.ID]string
}

type ApplicationService interface {
	ListForJob(ctx context.Context, s *models.Session, jobID models.ID, page int, reload bool) (*ApplicationListView, error)
	StudentApplications(ctx context.Context, s *models.Session, page int, reload bool) (*ApplicationListView, error)
	ChangeStatus(ctx context.Context, s *models.Session, jobID, appID models.ID, status models.ApplicationStatus) error
	Export(ctx context.Context, s *models.Session, jobID models.ID) ([]byte, string, error)
}

type UserService interface {
	List(ctx context.Context, s *models.Session, reload bool) (*UserListView, error)
	Create(ctx context.Context, s *models.Session, form *validator.UserForm) (*models.ManagedUser, error)
	AssignableRoles(s *models.Session) []string
}

type FlashService interface {
	Push(ctx context.Context, sid string, f Flash)
	Pop(ctx context.Context, sid string) *Flash
}

// ServiceManager groups the portal services
type ServiceManager interface {
	Session() SessionService
	Job() JobService
	Application() ApplicationService
	User() UserService
	Flash() FlashService
	Revalidator() *SessionRevalidator

	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	Health(ctx context.Context) map[string]string
}
