package services

import (
	"context"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/models"
)

// MarketplaceAPI is the part of the remote API the services call.
// *apiclient.Client implements it.
type MarketplaceAPI interface {
	SignUp(ctx context.Context, payload models.SignUpPayload) error
	SignIn(ctx context.Context, creds models.Credentials) (*apiclient.SignInResult, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*models.UserProfile, error)
	ListSchools(ctx context.Context) ([]models.Organization, error)

	ListJobs(ctx context.Context, token string, filters models.JobFilters, page int) (*models.JobPage, error)
	GetJob(ctx context.Context, token string, id models.ID) (*models.JobPosting, error)
	CreateJob(ctx context.Context, token string, payload models.JobPayload) (*models.JobPosting, error)
	UpdateJob(ctx context.Context, token string, id models.ID, payload models.JobPayload) (*models.JobPosting, error)
	DeleteJob(ctx context.Context, token string, id models.ID) error
	ApproveJob(ctx context.Context, token string, id models.ID) error
	ApplyToJob(ctx context.Context, token string, id models.ID, payload models.ApplicationPayload) (*models.Application, error)

	ListJobApplications(ctx context.Context, token string, jobID models.ID, page int) (*models.ApplicationPage, error)
	ListStudentApplications(ctx context.Context, token string, page, limit int) (*models.ApplicationPage, error)
	GetApplication(ctx context.Context, token string, id models.ID) (*models.Application, error)
	UpdateApplicationStatus(ctx context.Context, token string, id models.ID, status models.ApplicationStatus) error

	ListUsers(ctx context.Context, token string) ([]models.ManagedUser, error)
	CreateUser(ctx context.Context, token string, user models.NewUser) (*models.ManagedUser, error)
}

var _ MarketplaceAPI = (*apiclient.Client)(nil)
