package apiclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

const (
	pathSignUp              = "/auth/signup"
	pathSignIn              = "/auth/signin"
	pathLogout              = "/auth/logout"
	pathMe                  = "/auth/me"
	pathSchools             = "/schools"
	pathJobs                = "/jobs"
	pathJob                 = "/jobs/{id}"
	pathJobApprove          = "/jobs/{id}/approve"
	pathJobApplications     = "/jobs/{id}/applications"
	pathStudentApplications = "/users/applications"
	pathApplication         = "/applications/{id}"
	pathApplicationStatus   = "/applications/{id}/status"
	pathUsers               = "/users"
)

// SignInResult is the sign-in envelope: the token plus the user/organization
// payload.
type SignInResult struct {
	Token string              `json:"token"`
	Data  *models.UserProfile `json:"data"`
}

type jobListEnvelope struct {
	Data models.JobPage `json:"data"`
}

type jobEnvelope struct {
	Success *bool              `json:"success,omitempty"`
	Job     *models.JobPosting `json:"job"`
	Data    *struct {
		Job *models.JobPosting `json:"job"`
	} `json:"data,omitempty"`
}

func (e *jobEnvelope) job() *models.JobPosting {
	if e.Job != nil {
		return e.Job
	}
	if e.Data != nil {
		return e.Data.Job
	}
	return nil
}

type applicationListEnvelope struct {
	Data models.ApplicationPage `json:"data"`
}

type applicationEnvelope struct {
	Application *models.Application `json:"application"`
	Data        *models.Application `json:"data,omitempty"`
}

func (e *applicationEnvelope) application() *models.Application {
	if e.Application != nil {
		return e.Application
	}
	return e.Data
}

type usersEnvelope struct {
	Users []models.ManagedUser `json:"users"`
	Data  []models.ManagedUser `json:"data,omitempty"`
}

type userEnvelope struct {
	User *models.ManagedUser `json:"user"`
}

type schoolsEnvelope struct {
	Schools []models.Organization `json:"schools"`
	Data    []models.Organization `json:"data,omitempty"`
}

var errEmptyBody = errors.New("empty response body")

// ===== AUTH =====

func (c *Client) SignUp(ctx context.Context, payload models.SignUpPayload) error {
	return c.send(ctx, call{method: http.MethodPost, path: pathSignUp, body: payload})
}

func (c *Client) SignIn(ctx context.Context, creds models.Credentials) (*SignInResult, error) {
	var out SignInResult
	if err := c.send(ctx, call{method: http.MethodPost, path: pathSignIn, body: creds, result: &out, signIn: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.send(ctx, call{method: http.MethodPost, path: pathLogout, token: token})
}

// Me fetches the profile of the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*models.UserProfile, error) {
	var out models.UserProfile
	if err := c.send(ctx, call{method: http.MethodGet, path: pathMe, token: token, result: &out}); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, errEmptyBody
	}
	return &out, nil
}

func (c *Client) ListSchools(ctx context.Context) ([]models.Organization, error) {
	var out schoolsEnvelope
	if err := c.send(ctx, call{method: http.MethodGet, path: pathSchools, result: &out}); err != nil {
		return nil, err
	}
	if len(out.Schools) == 0 {
		return out.Data, nil
	}
	return out.Schools, nil
}

// ===== JOBS =====

func (c *Client) ListJobs(ctx context.Context, token string, filters models.JobFilters, page int) (*models.JobPage, error) {
	q := pageQuery(page, models.PageSize)
	if filters.Status != "" {
		q["status"] = string(filters.Status)
	}
	if filters.SchoolID != "" {
		q["schoolId"] = filters.SchoolID.String()
	}
	if filters.CompanyID != "" {
		q["companyId"] = filters.CompanyID.String()
	}
	if filters.PendingApproval {
		q["pendingApproval"] = "true"
	}
	if filters.Search != "" {
		q["search"] = filters.Search
	}

	var out jobListEnvelope
	if err := c.send(ctx, call{method: http.MethodGet, path: pathJobs, token: token, query: q, result: &out}); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) GetJob(ctx context.Context, token string, id models.ID) (*models.JobPosting, error) {
	var out jobEnvelope
	err := c.send(ctx, call{method: http.MethodGet, path: pathJob, token: token,
		pathParams: map[string]string{"id": id.String()}, result: &out})
	if err != nil {
		return nil, err
	}
	if out.Success != nil && !*out.Success || out.job() == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Job not found"}
	}
	return out.job(), nil
}

func (c *Client) CreateJob(ctx context.Context, token string, payload models.JobPayload) (*models.JobPosting, error) {
	var out jobEnvelope
	if err := c.send(ctx, call{method: http.MethodPost, path: pathJobs, token: token, body: payload, result: &out}); err != nil {
		return nil, err
	}
	return out.job(), nil
}

func (c *Client) UpdateJob(ctx context.Context, token string, id models.ID, payload models.JobPayload) (*models.JobPosting, error) {
	var out jobEnvelope
	err := c.send(ctx, call{method: http.MethodPut, path: pathJob, token: token,
		pathParams: map[string]string{"id": id.String()}, body: payload, result: &out})
	if err != nil {
		return nil, err
	}
	return out.job(), nil
}

func (c *Client) DeleteJob(ctx context.Context, token string, id models.ID) error {
	return c.send(ctx, call{method: http.MethodDelete, path: pathJob, token: token,
		pathParams: map[string]string{"id": id.String()}})
}

func (c *Client) ApproveJob(ctx context.Context, token string, id models.ID) error {
	return c.send(ctx, call{method: http.MethodPatch, path: pathJobApprove, token: token,
		pathParams: map[string]string{"id": id.String()}})
}

func (c *Client) ApplyToJob(ctx context.Context, token string, id models.ID, payload models.ApplicationPayload) (*models.Application, error) {
	var out applicationEnvelope
	err := c.send(ctx, call{method: http.MethodPost, path: pathJobApplications, token: token,
		pathParams: map[string]string{"id": id.String()}, body: payload, result: &out})
	if err != nil {
		return nil, err
	}
	return out.application(), nil
}

// ===== APPLICATIONS =====

func (c *Client) ListJobApplications(ctx context.Context, token string, jobID models.ID, page int) (*models.ApplicationPage, error) {
	var out applicationListEnvelope
	err := c.send(ctx, call{method: http.MethodGet, path: pathJobApplications, token: token,
		pathParams: map[string]string{"id": jobID.String()}, query: pageQuery(page, models.PageSize), result: &out})
	if err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) ListStudentApplications(ctx context.Context, token string, page, limit int) (*models.ApplicationPage, error) {
	var out applicationListEnvelope
	err := c.send(ctx, call{method: http.MethodGet, path: pathStudentApplications, token: token,
		query: pageQuery(page, limit), result: &out})
	if err != nil {
		return nil, err
	}
	return &out.Data, nil
}

func (c *Client) GetApplication(ctx context.Context, token string, id models.ID) (*models.Application, error) {
	var out applicationEnvelope
	err := c.send(ctx, call{method: http.MethodGet, path: pathApplication, token: token,
		pathParams: map[string]string{"id": id.String()}, result: &out})
	if err != nil {
		return nil, err
	}
	if out.application() == nil {
		return nil, &APIError{StatusCode: http.StatusNotFound, Message: "Application not found"}
	}
	return out.application(), nil
}

func (c *Client) UpdateApplicationStatus(ctx context.Context, token string, id models.ID, status models.ApplicationStatus) error {
	return c.send(ctx, call{method: http.MethodPatch, path: pathApplicationStatus, token: token,
		pathParams: map[string]string{"id": id.String()}, body: map[string]string{"status": string(status)}})
}

// ===== USERS =====

func (c *Client) ListUsers(ctx context.Context, token string) ([]models.ManagedUser, error) {
	var out usersEnvelope
	if err := c.send(ctx, call{method: http.MethodGet, path: pathUsers, token: token, result: &out}); err != nil {
		return nil, err
	}
	if len(out.Users) == 0 {
		return out.Data, nil
	}
	return out.Users, nil
}

func (c *Client) CreateUser(ctx context.Context, token string, user models.NewUser) (*models.ManagedUser, error) {
	var out userEnvelope
	if err := c.send(ctx, call{method: http.MethodPost, path: pathUsers, token: token, body: user, result: &out}); err != nil {
		return nil, err
	}
	return out.User, nil
}
