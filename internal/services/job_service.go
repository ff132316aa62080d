package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

// Job list views. Each dashboard keeps its own list state.
const (
	ViewSchoolJobs  = "jobs:school"
	ViewCompanyJobs = "jobs:company"
	ViewStudentJobs = "jobs:student"
	ViewPublicJobs  = "jobs:public"
)

type jobService struct {
	api       MarketplaceAPI
	views     *viewStore
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewJobService(api MarketplaceAPI, cm *cache.CacheManager, publisher events.EventPublisher, v *validator.Validator, logger *slog.Logger) JobService {
	return &jobService{
		api:       api,
		views:     newViewStore(cm, logger),
		publisher: publisher,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// ApplyButtonState is the label of the apply control for job.
func ApplyButtonState(job models.JobPosting, applying bool) string {
	switch {
	case job.HasApplied:
		return AppliedLabel
	case applying:
		return ApplyingLabel
	}
	return ApplyLabel
}

// scopeFilters pins the filters each view is allowed to see. Only the
// company status filter and the school pending toggle come from the request.
func scopeFilters(view string, sess *models.Session, req models.JobFilters) models.JobFilters {
	var profile models.UserProfile
	if sess.Profile != nil {
		profile = *sess.Profile
	}

	switch view {
	case ViewSchoolJobs:
		f := models.JobFilters{Status: models.JobStatusActive, PendingApproval: req.PendingApproval}
		if profile.School != nil {
			f.SchoolID = profile.School.ID
		}
		return f
	case ViewCompanyJobs:
		f := models.JobFilters{Status: req.Status, Search: req.Search}
		if profile.Company != nil {
			f.CompanyID = profile.Company.ID
		}
		return f
	case ViewStudentJobs:
		f := models.JobFilters{Status: models.JobStatusActive, Search: req.Search}
		if profile.School != nil {
			f.SchoolID = profile.School.ID
		}
		return f
	}
	return models.JobFilters{Status: models.JobStatusActive, Search: req.Search}
}

// List returns one page of a job list view. Cached state is served when it
// matches the request; otherwise the page is fetched and stored unless a
// newer request for the same view was dispatched meanwhile.
func (s *jobService) List(ctx context.Context, sess *models.Session, view string, req ListRequest) (*JobListView, error) {
	if req.Page < 1 {
		return nil, validator.ValidationErrors{{Field: "page", Message: "must be at least 1", Value: req.Page, Rule: "min"}}
	}
	filters := scopeFilters(view, sess, req.Filters)

	var cached JobListView
	hit, err := s.views.load(ctx, sess.ID, view, &cached)
	if err != nil {
		s.logger.Warn("Failed to load job view", "view", view, "error", err)
	}
	if hit && !req.Reload && cached.Error == "" && cached.Page == req.Page && cached.Filters == filters {
		return s.overlay(ctx, sess, &cached), nil
	}

	seq, err := s.views.begin(ctx, sess.ID, view)
	if err != nil {
		return nil, fmt.Errorf("failed to start job request: %w", err)
	}

	next := JobListView{Filters: filters, Page: req.Page, FetchedAt: s.now()}
	page, fetchErr := s.api.ListJobs(ctx, sess.Token, filters, req.Page)
	if fetchErr != nil {
		s.logger.Warn("Failed to fetch jobs", "view", view, "page", req.Page, "error", fetchErr)
		// carried over items stay labeled with the page they came from
		if hit {
			next.Filters, next.Page = cached.Filters, cached.Page
			next.Jobs = cached.Jobs
			next.Pagination = cached.Pagination
		} else {
			next.Pagination = models.NormalizePagination(nil)
		}
		next.Error = MsgLoadJobsFailed
	} else {
		next.Jobs = page.Jobs
		next.Pagination = models.NormalizePagination(page.Pagination)
	}

	stored, err := s.views.commit(ctx, sess.ID, view, seq, &next)
	if err != nil {
		s.logger.Warn("Failed to store job view", "view", view, "error", err)
	}
	next.Stale = err == nil && !stored
	return s.overlay(ctx, sess, &next), fetchErr
}

// Cached returns the stored state of view without fetching.
func (s *jobService) Cached(ctx context.Context, sess *models.Session, view string) (*JobListView, error) {
	var v JobListView
	hit, err := s.views.load(ctx, sess.ID, view, &v)
	if err != nil || !hit {
		return nil, err
	}
	return s.overlay(ctx, sess, &v), nil
}

// overlay applies the session's own pending and completed applications to a
// list that may predate them.
func (s *jobService) overlay(ctx context.Context, sess *models.Session, v *JobListView) *JobListView {
	if auth.EffectiveType(sess) != models.UserTypeStudent || len(v.Jobs) == 0 {
		return v
	}
	applied := s.views.applied(ctx, sess.ID)
	names := make([]string, len(v.Jobs))
	for i := range v.Jobs {
		if applied[v.Jobs[i].ID.String()] {
			v.Jobs[i].HasApplied = true
		}
		names[i] = applyGuard + v.Jobs[i].ID.String()
	}
	held := s.views.held(ctx, sess.ID, names...)
	v.Applying = make(map[models.ID]bool, len(held))
	for i := range v.Jobs {
		if held[names[i]] {
			v.Applying[v.Jobs[i].ID] = true
		}
	}
	return v
}

func (s *jobService) ApplyStates(ctx context.Context, sess *models.Session, jobs []models.JobPosting) map[models.ID]string {
	v := s.overlay(ctx, sess, &JobListView{Jobs: append([]models.JobPosting(nil), jobs...)})
	out := make(map[models.ID]string, len(v.Jobs))
	for _, j := range v.Jobs {
		out[j.ID] = ApplyButtonState(j, v.Applying[j.ID])
	}
	return out
}

func (s *jobService) Get(ctx context.Context, sess *models.Session, id models.ID) (*models.JobPosting, error) {
	job, err := s.api.GetJob(ctx, sess.Token, id)
	if err != nil {
		return nil, apiclient.Friendly(err, MsgLoadJobFailed)
	}
	if auth.EffectiveType(sess) == models.UserTypeStudent && s.views.applied(ctx, sess.ID)[id.String()] {
		job.HasApplied = true
	}
	return job, nil
}

func (s *jobService) Create(ctx context.Context, sess *models.Session, form *validator.JobForm) (*models.JobPosting, error) {
	if auth.EffectiveType(sess) != models.UserTypeCompany {
		return nil, ErrForbidden
	}
	if errs := s.validator.ValidateJob(form, nil); len(errs) > 0 {
		return nil, errs
	}

	job, err := s.api.CreateJob(ctx, sess.Token, form.Payload())
	if err != nil {
		s.logger.Warn("Failed to create job", "user_id", sess.UserID(), "error", err)
		return nil, apiclient.Friendly(err, MsgSaveJobFailed)
	}
	// New rows change ordering and totals; the list is fetched again.
	cache.SafeDelete(ctx, s.views.cache.View, cache.ViewKey(sess.ID, ViewCompanyJobs))
	s.logger.Info("Job created", "user_id", sess.UserID(), "title", form.Title)
	return job, nil
}

func (s *jobService) Update(ctx context.Context, sess *models.Session, id models.ID, form *validator.JobForm) (*models.JobPosting, error) {
	if auth.EffectiveType(sess) != models.UserTypeCompany {
		return nil, ErrForbidden
	}

	current, err := s.api.GetJob(ctx, sess.Token, id)
	if err != nil {
		return nil, apiclient.Friendly(err, MsgSaveJobFailed)
	}
	if errs := s.validator.ValidateJob(form, current); len(errs) > 0 {
		return nil, errs
	}

	job, err := s.api.UpdateJob(ctx, sess.Token, id, form.Payload())
	if err != nil {
		s.logger.Warn("Failed to update job", "job_id", id, "error", err)
		return nil, apiclient.Friendly(err, MsgSaveJobFailed)
	}
	if job == nil {
		job = current
	}

	var v JobListView
	err = s.views.mutate(ctx, sess.ID, ViewCompanyJobs, &v, func() (bool, error) {
		for i := range v.Jobs {
			if v.Jobs[i].ID == id {
				v.Jobs[i] = *job
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		s.logger.Warn("Failed to update cached job", "job_id", id, "error", err)
	}
	s.logger.Info("Job updated", "job_id", id, "status", job.Status)
	return job, nil
}

// Delete removes a job. The caller must pass confirmed=true once the user
// confirmed; the list view drops the row without a refetch.
func (s *jobService) Delete(ctx context.Context, sess *models.Session, id models.ID, confirmed bool) error {
	if auth.EffectiveType(sess) != models.UserTypeCompany {
		return ErrForbidden
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	if err := s.api.DeleteJob(ctx, sess.Token, id); err != nil {
		s.logger.Warn("Failed to delete job", "job_id", id, "error", err)
		return apiclient.Friendly(err, MsgDeleteJobFailed)
	}

	var v JobListView
	err := s.views.mutate(ctx, sess.ID, ViewCompanyJobs, &v, func() (bool, error) {
		for i := range v.Jobs {
			if v.Jobs[i].ID == id {
				v.Jobs = append(v.Jobs[:i], v.Jobs[i+1:]...)
				if v.Pagination.TotalItems > 0 {
					v.Pagination.TotalItems--
				}
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		s.logger.Warn("Failed to update cached jobs", "job_id", id, "error", err)
	}

	s.logger.Info("Job deleted", "job_id", id, "user_id", sess.UserID())
	s.publish(ctx, events.JobDeleted, sess, map[string]interface{}{"job_id": id.String()})
	return nil
}

// Apply submits an application for the signed in student. Only one apply per
// job may be in flight for a session.
func (s *jobService) Apply(ctx context.Context, sess *models.Session, id models.ID, form *validator.ApplyForm) (*models.Application, error) {
	if auth.EffectiveType(sess) != models.UserTypeStudent {
		return nil, ErrForbidden
	}
	if form == nil {
		form = &validator.ApplyForm{}
	}
	if errs := s.validator.Validate(form); len(errs) > 0 {
		return nil, errs
	}

	guard := applyGuard + id.String()
	ok, err := s.views.acquire(ctx, sess.ID, guard)
	if err != nil {
		return nil, fmt.Errorf("failed to mark application in flight: %w", err)
	}
	if !ok {
		return nil, ErrApplyInFlight
	}
	defer s.views.release(ctx, sess.ID, guard)

	app, err := s.api.ApplyToJob(ctx, sess.Token, id, models.ApplicationPayload{CoverLetter: form.CoverLetter})
	if err != nil {
		s.logger.Warn("Failed to apply for job", "job_id", id, "user_id", sess.UserID(), "error", err)
		return nil, apiclient.Friendly(err, MsgApplyFailed)
	}

	if err := s.views.markApplied(ctx, sess.ID, id.String()); err != nil {
		s.logger.Warn("Failed to record application", "job_id", id, "error", err)
	}
	for _, view := range []string{ViewStudentJobs, ViewPublicJobs} {
		var v JobListView
		err := s.views.mutate(ctx, sess.ID, view, &v, func() (bool, error) {
			for i := range v.Jobs {
				if v.Jobs[i].ID == id && !v.Jobs[i].HasApplied {
					v.Jobs[i].HasApplied = true
					v.Jobs[i].ApplicationCount++
					return true, nil
				}
			}
			return false, nil
		})
		if err != nil {
			s.logger.Warn("Failed to update cached jobs", "view", view, "job_id", id, "error", err)
		}
	}
	cache.SafeDelete(ctx, s.views.cache.View, cache.ViewKey(sess.ID, viewMyApps))

	s.logger.Info("Applied for job", "job_id", id, "user_id", sess.UserID())
	s.publish(ctx, events.JobApplied, sess, map[string]interface{}{"job_id": id.String()})
	return app, nil
}

// Approve records the school's approval. The cached row shows a pending
// approval until the next fetch brings the server's version.
func (s *jobService) Approve(ctx context.Context, sess *models.Session, id models.ID) error {
	if auth.EffectiveType(sess) != models.UserTypeSchool {
		return ErrForbidden
	}

	if err := s.api.ApproveJob(ctx, sess.Token, id); err != nil {
		s.logger.Warn("Failed to approve job", "job_id", id, "error", err)
		return apiclient.Friendly(err, MsgApproveFailed)
	}

	var v JobListView
	err := s.views.mutate(ctx, sess.ID, ViewSchoolJobs, &v, func() (bool, error) {
		for i := range v.Jobs {
			if v.Jobs[i].ID == id {
				v.Jobs[i].ApprovalCount++
				v.Jobs[i].SchoolApproval = &models.Approval{
					ID:      "pending-" + uuid.NewString(),
					Status:  "approved",
					Pending: true,
				}
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		s.logger.Warn("Failed to update cached jobs", "job_id", id, "error", err)
	}

	s.logger.Info("Job approved", "job_id", id, "user_id", sess.UserID())
	s.publish(ctx, events.JobApproved, sess, map[string]interface{}{"job_id": id.String()})
	return nil
}

func (s *jobService) publish(ctx context.Context, t events.EventType, sess *models.Session, data map[string]interface{}) {
	data["session_id"] = sess.ID
	ev := events.NewEvent(t, sess.UserID().String(), string(auth.EffectiveType(sess)), data)
	events.SafePublish(ctx, s.publisher, s.logger, ev)
}
