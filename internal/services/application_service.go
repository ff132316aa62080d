package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

// maxExportPages bounds how many pages an export walks through.
const maxExportPages = 100

type applicationService struct {
	api       MarketplaceAPI
	views     *viewStore
	exporter  *ExportService
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewApplicationService(api MarketplaceAPI, cm *cache.CacheManager, exporter *ExportService, publisher events.EventPublisher, v *validator.Validator, logger *slog.Logger) ApplicationService {
	return &applicationService{
		api:       api,
		views:     newViewStore(cm, logger),
		exporter:  exporter,
		publisher: publisher,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

func jobApplicationsView(jobID models.ID) string { return jobAppsView + jobID.String() }

type applicationFetch func(page int) (*models.ApplicationPage, error)

// list is shared by both application views. It follows the same latest-wins
// rules as the job lists.
func (s *applicationService) list(ctx context.Context, sess *models.Session, view string, jobID models.ID, page int, reload bool, fallback string, fetch applicationFetch) (*ApplicationListView, error) {
	if page < 1 {
		return nil, validator.ValidationErrors{{Field: "page", Message: "must be at least 1", Value: page, Rule: "min"}}
	}

	var cached ApplicationListView
	hit, err := s.views.load(ctx, sess.ID, view, &cached)
	if err != nil {
		s.logger.Warn("Failed to load application view", "view", view, "error", err)
	}
	if hit && !reload && cached.Error == "" && cached.Page == page {
		return &cached, nil
	}

	seq, err := s.views.begin(ctx, sess.ID, view)
	if err != nil {
		return nil, fmt.Errorf("failed to start application request: %w", err)
	}

	next := ApplicationListView{JobID: jobID, Page: page, FetchedAt: s.now()}
	res, fetchErr := fetch(page)
	if fetchErr != nil {
		s.logger.Warn("Failed to fetch applications", "view", view, "page", page, "error", fetchErr)
		if hit {
			next.Page = cached.Page
			next.Applications = cached.Applications
			next.JobInfo = cached.JobInfo
			next.Pagination = cached.Pagination
		} else {
			next.Pagination = models.NormalizePagination(nil)
		}
		next.Error = fallback
	} else {
		next.Applications = res.Applications
		next.JobInfo = res.JobInfo
		next.Pagination = models.NormalizePagination(res.Pagination)
	}

	stored, err := s.views.commit(ctx, sess.ID, view, seq, &next)
	if err != nil {
		s.logger.Warn("Failed to store application view", "view", view, "error", err)
	}
	next.Stale = err == nil && !stored
	return &next, fetchErr
}

// ListForJob lists the applications received by one job posting.
func (s *applicationService) ListForJob(ctx context.Context, sess *models.Session, jobID models.ID, page int, reload bool) (*ApplicationListView, error) {
	return s.list(ctx, sess, jobApplicationsView(jobID), jobID, page, reload, MsgLoadAppsFailed, func(p int) (*models.ApplicationPage, error) {
		return s.api.ListJobApplications(ctx, sess.Token, jobID, p)
	})
}

// StudentApplications lists the signed in student's own applications.
func (s *applicationService) StudentApplications(ctx context.Context, sess *models.Session, page int, reload bool) (*ApplicationListView, error) {
	if auth.EffectiveType(sess) != models.UserTypeStudent {
		return nil, ErrForbidden
	}
	return s.list(ctx, sess, viewMyApps, "", page, reload, MsgLoadMyAppsFailed, func(p int) (*models.ApplicationPage, error) {
		return s.api.ListStudentApplications(ctx, sess.Token, p, models.PageSize)
	})
}

// ChangeStatus moves an application along its workflow and updates the
// cached row in place.
func (s *applicationService) ChangeStatus(ctx context.Context, sess *models.Session, jobID, appID models.ID, status models.ApplicationStatus) error {
	if auth.EffectiveType(sess) != models.UserTypeCompany {
		return ErrForbidden
	}
	if errs := s.validator.Validate(&validator.StatusForm{Status: string(status)}); len(errs) > 0 {
		return errs
	}

	view := jobApplicationsView(jobID)
	from, err := s.currentStatus(ctx, sess, view, appID)
	if err != nil {
		return apiclient.Friendly(err, MsgStatusFailed)
	}
	if errs := s.validator.ValidateApplicationTransition(from, status); len(errs) > 0 {
		return errs
	}

	if err := s.api.UpdateApplicationStatus(ctx, sess.Token, appID, status); err != nil {
		s.logger.Warn("Failed to update application status", "application_id", appID, "status", status, "error", err)
		return apiclient.Friendly(err, MsgStatusFailed)
	}

	var v ApplicationListView
	err = s.views.mutate(ctx, sess.ID, view, &v, func() (bool, error) {
		for i := range v.Applications {
			if v.Applications[i].ID == appID {
				v.Applications[i].Status = status
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		s.logger.Warn("Failed to update cached application", "application_id", appID, "error", err)
	}

	s.logger.Info("Application status changed", "application_id", appID, "from", from.OrApplied(), "to", status)
	ev := events.NewEvent(events.ApplicationStatusChanged, sess.UserID().String(), string(auth.EffectiveType(sess)), map[string]interface{}{
		"session_id":     sess.ID,
		"job_id":         jobID.String(),
		"application_id": appID.String(),
		"from":           string(from.OrApplied()),
		"to":             string(status),
	})
	events.SafePublish(ctx, s.publisher, s.logger, ev)
	return nil
}

// currentStatus reads the status from the cached row, asking the API only
// when the row is not cached.
func (s *applicationService) currentStatus(ctx context.Context, sess *models.Session, view string, appID models.ID) (models.ApplicationStatus, error) {
	var v ApplicationListView
	if hit, _ := s.views.load(ctx, sess.ID, view, &v); hit {
		for _, a := range v.Applications {
			if a.ID == appID {
				return a.Status, nil
			}
		}
	}
	app, err := s.api.GetApplication(ctx, sess.Token, appID)
	if err != nil {
		return "", err
	}
	return app.Status, nil
}

// Export renders every application of jobID as an xlsx workbook and returns
// it with a file name.
func (s *applicationService) Export(ctx context.Context, sess *models.Session, jobID models.ID) ([]byte, string, error) {
	if auth.EffectiveType(sess) != models.UserTypeCompany {
		return nil, "", ErrForbidden
	}

	var (
		all     []models.Application
		jobInfo *models.JobPosting
	)
	for page := 1; page <= maxExportPages; page++ {
		res, err := s.api.ListJobApplications(ctx, sess.Token, jobID, page)
		if err != nil {
			return nil, "", apiclient.Friendly(err, MsgLoadAppsFailed)
		}
		all = append(all, res.Applications...)
		if jobInfo == nil {
			jobInfo = res.JobInfo
		}
		if p := models.NormalizePagination(res.Pagination); page >= p.TotalPages {
			break
		}
	}

	data, err := s.exporter.Applications(jobInfo, all)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("Exported applications", "job_id", jobID, "count", len(all))
	return data, fmt.Sprintf("applications-%s.xlsx", jobID), nil
}
