package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

const (
	companyJobsPath = auth.PathCompanyDashboard + "?tab=jobs"
	schoolJobsPath  = auth.PathSchoolDashboard + "?tab=jobs"
	studentJobsPath = auth.PathStudentDashboard + "?tab=jobs"
)

var jobStatuses = []models.JobStatus{models.JobStatusDraft, models.JobStatusActive, models.JobStatusExpired, models.JobStatusClosed}

type publicJobsView struct {
	Search   string
	Jobs     *services.JobListView
	UserType models.UserType
	Return   string
	PageBase string
}

type jobDetailView struct {
	Job        *models.JobPosting
	ApplyState string
	CanApply   bool
	CanEdit    bool
	CanApprove bool
	Return     string
}

type jobFormView struct {
	formView
	JobID    models.ID
	Statuses []models.JobStatus
}

type JobHandler struct {
	BaseHandler
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService, flash services.FlashService, logger utils.Logger) *JobHandler {
	return &JobHandler{
		BaseHandler: NewBaseHandler(logger, flash),
		jobs:        jobs,
	}
}

// Public lists the active jobs open to everyone. The list is fetched on every
// visit; a student's own applications are overlaid on it.
func (h *JobHandler) Public(c *gin.Context) {
	sess := currentSession(c)
	search := strings.TrimSpace(c.Query("search"))

	jobs, err := h.jobs.List(c.Request.Context(), sess, services.ViewPublicJobs, services.ListRequest{
		Filters: models.JobFilters{Search: search},
		Page:    pageParam(c),
		Reload:  true,
	})
	if err != nil && h.handlePageError(c, err) {
		return
	}
	h.render(c, http.StatusOK, "jobs_public.html", "Jobs", publicJobsView{
		Search:   search,
		Jobs:     jobs,
		UserType: auth.EffectiveType(sess),
		Return:   requestURL(c, "reload"),
		PageBase: requestURL(c, "reload", "page"),
	})
}

// Detail renders one job posting
func (h *JobHandler) Detail(c *gin.Context) {
	sess := currentSession(c)
	id := models.ID(c.Param("id"))

	job, err := h.jobs.Get(c.Request.Context(), sess, id)
	if err != nil {
		h.jobLoadFailed(c, err)
		return
	}

	t := auth.EffectiveType(sess)
	view := jobDetailView{
		Job:        job,
		CanApply:   sess.IsAuthenticated() && t == models.UserTypeStudent,
		CanEdit:    sess.IsAuthenticated() && t == models.UserTypeCompany,
		CanApprove: sess.IsAuthenticated() && t == models.UserTypeSchool,
		Return:     c.Request.URL.Path,
	}
	if view.CanApply {
		view.ApplyState = h.jobs.ApplyStates(c.Request.Context(), sess, []models.JobPosting{*job})[job.ID]
	}
	h.render(c, http.StatusOK, "job_detail.html", job.Title, view)
}

func (h *JobHandler) NewJob(c *gin.Context) {
	h.renderForm(c, http.StatusOK, jobFormView{formView: formView{Values: validator.JobForm{Status: string(models.JobStatusDraft)}}})
}

// Edit renders the edit form prefilled from the current posting
func (h *JobHandler) Edit(c *gin.Context) {
	sess := currentSession(c)
	id := models.ID(c.Param("id"))

	job, err := h.jobs.Get(c.Request.Context(), sess, id)
	if err != nil {
		h.jobLoadFailed(c, err)
		return
	}
	form := validator.JobForm{Title: job.Title, Description: job.Description, Status: string(job.Status)}
	if job.ExpiresAt != nil {
		form.ExpiresAt = job.ExpiresAt.Format(validator.DateLayout)
	}
	h.renderForm(c, http.StatusOK, jobFormView{formView: formView{Values: form}, JobID: job.ID})
}

// Create posts a new job for the signed in company
func (h *JobHandler) Create(c *gin.Context) {
	var form validator.JobForm
	_ = c.ShouldBind(&form)
	h.LogRequest(c, "Creating job", "title", form.Title)

	if _, err := h.jobs.Create(c.Request.Context(), currentSession(c), &form); err != nil {
		h.formFailed(c, err, jobFormView{formView: formView{Values: form}}, "/jobs/new", services.MsgSaveJobFailed)
		return
	}
	h.redirectWithFlash(c, companyJobsPath, services.SuccessFlash(services.MsgJobCreated))
}

// Update saves an edited job posting
func (h *JobHandler) Update(c *gin.Context) {
	id := models.ID(c.Param("id"))
	var form validator.JobForm
	_ = c.ShouldBind(&form)
	h.LogRequest(c, "Updating job", "job_id", id)

	if _, err := h.jobs.Update(c.Request.Context(), currentSession(c), id, &form); err != nil {
		h.formFailed(c, err, jobFormView{formView: formView{Values: form}, JobID: id}, "/jobs/"+id.String()+"/edit", services.MsgSaveJobFailed)
		return
	}
	h.redirectWithFlash(c, companyJobsPath, services.SuccessFlash(services.MsgJobUpdated))
}

// Delete removes a job posting. Without confirm=yes it renders the
// confirmation page instead.
func (h *JobHandler) Delete(c *gin.Context) {
	sess := currentSession(c)
	id := models.ID(c.Param("id"))
	confirmed := c.PostForm("confirm") == "yes"
	back := returnPath(c, companyJobsPath)

	err := h.jobs.Delete(c.Request.Context(), sess, id, confirmed)
	switch {
	case errors.Is(err, services.ErrConfirmationRequired):
		h.render(c, http.StatusOK, "job_confirm_delete.html", "Delete job", jobDetailView{
			Job:    &models.JobPosting{ID: id, Title: c.PostForm("title")},
			Return: back,
		})
	case err != nil:
		h.handleActionError(c, err, back, services.MsgDeleteJobFailed)
	default:
		h.LogRequest(c, "Deleted job", "job_id", id)
		h.redirectWithFlash(c, back, services.SuccessFlash(services.MsgJobDeleted))
	}
}

// Apply submits the signed in student's application
func (h *JobHandler) Apply(c *gin.Context) {
	id := models.ID(c.Param("id"))
	back := returnPath(c, studentJobsPath)
	var form validator.ApplyForm
	_ = c.ShouldBind(&form)

	if _, err := h.jobs.Apply(c.Request.Context(), currentSession(c), id, &form); err != nil {
		h.handleActionError(c, err, back, services.MsgApplyFailed)
		return
	}
	h.redirectWithFlash(c, back, services.SuccessFlash(services.MsgApplySucceeded))
}

// Approve records the signed in school's approval
func (h *JobHandler) Approve(c *gin.Context) {
	id := models.ID(c.Param("id"))
	back := returnPath(c, schoolJobsPath)

	if err := h.jobs.Approve(c.Request.Context(), currentSession(c), id); err != nil {
		h.handleActionError(c, err, back, services.MsgApproveFailed)
		return
	}
	h.redirectWithFlash(c, back, services.SuccessFlash(services.MsgJobApproved))
}

func (h *JobHandler) renderForm(c *gin.Context, status int, view jobFormView) {
	view.Statuses = jobStatuses
	title := "New job"
	if view.JobID != "" {
		title = "Edit job"
	}
	h.render(c, status, "job_form.html", title, view)
}

// formFailed re-renders the job form for field errors and falls back to the
// flash-and-redirect path for everything else.
func (h *JobHandler) formFailed(c *gin.Context, err error, view jobFormView, back, fallback string) {
	var verrs validator.ValidationErrors
	var uerr *apiclient.UserError
	switch {
	case errors.As(err, &verrs):
		view.Errors = verrs.ByField()
		h.renderForm(c, http.StatusUnprocessableEntity, view)
	case errors.As(err, &uerr) && !errors.Is(err, apiclient.ErrUnauthorized):
		view.Error = uerr.Message
		h.renderForm(c, http.StatusBadGateway, view)
	default:
		h.handleActionError(c, err, back, fallback)
	}
}

func (h *JobHandler) jobLoadFailed(c *gin.Context, err error) {
	switch {
	case h.handlePageError(c, err):
	case errors.Is(err, apiclient.ErrNotFound):
		h.renderError(c, http.StatusNotFound, "Job not found")
	default:
		h.LogError(c, err, "Failed to load job")
		h.renderError(c, http.StatusBadGateway, apiclient.MessageOr(err, services.MsgLoadJobFailed))
	}
}
