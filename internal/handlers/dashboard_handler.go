package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/dashboard"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
)

var dashboardJobViews = map[models.UserType]string{
	models.UserTypeSchool:  services.ViewSchoolJobs,
	models.UserTypeCompany: services.ViewCompanyJobs,
	models.UserTypeStudent: services.ViewStudentJobs,
}

// jobFilterForm is the filter bar of a dashboard job list.
type jobFilterForm struct {
	Status  string `form:"status"`
	Search  string `form:"search"`
	Pending bool   `form:"pending"`
}

func (f jobFilterForm) filters() models.JobFilters {
	return models.JobFilters{
		Status:          models.JobStatus(f.Status),
		Search:          strings.TrimSpace(f.Search),
		PendingApproval: f.Pending,
	}
}

type dashboardView struct {
	UserType     models.UserType
	BasePath     string
	Return       string
	PageBase     string
	Overview     dashboard.Overview
	Tabs         []dashboard.TabLink
	Tab          dashboard.Tab
	Filters      jobFilterForm
	Jobs         *services.JobListView
	Applications *services.ApplicationListView
	Users        *services.UserListView
	Roles        []string
	JobStatuses  []models.JobStatus
}

type DashboardHandler struct {
	BaseHandler
	jobs         services.JobService
	applications services.ApplicationService
	users        services.UserService
	tracker      *dashboard.Tracker
}

func NewDashboardHandler(sm services.ServiceManager, tracker *dashboard.Tracker, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:  NewBaseHandler(logger, sm.Flash()),
		jobs:         sm.Job(),
		applications: sm.Application(),
		users:        sm.User(),
		tracker:      tracker,
	}
}

func (h *DashboardHandler) School(c *gin.Context)  { h.show(c, models.UserTypeSchool) }
func (h *DashboardHandler) Company(c *gin.Context) { h.show(c, models.UserTypeCompany) }
func (h *DashboardHandler) Student(c *gin.Context) { h.show(c, models.UserTypeStudent) }

// show renders one dashboard with its active tab. A tab's data is fetched
// when the tab is activated; re-rendering the active tab serves cached data
// unless the page, the filters or ?reload=1 ask for a fetch.
func (h *DashboardHandler) show(c *gin.Context, t models.UserType) {
	ctx := c.Request.Context()
	sess := currentSession(c)
	tab := dashboard.SelectTab(t, c.Query("tab"))

	fetch, err := h.tracker.Activate(ctx, sess.ID, t, tab)
	if err != nil {
		h.log(c).Warn("Failed to track dashboard tab", "error", err)
	}
	reload := fetch || reloadParam(c)
	page := pageParam(c)

	view := dashboardView{
		UserType:    t,
		BasePath:    auth.DashboardPath(t),
		Return:      requestURL(c, "reload"),
		PageBase:    requestURL(c, "reload", "page"),
		Overview:    dashboard.BuildOverview(sess, t),
		Tabs:        dashboard.Tabs(t, tab),
		Tab:         tab,
		JobStatuses: jobStatuses,
	}

	switch tab {
	case dashboard.TabJobs:
		_ = c.ShouldBindQuery(&view.Filters)
		jobs, err := h.jobs.List(ctx, sess, dashboardJobViews[t], services.ListRequest{
			Filters: view.Filters.filters(),
			Page:    page,
			Reload:  reload,
		})
		if err != nil && h.handlePageError(c, err) {
			return
		}
		view.Jobs = jobs
	case dashboard.TabUsers:
		users, err := h.users.List(ctx, sess, reload)
		if err != nil && h.handlePageError(c, err) {
			return
		}
		view.Users = users
		view.Roles = h.users.AssignableRoles(sess)
	case dashboard.TabApplications:
		apps, err := h.applications.StudentApplications(ctx, sess, page, reload)
		if err != nil && h.handlePageError(c, err) {
			return
		}
		view.Applications = apps
	}

	h.render(c, http.StatusOK, "dashboard.html", view.Overview.Title, view)
}
