package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type applicationsView struct {
	JobID        models.ID
	Applications *services.ApplicationListView
	CanManage    bool
	Return       string
	PageBase     string
}

func applicationsPath(jobID models.ID) string {
	return "/dashboard/applications/" + jobID.String()
}

type ApplicationHandler struct {
	BaseHandler
	applications services.ApplicationService
}

func NewApplicationHandler(applications services.ApplicationService, flash services.FlashService, logger utils.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		BaseHandler:  NewBaseHandler(logger, flash),
		applications: applications,
	}
}

// ForJob lists the applications of one job posting
func (h *ApplicationHandler) ForJob(c *gin.Context) {
	sess := currentSession(c)
	jobID := models.ID(c.Param("jobId"))

	apps, err := h.applications.ListForJob(c.Request.Context(), sess, jobID, pageParam(c), reloadParam(c))
	if err != nil && h.handlePageError(c, err) {
		return
	}

	title := "Applications"
	if apps != nil && apps.JobInfo != nil && apps.JobInfo.Title != "" {
		title = "Applications for " + apps.JobInfo.Title
	}
	h.render(c, http.StatusOK, "applications.html", title, applicationsView{
		JobID:        jobID,
		Applications: apps,
		CanManage:    auth.EffectiveType(sess) == models.UserTypeCompany,
		Return:       requestURL(c, "reload"),
		PageBase:     applicationsPath(jobID),
	})
}

// Export downloads every application of the job as a spreadsheet
func (h *ApplicationHandler) Export(c *gin.Context) {
	jobID := models.ID(c.Param("jobId"))
	h.LogRequest(c, "Exporting applications", "job_id", jobID)

	data, filename, err := h.applications.Export(c.Request.Context(), currentSession(c), jobID)
	if err != nil {
		h.handleActionError(c, err, applicationsPath(jobID), services.MsgLoadAppsFailed)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ChangeStatus moves an application to the posted status
func (h *ApplicationHandler) ChangeStatus(c *gin.Context) {
	appID := models.ID(c.Param("id"))
	jobID := models.ID(c.PostForm("jobId"))
	status := models.ApplicationStatus(c.PostForm("status"))
	back := returnPath(c, applicationsPath(jobID))
	h.LogRequest(c, "Changing application status", "application_id", appID, "status", status)

	if err := h.applications.ChangeStatus(c.Request.Context(), currentSession(c), jobID, appID, status); err != nil {
		h.handleActionError(c, err, back, services.MsgStatusFailed)
		return
	}
	h.redirectWithFlash(c, back, services.SuccessFlash(services.MsgStatusUpdated))
}
