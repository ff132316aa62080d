package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

const msgSessionExpired = "Your session has expired. Please sign in again."

// ErrorResponse is the JSON error body of the non-HTML endpoints
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Page is what every template receives. Data carries the page specific view.
type Page struct {
	Title         string
	Authenticated bool
	UserType      models.UserType
	UserName      string
	DashboardPath string
	Flash         *services.Flash
	Data          interface{}
}

type BaseHandler struct {
	logger utils.Logger
	flash  services.FlashService
}

func NewBaseHandler(logger utils.Logger, flash services.FlashService) BaseHandler {
	return BaseHandler{logger: logger, flash: flash}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.FromContext(c.Request.Context(), h.logger)
}

// LogRequest logs an incoming request with the given message
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...interface{}) {
	args = append(args, "method", c.Request.Method, "path", c.Request.URL.Path)
	h.log(c).Info(msg, args...)
}

// LogError logs err along with the request it failed
func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...interface{}) {
	args = append(args, "error", err, "method", c.Request.Method, "path", c.Request.URL.Path)
	h.log(c).Error(msg, args...)
}

// render executes the named template. The pending flash, if any, is consumed.
func (h *BaseHandler) render(c *gin.Context, status int, name, title string, data interface{}) {
	sess := currentSession(c)
	p := Page{Title: title, Data: data}
	if sess.IsAuthenticated() {
		p.Authenticated = true
		p.UserType = auth.EffectiveType(sess)
		p.DashboardPath = auth.DashboardPath(p.UserType)
		if sess.Profile != nil && sess.Profile.User != nil {
			p.UserName = sess.Profile.User.Name
		}
	}
	if h.flash != nil {
		p.Flash = h.flash.Pop(c.Request.Context(), sess.ID)
	}
	c.HTML(status, name, p)
}

type errorPage struct {
	Status  int
	Message string
}

func (h *BaseHandler) renderError(c *gin.Context, status int, msg string) {
	h.render(c, status, "error.html", http.StatusText(status), errorPage{Status: status, Message: msg})
	c.Abort()
}

// pushFlash queues f for the next page rendered for this session.
func (h *BaseHandler) pushFlash(c *gin.Context, f services.Flash) {
	if h.flash != nil {
		h.flash.Push(c.Request.Context(), currentSession(c).ID, f)
	}
}

func (h *BaseHandler) redirectWithFlash(c *gin.Context, target string, f services.Flash) {
	h.pushFlash(c, f)
	redirect(c, target)
}

// handleActionError turns a failed form action into a flash plus a redirect
// back to where the form was posted from.
func (h *BaseHandler) handleActionError(c *gin.Context, err error, back, fallback string) {
	var verrs validator.ValidationErrors
	var uerr *apiclient.UserError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		h.redirectWithFlash(c, auth.PathSignIn, services.ErrorFlash(msgSessionExpired))
	case errors.Is(err, services.ErrForbidden):
		h.renderError(c, http.StatusForbidden, "You are not allowed to do that.")
	case errors.As(err, &verrs) && len(verrs) > 0:
		h.redirectWithFlash(c, back, services.ErrorFlash(verrs[0].Field+": "+verrs[0].Message))
	case errors.Is(err, services.ErrApplyInFlight):
		redirect(c, back)
	case errors.As(err, &uerr):
		h.LogError(c, err, "Action failed")
		h.redirectWithFlash(c, back, services.ErrorFlash(uerr.Message))
	default:
		h.LogError(c, err, "Action failed")
		h.redirectWithFlash(c, back, services.ErrorFlash(fallback))
	}
}

// handlePageError answers a failed page load. It reports false when err is
// not one of the errors that end the request.
func (h *BaseHandler) handlePageError(c *gin.Context, err error) bool {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized):
		h.redirectWithFlash(c, auth.PathSignIn, services.ErrorFlash(msgSessionExpired))
	case errors.Is(err, services.ErrForbidden):
		h.renderError(c, http.StatusForbidden, "You are not allowed to view this page.")
	case errors.As(err, &verrs):
		h.renderError(c, http.StatusBadRequest, verrs.Error())
	default:
		return false
	}
	return true
}

// redirect sends the browser to target. Form posts get 303 so the follow-up
// request is a GET.
func redirect(c *gin.Context, target string) {
	status := http.StatusFound
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		status = http.StatusSeeOther
	}
	c.Redirect(status, target)
	c.Abort()
}

// returnPath reads the "return" form field. Only local paths are honored.
func returnPath(c *gin.Context, def string) string {
	p := c.PostForm("return")
	if p == "" {
		p = c.Query("return")
	}
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return def
	}
	// Browsers drop tabs and newlines, so "/\t/host" would leave the site.
	if strings.IndexFunc(p, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0 {
		return def
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return def
	}
	return p
}

// pageParam reads ?page=. Missing or malformed values mean the first page;
// explicit non-positive values are passed on so they get rejected.
func pageParam(c *gin.Context) int {
	raw := c.Query("page")
	if raw == "" {
		return 1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

func reloadParam(c *gin.Context) bool {
	return c.Query("reload") == "1"
}
