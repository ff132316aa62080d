package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

// formView is the data of a page showing a form: the posted values, the
// per-field errors and a banner error.
type formView struct {
	Values  interface{}
	Errors  map[string]string
	Error   string
	Schools []models.Organization
	Roles   []string
}

type AuthHandler struct {
	BaseHandler
	sessions services.SessionService
	auth     *SessionAuthMiddleware
}

func NewAuthHandler(sessions services.SessionService, flash services.FlashService, authMiddleware *SessionAuthMiddleware, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger, flash),
		sessions:    sessions,
		auth:        authMiddleware,
	}
}

// Welcome renders the landing page
func (h *AuthHandler) Welcome(c *gin.Context) {
	h.render(c, http.StatusOK, "welcome.html", "Student Power", nil)
}

func (h *AuthHandler) SignInPage(c *gin.Context) {
	h.render(c, http.StatusOK, "signin.html", "Sign in", formView{Values: validator.SignInForm{}})
}

// SignIn authenticates the posted credentials and sends the user to their
// dashboard
func (h *AuthHandler) SignIn(c *gin.Context) {
	var form validator.SignInForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "signin.html", "Sign in", formView{Values: form, Error: services.MsgSignInFailed})
		return
	}
	h.LogRequest(c, "Signing in", "email", form.Email)

	sess, err := h.sessions.SignIn(c.Request.Context(), currentSession(c).ID, &form)
	if err != nil {
		form.Password = ""
		view := formView{Values: form}
		status := http.StatusUnauthorized

		var verrs validator.ValidationErrors
		var uerr *apiclient.UserError
		switch {
		case errors.As(err, &verrs):
			view.Errors = verrs.ByField()
			status = http.StatusUnprocessableEntity
		case errors.As(err, &uerr):
			view.Error = uerr.Message
		default:
			h.LogError(c, err, "Sign in failed")
			view.Error = services.MsgSignInFailed
		}
		h.render(c, status, "signin.html", "Sign in", view)
		return
	}

	h.auth.bindSession(c, sess)
	redirect(c, auth.DashboardPath(auth.EffectiveType(sess)))
}

func (h *AuthHandler) SignUpPage(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", "Sign up", formView{
		Values:  validator.SignUpForm{UserType: c.DefaultQuery("type", string(models.UserTypeStudent))},
		Schools: h.schools(c),
	})
}

// SignUp registers a school, company or student account
func (h *AuthHandler) SignUp(c *gin.Context) {
	var form validator.SignUpForm
	_ = c.ShouldBind(&form)
	h.LogRequest(c, "Signing up", "user_type", form.UserType)

	err := h.sessions.SignUp(c.Request.Context(), &form)
	if err == nil {
		h.redirectWithFlash(c, auth.PathSignIn, services.SuccessFlash(services.MsgSignUpSucceeded))
		return
	}

	form.Password, form.PasswordConfirm = "", ""
	view := formView{Values: form, Schools: h.schools(c)}
	status := http.StatusBadRequest

	var verrs validator.ValidationErrors
	var uerr *apiclient.UserError
	switch {
	case errors.As(err, &verrs):
		view.Errors = verrs.ByField()
		status = http.StatusUnprocessableEntity
	case errors.As(err, &uerr):
		view.Error = uerr.Message
	default:
		h.LogError(c, err, "Sign up failed")
		view.Error = services.MsgSignUpFailed
	}
	h.render(c, status, "signup.html", "Sign up", view)
}

// Logout ends the session. Remote failures do not keep the user signed in.
func (h *AuthHandler) Logout(c *gin.Context) {
	sess := currentSession(c)
	if err := h.sessions.Logout(c.Request.Context(), sess.ID); err != nil {
		h.LogError(c, err, "Logout failed", "session_id", sess.ID)
	}
	redirect(c, auth.PathSignIn)
}

func (h *AuthHandler) schools(c *gin.Context) []models.Organization {
	schools, err := h.sessions.Schools(c.Request.Context())
	if err != nil {
		h.log(c).Warn("Failed to load schools", "error", err)
		return nil
	}
	return schools
}
