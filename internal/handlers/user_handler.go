package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

type UserHandler struct {
	BaseHandler
	users services.UserService
}

func NewUserHandler(users services.UserService, flash services.FlashService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger, flash),
		users:       users,
	}
}

// CreateUser adds a user from the dashboard users tab
func (h *UserHandler) CreateUser(c *gin.Context) {
	sess := currentSession(c)
	back := returnPath(c, auth.DashboardPath(auth.EffectiveType(sess))+"?tab=users")

	var form validator.UserForm
	_ = c.ShouldBind(&form)
	h.LogRequest(c, "Creating user", "email", form.Email, "role", form.Role)

	if _, err := h.users.Create(c.Request.Context(), sess, &form); err != nil {
		h.handleActionError(c, err, back, services.MsgCreateUserFailed)
		return
	}
	h.redirectWithFlash(c, back, services.SuccessFlash(services.MsgUserCreated))
}

// Health reports the state of the session store and the view cache
func Health(sm services.ServiceManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := sm.Health(c.Request.Context())
		status, state := http.StatusOK, "healthy"
		for _, v := range checks {
			if v != "healthy" {
				status, state = http.StatusServiceUnavailable, "unhealthy"
			}
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": "student-power-frontend",
			"checks":  checks,
		})
	}
}
