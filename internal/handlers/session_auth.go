package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
)

const (
	SessionCookie = "sp_session"
	ctxSession    = "session"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// SessionAuthMiddleware binds every request to a session record and gates
// routes on it.
type SessionAuthMiddleware struct {
	BaseHandler
	sessions services.SessionService
	cookie   CookieConfig
}

func NewSessionAuthMiddleware(sessions services.SessionService, flash services.FlashService, cookie CookieConfig, logger utils.Logger) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{
		BaseHandler: NewBaseHandler(logger, flash),
		sessions:    sessions,
		cookie:      cookie,
	}
}

// LoadSession reads the session cookie, issuing a fresh id when there is
// none, and stores the current session in the gin context.
func (m *SessionAuthMiddleware) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(sid) != nil {
			sid = uuid.NewString()
			m.setCookie(c, sid)
		}

		sess, err := m.sessions.Current(c.Request.Context(), sid)
		if err != nil {
			m.LogError(c, err, "Failed to load session", "session_id", sid)
			sess = models.NewAnonymousSession(sid)
		}
		c.Set(ctxSession, sess)
		c.Next()
	}
}

// RequireAuth lets the request through only for a signed in user of the
// required type. UserTypeUnknown accepts any signed in user.
func (m *SessionAuthMiddleware) RequireAuth(required models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := m.verify(c)
		m.apply(c, auth.RequireAuthenticated(sess, m.sessions.IsLoading(sess), required))
	}
}

// AnonymousOnly keeps signed in users away from the sign-in and sign-up pages.
func (m *SessionAuthMiddleware) AnonymousOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := m.verify(c)
		m.apply(c, auth.RequireAnonymous(sess, m.sessions.IsLoading(sess)))
	}
}

// verify revalidates the session against the API when it is due.
func (m *SessionAuthMiddleware) verify(c *gin.Context) *models.Session {
	sess := currentSession(c)
	if !m.sessions.NeedsVerification(sess) || m.sessions.IsLoading(sess) {
		return sess
	}

	verified, err := m.sessions.VerifyUser(c.Request.Context(), sess.ID)
	switch {
	case errors.Is(err, services.ErrSessionInvalid):
		m.pushFlash(c, services.ErrorFlash(msgSessionExpired))
	case err != nil:
		m.LogError(c, err, "Session verification failed", "session_id", sess.ID)
		return sess
	}
	if verified == nil {
		verified = models.NewAnonymousSession(sess.ID)
	}
	c.Set(ctxSession, verified)
	return verified
}

func (m *SessionAuthMiddleware) apply(c *gin.Context, d auth.Decision) {
	switch d.Outcome {
	case auth.Loading:
		c.Header("Refresh", "1")
		m.render(c, http.StatusOK, "loading.html", "Loading", nil)
		c.Abort()
	case auth.Redirect:
		redirect(c, d.Target)
	default:
		c.Next()
	}
}

func (m *SessionAuthMiddleware) setCookie(c *gin.Context, sid string) {
	maxAge := int(m.cookie.TTL.Seconds())
	if maxAge <= 0 {
		maxAge = int((24 * time.Hour).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sid, maxAge, "/", "", m.cookie.Secure, true)
}

// bindSession switches the request to a new session record, as sign-in does.
func (m *SessionAuthMiddleware) bindSession(c *gin.Context, sess *models.Session) {
	m.setCookie(c, sess.ID)
	c.Set(ctxSession, sess)
}

// currentSession returns the session loaded by LoadSession. Requests that
// bypassed it get an anonymous session without an id.
func currentSession(c *gin.Context) *models.Session {
	if v, ok := c.Get(ctxSession); ok {
		if s, ok := v.(*models.Session); ok && s != nil {
			return s
		}
	}
	return models.NewAnonymousSession("")
}
