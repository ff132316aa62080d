package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/repositories"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

// loadingTimeout bounds how long a verification in progress keeps guarded
// pages on the loading placeholder.
const loadingTimeout = 30 * time.Second

type SessionServiceConfig struct {
	// VerifyAfter is how old the last verification may get before a guarded
	// request verifies the session again.
	VerifyAfter time.Duration
}

type sessionService struct {
	sessions  repositories.SessionRepository
	api       MarketplaceAPI
	cache     *cache.CacheManager
	publisher events.EventPublisher
	validator *validator.Validator
	logger    *slog.Logger
	config    SessionServiceConfig

	now func() time.Time
}

func NewSessionService(sessions repositories.SessionRepository, api MarketplaceAPI, cm *cache.CacheManager,
	publisher events.EventPublisher, v *validator.Validator, logger *slog.Logger, config SessionServiceConfig) SessionService {
	if config.VerifyAfter <= 0 {
		config.VerifyAfter = 5 * time.Minute
	}
	return &sessionService{
		sessions:  sessions,
		api:       api,
		cache:     cm,
		publisher: publisher,
		validator: v,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// Current loads the session bound to sid. Unknown ids yield an anonymous
// session; a session whose token has expired is cleared first.
func (s *sessionService) Current(ctx context.Context, sid string) (*models.Session, error) {
	sess, err := s.sessions.Load(ctx, sid)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.NewAnonymousSession(sid), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.IsAuthenticated() && tokenExpired(sess.Token, s.now()) {
		s.logger.Info("Session token expired", "session_id", sid, "user_id", sess.UserID())
		s.clear(ctx, sess, events.SessionInvalidated, "token expired")
		return models.NewAnonymousSession(sid), nil
	}
	return sess, nil
}

// SignIn exchanges credentials for a token. The signed in session gets a new
// id; the anonymous one and its view state are dropped. The caller must move
// the cookie to the returned session id.
func (s *sessionService) SignIn(ctx context.Context, sid string, form *validator.SignInForm) (*models.Session, error) {
	if errs := s.validator.ValidateSignIn(form); len(errs) > 0 {
		return nil, errs
	}

	res, err := s.api.SignIn(ctx, models.Credentials{Email: form.Email, Password: form.Password})
	if err == nil && (res == nil || res.Token == "") {
		err = errors.New("sign-in response carried no token")
	}
	if err != nil {
		s.logger.Info("Sign-in failed", "session_id", sid, "error", err)
		s.drop(ctx, sid)
		return nil, apiclient.Friendly(err, MsgSignInFailed)
	}

	now := s.now()
	sess := &models.Session{
		Version:         models.SessionVersion,
		ID:              uuid.NewString(),
		Token:           res.Token,
		Profile:         res.Data,
		ResolvedType:    auth.ResolveSignInType(res.Data),
		AuthenticatedAt: now,
	}
	if res.Data != nil && res.Data.User != nil {
		sess.RawRole = res.Data.User.Role
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.drop(ctx, sid)

	s.logger.Info("User signed in", "session_id", sess.ID, "user_id", sess.UserID(), "user_type", sess.ResolvedType)
	s.publish(ctx, events.SessionSignedIn, sess, nil)
	return sess, nil
}

func (s *sessionService) SignUp(ctx context.Context, form *validator.SignUpForm) error {
	if errs := s.validator.ValidateSignUp(form); len(errs) > 0 {
		return errs
	}
	if err := s.api.SignUp(ctx, form.Payload()); err != nil {
		s.logger.Info("Sign-up failed", "user_type", form.UserType, "error", err)
		return apiclient.Friendly(err, MsgSignUpFailed)
	}
	s.logger.Info("User signed up", "user_type", form.UserType)
	return nil
}

// VerifyUser refreshes the profile of the signed in user from the API. A
// failed fetch or a profile for another user clears the session.
func (s *sessionService) VerifyUser(ctx context.Context, sid string) (*models.Session, error) {
	sess, err := s.Current(ctx, sid)
	if err != nil || !sess.IsAuthenticated() {
		return sess, err
	}

	sess.IsLoading = true
	sess.LoadingSince = s.now()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	token, userID := sess.Token, sess.UserID()
	profile, fetchErr := s.api.Me(ctx, token)

	// The record may have changed while the profile was in flight.
	current, err := s.sessions.Load(ctx, sid)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return models.NewAnonymousSession(sid), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if current.Token != token {
		return current, nil
	}

	if fetchErr != nil || profile.User == nil || (userID != "" && profile.User.ID != userID) {
		s.logger.Warn("Session verification failed", "session_id", sid, "user_id", userID, "error", fetchErr)
		s.clear(ctx, current, events.SessionInvalidated, "verification failed")
		return models.NewAnonymousSession(sid), ErrSessionInvalid
	}

	current.Profile = profile
	current.RawRole = profile.User.Role
	current.ResolvedType = auth.ResolveType(profile.User.Role, current.ResolvedType)
	current.LastVerifiedAt = s.now()
	current.IsLoading = false
	current.LoadingSince = time.Time{}
	if err := s.sessions.Save(ctx, current); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return current, nil
}

// Logout ends the session. The remote logout is best effort; calling Logout
// on an already anonymous session is a no-op.
func (s *sessionService) Logout(ctx context.Context, sid string) error {
	sess, err := s.sessions.Load(ctx, sid)
	if errors.Is(err, repositories.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if sess.IsAuthenticated() {
		if err := s.api.Logout(ctx, sess.Token); err != nil {
			s.logger.Warn("Remote logout failed", "session_id", sid, "error", err)
		}
	}
	s.clear(ctx, sess, events.SessionLoggedOut, "logout")
	return nil
}

// ClearByToken drops whichever session holds token. Used when the API
// rejects the token.
func (s *sessionService) ClearByToken(ctx context.Context, token string) {
	sid, err := s.sessions.LookupToken(ctx, token)
	if err != nil {
		if !errors.Is(err, repositories.ErrSessionNotFound) {
			s.logger.Warn("Failed to look up session by token", "error", err)
		}
		return
	}
	sess, err := s.sessions.Load(ctx, sid)
	if err != nil {
		s.drop(ctx, sid)
		return
	}
	s.logger.Info("API rejected session token", "session_id", sid, "user_id", sess.UserID())
	s.clear(ctx, sess, events.SessionInvalidated, "unauthorized")
}

func (s *sessionService) NeedsVerification(sess *models.Session) bool {
	if !sess.IsAuthenticated() {
		return false
	}
	return sess.LastVerifiedAt.IsZero() || s.now().Sub(sess.LastVerifiedAt) > s.config.VerifyAfter
}

// IsLoading reports a verification in progress. A flag left behind by a
// request that never finished expires after loadingTimeout.
func (s *sessionService) IsLoading(sess *models.Session) bool {
	return sess != nil && sess.IsLoading && s.now().Sub(sess.LoadingSince) < loadingTimeout
}

func (s *sessionService) Schools(ctx context.Context) ([]models.Organization, error) {
	schools, err := s.api.ListSchools(ctx)
	if err != nil {
		return nil, apiclient.Friendly(err, "Failed to load schools. Please try again.")
	}
	return schools, nil
}

// clear removes the session record and its view state and emits event t.
func (s *sessionService) clear(ctx context.Context, sess *models.Session, t events.EventType, reason string) {
	s.drop(ctx, sess.ID)
	if sess.IsAuthenticated() {
		s.publish(ctx, t, sess, map[string]interface{}{"reason": reason})
	}
}

func (s *sessionService) drop(ctx context.Context, sid string) {
	if sid == "" {
		return
	}
	if err := s.sessions.Delete(ctx, sid); err != nil {
		s.logger.Error("Failed to delete session", "session_id", sid, "error", err)
	}
	cache.InvalidateSessionViews(ctx, s.cache, sid)
}

func (s *sessionService) publish(ctx context.Context, t events.EventType, sess *models.Session, data map[string]interface{}) {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["session_id"] = sess.ID
	ev := events.NewEvent(t, sess.UserID().String(), string(auth.EffectiveType(sess)), data)
	events.SafePublish(ctx, s.publisher, s.logger, ev)
}

// tokenExpired peeks at the exp claim of a JWT without verifying it. Tokens
// that are not JWTs, or carry no exp, are never considered expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return !claims.VerifyExpiresAt(now.Unix(), false)
}
