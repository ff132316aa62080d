package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/auth"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

type userService struct {
	api       MarketplaceAPI
	views     *viewStore
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewUserService(api MarketplaceAPI, cm *cache.CacheManager, v *validator.Validator, logger *slog.Logger) UserService {
	return &userService{
		api:       api,
		views:     newViewStore(cm, logger),
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *userService) List(ctx context.Context, sess *models.Session, reload bool) (*UserListView, error) {
	if !auth.IsAdminRole(sess.Role()) {
		return nil, ErrForbidden
	}

	var cached UserListView
	hit, err := s.views.load(ctx, sess.ID, viewUsers, &cached)
	if err != nil {
		s.logger.Warn("Failed to load users view", "error", err)
	}
	if hit && !reload && cached.Error == "" {
		return &cached, nil
	}

	seq, err := s.views.begin(ctx, sess.ID, viewUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to start users request: %w", err)
	}

	next := UserListView{FetchedAt: s.now()}
	users, fetchErr := s.api.ListUsers(ctx, sess.Token)
	if fetchErr != nil {
		s.logger.Warn("Failed to fetch users", "error", fetchErr)
		next.Users = cached.Users
		next.Error = MsgLoadUsersFailed
	} else {
		next.Users = users
	}

	if _, err := s.views.commit(ctx, sess.ID, viewUsers, seq, &next); err != nil {
		s.logger.Warn("Failed to store users view", "error", err)
	}
	return &next, fetchErr
}

// Create adds a user. The role must be one the signed in admin may grant.
func (s *userService) Create(ctx context.Context, sess *models.Session, form *validator.UserForm) (*models.ManagedUser, error) {
	if !auth.IsAdminRole(sess.Role()) {
		return nil, ErrForbidden
	}
	if errs := s.validator.ValidateUser(form, s.AssignableRoles(sess)); len(errs) > 0 {
		return nil, errs
	}

	user, err := s.api.CreateUser(ctx, sess.Token, form.NewUser())
	if err != nil {
		s.logger.Warn("Failed to create user", "creator_id", sess.UserID(), "role", form.Role, "error", err)
		return nil, apiclient.Friendly(err, MsgCreateUserFailed)
	}

	if user != nil {
		var v UserListView
		err := s.views.mutate(ctx, sess.ID, viewUsers, &v, func() (bool, error) {
			v.Users = append(v.Users, *user)
			return true, nil
		})
		if err != nil {
			s.logger.Warn("Failed to update cached users", "error", err)
		}
	}
	s.logger.Info("User created", "creator_id", sess.UserID(), "role", form.Role)
	return user, nil
}

func (s *userService) AssignableRoles(sess *models.Session) []string {
	return auth.AssignableRoles(sess.Role())
}
