package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/repositories/redisstore"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

type harness struct {
	mr        *miniredis.Miniredis
	cache     *cache.CacheManager
	sessions  *redisstore.SessionRedis
	api       *apiclient.Client
	publisher *events.MockEventPublisher
	validator *validator.Validator
	logger    *slog.Logger
}

func newHarness(t *testing.T, handler http.Handler) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &harness{
		mr:        mr,
		cache:     cache.NewCacheManager(rdb),
		sessions:  redisstore.NewSessionRedis(rdb, time.Hour, logger),
		api:       apiclient.New(apiclient.Config{BaseURL: srv.URL, Logger: logger}),
		publisher: events.NewMockEventPublisher(logger),
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *harness) sessionService() *sessionService {
	return NewSessionService(h.sessions, h.api, h.cache, h.publisher, h.validator, h.logger, SessionServiceConfig{}).(*sessionService)
}

func (h *harness) jobService() JobService {
	return NewJobService(h.api, h.cache, h.publisher, h.validator, h.logger)
}

func (h *harness) applicationService() ApplicationService {
	return NewApplicationService(h.api, h.cache, NewExportService(h.logger), h.publisher, h.validator, h.logger)
}

// save stores a signed in session of the given role.
func (h *harness) save(t *testing.T, id, token, role string, userType models.UserType) *models.Session {
	t.Helper()
	sess := &models.Session{
		Version:      models.SessionVersion,
		ID:           id,
		Token:        token,
		RawRole:      role,
		ResolvedType: userType,
		Profile: &models.UserProfile{
			User: &models.AccountUser{ID: "5", Name: "Ann", Email: "ann@example.com", Role: role},
		},
	}
	switch userType {
	case models.UserTypeSchool, models.UserTypeStudent:
		sess.Profile.School = &models.Organization{ID: "1", Name: "North High"}
	case models.UserTypeCompany:
		sess.Profile.Company = &models.Organization{ID: "9", Name: "Acme"}
	}
	if err := h.sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return sess
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type jsonMap = map[string]interface{}

func jobJSON(id int, title string, applications int) jsonMap {
	return jsonMap{
		"id":               id,
		"title":            title,
		"status":           "active",
		"applicationCount": applications,
		"approvalCount":    0,
		"schoolApproval":   nil,
	}
}

func jobPage(jobs []jsonMap, page, totalPages, total int) jsonMap {
	return jsonMap{"data": jsonMap{
		"jobs":       jobs,
		"pagination": jsonMap{"currentPage": page, "totalPages": totalPages, "totalItems": total},
	}}
}
