package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/victorcreed/student-power-frontend/internal/apiclient"
	"github.com/victorcreed/student-power-frontend/internal/cache"
	"github.com/victorcreed/student-power-frontend/internal/dashboard"
	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/repositories/redisstore"
	"github.com/victorcreed/student-power-frontend/internal/services"
	"github.com/victorcreed/student-power-frontend/internal/utils"
	"github.com/victorcreed/student-power-frontend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router    *gin.Engine
	sessions  *redisstore.SessionRedis
	publisher *events.MockEventPublisher
}

// newTestApp wires the full page stack against a fake marketplace API.
func newTestApp(t *testing.T, api http.Handler) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := utils.NewSlogLogger(slogger)
	cm := cache.NewCacheManager(rdb)
	sessions := redisstore.NewSessionRedis(rdb, time.Hour, slogger)
	client := apiclient.New(apiclient.Config{BaseURL: srv.URL, Logger: slogger})
	publisher := events.NewMockEventPublisher(slogger)

	sm := services.NewServiceManager(sessions, client, cm, publisher, slogger, validator.New(), services.ServiceManagerConfig{
		VerifyAfter: time.Hour,
	})
	if err := sm.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize services: %v", err)
	}
	client.OnUnauthorized(sm.Session().ClearByToken)

	router := gin.New()
	if err := SetupTemplates(router); err != nil {
		t.Fatalf("load templates: %v", err)
	}
	SetupMiddleware(router, logger)
	NewHandlerManager(sm, dashboard.NewTracker(cm), CookieConfig{TTL: time.Hour}, logger).SetupRoutes(router)

	return &testApp{router: router, sessions: sessions, publisher: publisher}
}

// signedIn stores a verified session of the given type and returns its id.
func (a *testApp) signedIn(t *testing.T, userType models.UserType, role string) string {
	t.Helper()
	sess := &models.Session{
		Version:        models.SessionVersion,
		ID:             uuid.NewString(),
		Token:          "tok-" + string(userType),
		RawRole:        role,
		ResolvedType:   userType,
		LastVerifiedAt: time.Now(),
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
	if err := a.sessions.Save(context.Background(), sess); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return sess.ID
}

func (a *testApp) get(sid, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return a.do(req, sid)
}

func (a *testApp) post(sid, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(req, sid)
}

func (a *testApp) do(req *http.Request, sid string) *httptest.ResponseRecorder {
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sid})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type jsonMap = map[string]interface{}

func jobJSON(id int, title string) jsonMap {
	return jsonMap{
		"id":               id,
		"title":            title,
		"description":      "<p>Work</p>",
		"status":           "active",
		"applicationCount": 0,
		"approvalCount":    0,
		"schoolApproval":   nil,
	}
}

func jobList(jobs ...jsonMap) jsonMap {
	if jobs == nil {
		jobs = []jsonMap{}
	}
	return jsonMap{"data": jsonMap{
		"jobs":       jobs,
		"pagination": jsonMap{"currentPage": 1, "totalPages": 1, "totalItems": len(jobs)},
	}}
}
