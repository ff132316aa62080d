package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/victorcreed/student-power-frontend/internal/events"
	"github.com/victorcreed/student-power-frontend/internal/models"
)

func TestSignInRedirectsToDashboard(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jsonMap{
			"token": "tok-1",
			"data": jsonMap{
				"user":    jsonMap{"id": 5, "name": "Ann", "email": "ann@example.com", "role": "company_admin"},
				"company": jsonMap{"id": 9, "name": "Acme"},
			},
		})
	})
	app := newTestApp(t, mux)

	w := app.post("", "/signin", url.Values{"email": {"ann@example.com"}, "password": {"secret1"}})

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", w.Code, w.Body.String())
	}
	if loc := w.Header().Get("Location"); loc != "/company/dashboard" {
		t.Errorf("expected redirect to company dashboard, got %q", loc)
	}

	var sid string
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			sid = c.Value
		}
	}
	sess, err := app.sessions.Load(context.Background(), sid)
	if err != nil {
		t.Fatalf("signed in session not stored under the final cookie: %v", err)
	}
	if sess.Token != "tok-1" || sess.ResolvedType != models.UserTypeCompany {
		t.Errorf("unexpected session: %+v", sess)
	}
	if got := len(app.publisher.EventsOfType(events.SessionSignedIn)); got != 1 {
		t.Errorf("expected one signed in event, got %d", got)
	}
}

func TestSignInFailureShowsServerMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, jsonMap{"error": "Invalid credentials"})
	})
	app := newTestApp(t, mux)

	w := app.post("", "/signin", url.Values{"email": {"ann@example.com"}, "password": {"wrong"}})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid credentials") {
		t.Errorf("expected server message in page, got %s", w.Body.String())
	}
}

func TestSignInValidationErrors(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())

	w := app.post("", "/signin", url.Values{"email": {"not-an-email"}})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `class="field-error"`) {
		t.Errorf("expected field errors in page")
	}
}

func TestRouteGates(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())
	student := app.signedIn(t, models.UserTypeStudent, models.RoleUser)
	company := app.signedIn(t, models.UserTypeCompany, models.RoleCompanyAdmin)

	tests := []struct {
		name     string
		sid      string
		path     string
		location string
	}{
		{"anonymous to dashboard", "", "/school/dashboard", "/signin"},
		{"student to company dashboard", student, "/company/dashboard", "/student/dashboard"},
		{"company to student dashboard", company, "/student/dashboard", "/company/dashboard"},
		{"signed in to sign in", company, "/signin", "/company/dashboard"},
		{"signed in to sign up", student, "/signup", "/student/dashboard"},
		{"anonymous to applications", "", "/dashboard/applications/3", "/signin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.get(tt.sid, tt.path)
			if w.Code != http.StatusFound {
				t.Fatalf("expected 302, got %d", w.Code)
			}
			if loc := w.Header().Get("Location"); loc != tt.location {
				t.Errorf("expected %q, got %q", tt.location, loc)
			}
		})
	}
}

func TestLoadingSessionRendersPlaceholder(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())
	sid := app.signedIn(t, models.UserTypeSchool, models.RoleSchoolAdmin)

	sess, _ := app.sessions.Load(context.Background(), sid)
	sess.IsLoading, sess.LoadingSince = true, time.Now()
	if err := app.sessions.Save(context.Background(), sess); err != nil {
		t.Fatal(err)
	}

	w := app.get(sid, "/school/dashboard")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("Refresh") != "1" {
		t.Errorf("expected refresh header")
	}
	if !strings.Contains(w.Body.String(), "Loading...") {
		t.Errorf("expected loading placeholder")
	}
}

func TestDashboardOverviewNeedsNoFetch(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeSchool, models.RoleSchoolAdmin)

	w := app.get(sid, "/school/dashboard")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"School Dashboard", "North High", "ann@example.com", "Projects"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in overview", want)
		}
	}
	if calls != 0 {
		t.Errorf("overview should not call the API, got %d calls", calls)
	}
}

func TestEmptyJobListShowsMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jobList())
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeStudent, models.RoleUser)

	w := app.get(sid, "/student/dashboard?tab=jobs")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "No jobs found.") {
		t.Errorf("expected empty message")
	}
	if strings.Contains(body, `<table class="jobs">`) {
		t.Errorf("empty list must not render a table")
	}
}

func TestJobListFailureShowsRetry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeCompany, models.RoleCompanyAdmin)

	w := app.get(sid, "/company/dashboard?tab=jobs")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Failed to load jobs. Please try again.") {
		t.Errorf("expected load error in page")
	}
	if !strings.Contains(body, "reload=1") {
		t.Errorf("expected a retry link")
	}
}

func TestJobDescriptionRenderedAsHTML(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		job := jobJSON(42, "Intern")
		job["description"] = "<p><strong>Paid</strong> internship</p>"
		writeJSON(w, http.StatusOK, jsonMap{"job": job})
	})
	app := newTestApp(t, mux)

	w := app.get("", "/jobs/42")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<p><strong>Paid</strong> internship</p>") {
		t.Errorf("expected description markup, got %s", w.Body.String())
	}
}

func TestJobDetailNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, jsonMap{"error": "Job not found"})
	})
	app := newTestApp(t, mux)

	w := app.get("", "/jobs/404")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestApplyRedirectsWithFlash(t *testing.T) {
	var applied int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jobList(jobJSON(42, "Intern"), jobJSON(43, "Barista")))
	})
	mux.HandleFunc("POST /jobs/{id}/applications", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&applied, 1)
		writeJSON(w, http.StatusCreated, jsonMap{"application": jsonMap{"id": 7, "jobId": 42, "status": "applied"}})
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeStudent, models.RoleUser)
	back := "/student/dashboard?tab=jobs"

	if w := app.get(sid, back); !strings.Contains(w.Body.String(), `action="/jobs/42/apply"`) {
		t.Fatalf("expected apply button for job 42")
	}

	w := app.post(sid, "/jobs/42/apply", url.Values{"return": {back}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != back {
		t.Errorf("expected redirect back to %q, got %q", back, loc)
	}

	body := app.get(sid, back).Body.String()
	if !strings.Contains(body, "Successfully applied for the job!") {
		t.Errorf("expected success flash")
	}
	if strings.Contains(body, `action="/jobs/42/apply"`) {
		t.Errorf("job 42 should no longer offer apply")
	}
	if !strings.Contains(body, `action="/jobs/43/apply"`) {
		t.Errorf("job 43 should still offer apply")
	}
	if !strings.Contains(body, "Applied") {
		t.Errorf("expected applied label")
	}
	if applied != 1 {
		t.Errorf("expected one apply call, got %d", applied)
	}

	// The flash is shown once.
	if strings.Contains(app.get(sid, back).Body.String(), "Successfully applied for the job!") {
		t.Errorf("flash shown twice")
	}
}

func TestApplyIgnoresForeignReturnPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/{id}/applications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, jsonMap{"application": jsonMap{"id": 7}})
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeStudent, models.RoleUser)

	w := app.post(sid, "/jobs/42/apply", url.Values{"return": {"//evil.example.com"}})

	if loc := w.Header().Get("Location"); loc != studentJobsPath {
		t.Errorf("expected default return path, got %q", loc)
	}
}

func TestDeleteAsksForConfirmation(t *testing.T) {
	var deletes int32
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&deletes, 1)
		w.WriteHeader(http.StatusNoContent)
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeCompany, models.RoleCompanyAdmin)

	w := app.post(sid, "/jobs/42/delete", url.Values{"title": {"Intern"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected confirmation page, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `name="confirm" value="yes"`) {
		t.Errorf("expected confirm form")
	}
	if deletes != 0 {
		t.Fatalf("delete must wait for confirmation")
	}

	w = app.post(sid, "/jobs/42/delete", url.Values{"confirm": {"yes"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if deletes != 1 {
		t.Errorf("expected one delete call, got %d", deletes)
	}
}

func TestCreateJobRerendersFormOnValidationError(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())
	sid := app.signedIn(t, models.UserTypeCompany, models.RoleCompanyAdmin)

	w := app.post(sid, "/jobs", url.Values{"description": {"no title"}, "status": {"draft"}})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no title") {
		t.Errorf("expected posted values to be kept")
	}
}

func TestChangeStatusUpdatesRow(t *testing.T) {
	var patched int32
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}/applications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jsonMap{"data": jsonMap{
			"applications": []jsonMap{{"id": 7, "jobId": 3, "status": "pending", "student": jsonMap{"id": 1, "name": "Bo"}}},
			"pagination":   jsonMap{"currentPage": 1, "totalPages": 1, "totalItems": 1},
		}})
	})
	mux.HandleFunc("PATCH /applications/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&patched, 1)
		w.WriteHeader(http.StatusOK)
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeCompany, models.RoleCompanyAdmin)

	if w := app.get(sid, "/dashboard/applications/3"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w := app.post(sid, "/applications/7/status", url.Values{"jobId": {"3"}, "status": {"interviewing"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/dashboard/applications/3" {
		t.Errorf("unexpected redirect %q", loc)
	}

	body := app.get(sid, "/dashboard/applications/3").Body.String()
	if !strings.Contains(body, "status-interviewing") {
		t.Errorf("expected updated status in page")
	}
	if !strings.Contains(body, "Application status updated.") {
		t.Errorf("expected success flash")
	}
	if patched != 1 {
		t.Errorf("expected one status update, got %d", patched)
	}
}

func TestExportDownloadsWorkbook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs/{id}/applications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jsonMap{"data": jsonMap{
			"applications": []jsonMap{{"id": 7, "status": "applied", "student": jsonMap{"name": "Bo", "email": "bo@example.com"}}},
			"jobInfo":      jobJSON(3, "Intern"),
			"pagination":   jsonMap{"currentPage": 1, "totalPages": 1, "totalItems": 1},
		}})
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeCompany, models.RoleCompanyAdmin)

	w := app.get(sid, "/dashboard/applications/3/export")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "applications-3.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	if len(f.GetSheetList()) == 0 {
		t.Errorf("expected a sheet")
	}
}

func TestExportForbiddenForStudents(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())
	sid := app.signedIn(t, models.UserTypeStudent, models.RoleUser)

	w := app.get(sid, "/dashboard/applications/3/export")

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestUnauthorizedAPIAnswerSignsOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, jsonMap{"error": "token expired"})
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeStudent, models.RoleUser)

	w := app.get(sid, "/student/dashboard?tab=jobs")

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/signin" {
		t.Fatalf("expected redirect to sign in, got %d %q", w.Code, w.Header().Get("Location"))
	}
	sess, err := app.sessions.Load(context.Background(), sid)
	if err == nil && sess.IsAuthenticated() {
		t.Errorf("session should have been cleared")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	app := newTestApp(t, mux)
	sid := app.signedIn(t, models.UserTypeSchool, models.RoleSchoolAdmin)

	w := app.post(sid, "/logout", nil)

	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/signin" {
		t.Fatalf("expected redirect to sign in, got %d %q", w.Code, w.Header().Get("Location"))
	}
	if w := app.get(sid, "/school/dashboard"); w.Header().Get("Location") != "/signin" {
		t.Errorf("dashboard should require sign in after logout")
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, http.NewServeMux())

	w := app.get("", "/health")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" || body.Checks["sessions"] != "healthy" {
		t.Errorf("unexpected health %+v", body)
	}
}

func TestReturnPath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"/student/dashboard?tab=jobs", "/student/dashboard?tab=jobs"},
		{"", "/fallback"},
		{"https://evil.example.com", "/fallback"},
		{"//evil.example.com", "/fallback"},
		{"/\\evil.example.com", "/fallback"},
		{"/\t/evil.example.com", "/fallback"},
		{"/\n/evil.example.com", "/fallback"},
		{"/jobs\x7f", "/fallback"},
		{"/jobs/42?tab=jobs&reload=1", "/jobs/42?tab=jobs&reload=1"},
	}

	for _, tt := range tests {
		form := url.Values{"return": {tt.raw}}
		req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req

		if got := returnPath(c, "/fallback"); got != tt.want {
			t.Errorf("returnPath(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPageURL(t *testing.T) {
	if got := pageURL("/school/dashboard?tab=jobs", 3); got != "/school/dashboard?page=3&tab=jobs" {
		t.Errorf("unexpected page url %q", got)
	}
	if got := reloadURL("/jobs/public"); got != "/jobs/public?reload=1" {
		t.Errorf("unexpected reload url %q", got)
	}
}
