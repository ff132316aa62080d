package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
}

func TestSignIn_ReturnsTokenAndProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/signin" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "ada@x.io" {
			t.Errorf("unexpected email %q", creds.Email)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"token": "jwt-token",
			"data": map[string]interface{}{
				"user":    map[string]interface{}{"id": 3, "name": "Ada", "role": "company_admin"},
				"company": map[string]interface{}{"id": 12, "name": "Acme"},
			},
		})
	})

	res, err := c.SignIn(context.Background(), models.Credentials{Email: "ada@x.io", Password: "pw"})
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if res.Token != "jwt-token" || res.Data.User.ID != "3" || res.Data.Company.Name != "Acme" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSignIn_401DoesNotFireHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	})
	fired := false
	c.OnUnauthorized(func(ctx context.Context, token string) { fired = true })

	_, err := c.SignIn(context.Background(), models.Credentials{Email: "a@b.c", Password: "x"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := MessageOr(err, "Failed to sign in"); got != "Invalid credentials" {
		t.Errorf("MessageOr = %q", got)
	}
	if fired {
		t.Error("unauthorized hook must not fire for sign-in")
	}
}

func TestAuthenticatedCall_401FiresHookWithToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer stale" {
			t.Errorf("Authorization = %q", got)
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token expired"})
	})

	var mu sync.Mutex
	var seen []string
	c.OnUnauthorized(func(ctx context.Context, token string) {
		mu.Lock()
		seen = append(seen, token)
		mu.Unlock()
	})

	_, err := c.ListJobs(context.Background(), "stale", models.JobFilters{}, 1)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if len(seen) != 1 || seen[0] != "stale" {
		t.Errorf("hook calls = %v", seen)
	}
}

func TestListJobs_QueryAndEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("page") != "2" || q.Get("limit") != "10" || q.Get("status") != "active" || q.Get("schoolId") != "4" {
			t.Errorf("unexpected query %v", q)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"jobs": []map[string]interface{}{
					{"id": 42, "title": "Intern", "status": "active", "applicationCount": 3},
				},
				"pagination": map[string]int{"currentPage": 2, "totalPages": 3, "totalItems": 21},
			},
		})
	})

	page, err := c.ListJobs(context.Background(), "tok", models.JobFilters{Status: models.JobStatusActive, SchoolID: "4"}, 2)
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(page.Jobs) != 1 || page.Jobs[0].ID != "42" || page.Jobs[0].ApplicationCount != 3 {
		t.Errorf("unexpected jobs %+v", page.Jobs)
	}
	if page.Pagination.TotalPages != 3 {
		t.Errorf("unexpected pagination %+v", page.Pagination)
	}
}

func TestGetJob_UnsuccessfulEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false})
	})

	_, err := c.GetJob(context.Background(), "tok", "9")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateApplicationStatus_PathAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/applications/7/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "interviewing" {
			t.Errorf("unexpected body %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	if err := c.UpdateApplicationStatus(context.Background(), "tok", "7", models.ApplicationInterviewing); err != nil {
		t.Fatalf("UpdateApplicationStatus: %v", err)
	}
}

func TestErrorBodyVariants(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"string error", map[string]string{"error": "Job is closed"}, "Job is closed"},
		{"error list", map[string][]string{"error": {"Title is required", "Bad date"}}, "Title is required"},
		{"message", map[string]string{"message": "Server exploded"}, "Server exploded"},
		{"empty", map[string]string{}, "Failed to save job. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusUnprocessableEntity, tt.body)
			})
			_, err := c.CreateJob(context.Background(), "tok", models.JobPayload{Title: "x"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
				t.Fatalf("expected APIError 422, got %v", err)
			}
			if got := MessageOr(err, "Failed to save job. Please try again."); got != tt.want {
				t.Errorf("MessageOr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFriendly(t *testing.T) {
	err := Friendly(errors.New("dial tcp: refused"), "Failed to load jobs. Please try again.")
	var ue *UserError
	if !errors.As(err, &ue) || ue.Message != "Failed to load jobs. Please try again." {
		t.Fatalf("unexpected %v", err)
	}
	if again := Friendly(err, "other"); again != err {
		t.Error("Friendly should not rewrap a UserError")
	}
	if Friendly(nil, "x") != nil {
		t.Error("Friendly(nil) should be nil")
	}
}
