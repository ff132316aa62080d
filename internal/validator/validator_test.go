package validator

import (
	"testing"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

func TestValidateJob(t *testing.T) {
	v := New()

	tests := []struct {
		name    string
		form    JobForm
		current *models.JobPosting
		field   string
	}{
		{"valid create", JobForm{Title: "Intern", Status: "draft", ExpiresAt: "2026-12-31"}, nil, ""},
		{"missing title", JobForm{Status: "active"}, nil, "title"},
		{"bad status", JobForm{Title: "Intern", Status: "archived"}, nil, "status"},
		{"bad date", JobForm{Title: "Intern", Status: "active", ExpiresAt: "31/12/2026"}, nil, "expiresAt"},
		{"allowed transition", JobForm{Title: "Intern", Status: "closed"}, &models.JobPosting{Status: models.JobStatusActive}, ""},
		{"rejected transition", JobForm{Title: "Intern", Status: "draft"}, &models.JobPosting{Status: models.JobStatusClosed}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.ValidateJob(&tt.form, tt.current)
			if tt.field == "" {
				if len(errs) != 0 {
					t.Errorf("expected no errors, got %v", errs)
				}
				return
			}
			if _, ok := errs.ByField()[tt.field]; !ok {
				t.Errorf("expected error on %s, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateSignUp(t *testing.T) {
	v := New()

	student := SignUpForm{UserType: "student", Name: "Sam", Email: "sam@x.io", Password: "secret1", PasswordConfirm: "secret1"}
	errs := v.ValidateSignUp(&student)
	if _, ok := errs.ByField()["schoolId"]; !ok {
		t.Errorf("expected schoolId required for students, got %v", errs)
	}
	if _, ok := errs.ByField()["orgName"]; ok {
		t.Error("orgName should not be required for students")
	}

	company := SignUpForm{UserType: "company", Name: "Ada", Email: "ada@x.io", Password: "secret1", PasswordConfirm: "other"}
	errs = v.ValidateSignUp(&company)
	fields := errs.ByField()
	if _, ok := fields["orgName"]; !ok {
		t.Errorf("expected orgName required, got %v", errs)
	}
	if _, ok := fields["passwordConfirmation"]; !ok {
		t.Errorf("expected password mismatch, got %v", errs)
	}
}

func TestSignUpForm_Payload(t *testing.T) {
	school := SignUpForm{UserType: "school", OrgName: " North High ", Name: "Ada", Email: "ada@x.io", Password: "secret1"}
	p := school.Payload()
	if p.School == nil || p.School.Name != "North High" || p.User == nil || p.User.Email != "ada@x.io" {
		t.Errorf("unexpected school payload %+v", p)
	}

	student := SignUpForm{UserType: "student", Name: "Sam", Email: "sam@x.io", Password: "secret1", SchoolID: "4"}
	p = student.Payload()
	if p.User != nil || p.SchoolID != "4" || p.Email != "sam@x.io" {
		t.Errorf("unexpected student payload %+v", p)
	}
}

func TestValidateUser_RoleScope(t *testing.T) {
	v := New()
	f := UserForm{Name: "Bo", Email: "bo@x.io", Password: "secret1", Role: models.RoleAdmin}

	if errs := v.ValidateUser(&f, []string{models.RoleCompanyAdmin}); len(errs) != 1 || errs[0].Rule != "role_scope" {
		t.Errorf("expected role_scope error, got %v", errs)
	}
	if errs := v.ValidateUser(&f, []string{models.RoleUser, models.RoleAdmin}); len(errs) != 0 {
		t.Errorf("expected valid, got %v", errs)
	}
}

func TestValidateApplicationTransition(t *testing.T) {
	v := New()
	if errs := v.ValidateApplicationTransition(models.ApplicationPending, models.ApplicationInterviewing); len(errs) != 0 {
		t.Errorf("pending -> interviewing should be allowed, got %v", errs)
	}
	if errs := v.ValidateApplicationTransition(models.ApplicationAccepted, models.ApplicationPending); len(errs) != 1 {
		t.Errorf("accepted -> pending should be rejected, got %v", errs)
	}
}
