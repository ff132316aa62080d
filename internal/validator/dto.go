package validator

import (
	"strings"

	"github.com/victorcreed/student-power-frontend/internal/models"
)

// SignInForm is posted by the sign-in page
type SignInForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// SignUpForm covers school, company and student registration. OrgName is the
// school or company name and is not used for students.
type SignUpForm struct {
	UserType        string `form:"userType" validate:"required,oneof=school company student"`
	OrgName         string `form:"orgName" validate:"required_unless=UserType student,max=200"`
	Name            string `form:"name" validate:"required,max=100"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	PasswordConfirm string `form:"passwordConfirmation" validate:"required,eqfield=Password"`
	SchoolID        string `form:"schoolId" validate:"required_if=UserType student"`
	Premium         bool   `form:"premium"`
}

// Payload builds the registration body for the remote API
func (f *SignUpForm) Payload() models.SignUpPayload {
	p := models.SignUpPayload{UserType: models.UserType(f.UserType)}
	user := &models.SignUpUser{Name: strings.TrimSpace(f.Name), Email: strings.TrimSpace(f.Email), Password: f.Password}

	switch p.UserType {
	case models.UserTypeSchool:
		p.School = &models.Organization{Name: strings.TrimSpace(f.OrgName)}
		p.User = user
	case models.UserTypeCompany:
		p.Company = &models.Organization{Name: strings.TrimSpace(f.OrgName)}
		p.User = user
	default:
		p.Name, p.Email, p.Password = user.Name, user.Email, user.Password
		p.SchoolID = models.ID(f.SchoolID)
		p.Premium = f.Premium
	}
	return p
}

// JobForm is posted when creating or editing a job posting
type JobForm struct {
	Title       string `form:"title" validate:"required,max=200"`
	Description string `form:"description" validate:"max=20000"`
	ExpiresAt   string `form:"expiresAt" validate:"omitempty,date_only"`
	Status      string `form:"status" validate:"required,job_status"`
}

func (f *JobForm) Payload() models.JobPayload {
	p := models.JobPayload{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Status:      models.JobStatus(f.Status),
	}
	if f.ExpiresAt != "" {
		exp := f.ExpiresAt
		p.ExpiresAt = &exp
	}
	return p
}

// UserForm is posted by admins creating users
type UserForm struct {
	Name     string `form:"name" validate:"required,max=100"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=6"`
	Role     string `form:"role" validate:"required"`
}

func (f *UserForm) NewUser() models.NewUser {
	return models.NewUser{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		Role:     f.Role,
	}
}

// StatusForm is posted when a company admin changes an application status
type StatusForm struct {
	Status string `form:"status" validate:"required,app_status"`
}

// ApplyForm is posted by students applying to a job
type ApplyForm struct {
	CoverLetter string `form:"coverLetter" validate:"max=5000"`
}
