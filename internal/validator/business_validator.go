package validator

import (
	"github.com/victorcreed/student-power-frontend/internal/models"
	"github.com/victorcreed/student-power-frontend/internal/workflow"
)

// ValidateSignIn validates the sign-in form
func (v *Validator) ValidateSignIn(f *SignInForm) ValidationErrors {
	return v.Validate(f)
}

// ValidateSignUp validates a registration form
func (v *Validator) ValidateSignUp(f *SignUpForm) ValidationErrors {
	return v.Validate(f)
}

// ValidateJob validates a job form. When current is set the status change is
// checked against the job workflow.
func (v *Validator) ValidateJob(f *JobForm, current *models.JobPosting) ValidationErrors {
	errs := v.Validate(f)
	if len(errs) > 0 || current == nil {
		return errs
	}
	return append(errs, v.ValidateJobTransition(current.Status, models.JobStatus(f.Status))...)
}

// ValidateJobTransition checks a job status change
func (v *Validator) ValidateJobTransition(from, to models.JobStatus) ValidationErrors {
	if err := workflow.CheckJobTransition(from, to); err != nil {
		return ValidationErrors{{
			Field:   "status",
			Message: "cannot change status from " + string(from) + " to " + string(to),
			Value:   to,
			Rule:    "status_transition",
		}}
	}
	return nil
}

// ValidateApplicationTransition checks an application status change
func (v *Validator) ValidateApplicationTransition(from, to models.ApplicationStatus) ValidationErrors {
	if err := workflow.CheckApplicationTransition(from, to); err != nil {
		return ValidationErrors{{
			Field:   "status",
			Message: "cannot change status from " + string(from.OrApplied()) + " to " + string(to),
			Value:   to,
			Rule:    "status_transition",
		}}
	}
	return nil
}

// ValidateUser validates a new-user form. The role must be one of allowedRoles.
func (v *Validator) ValidateUser(f *UserForm, allowedRoles []string) ValidationErrors {
	errs := v.Validate(f)
	if f.Role == "" {
		return errs
	}
	for _, r := range allowedRoles {
		if r == f.Role {
			return errs
		}
	}
	return append(errs, ValidationError{
		Field:   "role",
		Message: "is not a role you can assign",
		Value:   f.Role,
		Rule:    "role_scope",
	})
}
