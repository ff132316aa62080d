// Package auth maps backend roles onto the portal's user types and decides
// what a route gate does for a given session.
package auth

import "github.com/victorcreed/student-power-frontend/internal/models"

const (
	PathHome             = "/"
	PathSignIn           = "/signin"
	PathSchoolDashboard  = "/school/dashboard"
	PathCompanyDashboard = "/company/dashboard"
	PathStudentDashboard = "/student/dashboard"
)

// ResolveType maps a raw backend role onto a user type. An unrecognized role
// keeps the previously resolved type; partially loaded profiles must not reset
// routing.
func ResolveType(rawRole string, previous models.UserType) models.UserType {
	switch rawRole {
	case models.RoleSchoolAdmin:
		return models.UserTypeSchool
	case models.RoleCompanyAdmin:
		return models.UserTypeCompany
	case models.RoleUser:
		return models.UserTypeStudent
	}
	return previous
}

// ResolveSignInType derives the user type from a fresh sign-in payload. The
// explicit role wins, then the presence of a nested school or company, then
// school as the default.
func ResolveSignInType(profile *models.UserProfile) models.UserType {
	if profile != nil && profile.User != nil {
		if t := ResolveType(profile.User.Role, models.UserTypeUnknown); t.Valid() {
			return t
		}
	}
	switch {
	case profile != nil && profile.School != nil:
		return models.UserTypeSchool
	case profile != nil && profile.Company != nil:
		return models.UserTypeCompany
	}
	return models.UserTypeSchool
}

// EffectiveType is the type used for routing: derived from the profile role
// when a profile user is loaded, otherwise the stored type.
func EffectiveType(s *models.Session) models.UserType {
	if s == nil {
		return models.UserTypeUnknown
	}
	if s.Profile == nil || s.Profile.User == nil {
		return s.ResolvedType
	}
	return ResolveType(s.Profile.User.Role, s.ResolvedType)
}

// DashboardPath returns the dashboard route for t, or the home route when t is
// not one of the known categories.
func DashboardPath(t models.UserType) string {
	switch t {
	case models.UserTypeSchool:
		return PathSchoolDashboard
	case models.UserTypeCompany:
		return PathCompanyDashboard
	case models.UserTypeStudent:
		return PathStudentDashboard
	}
	return PathHome
}

// IsAdminRole reports whether role may manage users.
func IsAdminRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleSchoolAdmin, models.RoleCompanyAdmin:
		return true
	}
	return false
}

// AssignableRoles lists the roles a user holding creatorRole may grant to a
// new user.
func AssignableRoles(creatorRole string) []string {
	switch creatorRole {
	case models.RoleAdmin:
		return []string{models.RoleUser, models.RoleAdmin, models.RoleSchoolAdmin, models.RoleCompanyAdmin}
	case models.RoleSchoolAdmin:
		return []string{models.RoleUser, models.RoleSchoolAdmin}
	case models.RoleCompanyAdmin:
		return []string{models.RoleCompanyAdmin}
	}
	return []string{models.RoleUser}
}
