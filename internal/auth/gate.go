package auth

import "github.com/victorcreed/student-power-frontend/internal/models"

// Outcome is what a gate does with a request.
type Outcome int

const (
	Render Outcome = iota
	Loading
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Render:
		return "render"
	case Loading:
		return "loading"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision is the result of evaluating a gate. Target is set for Redirect.
type Decision struct {
	Outcome Outcome
	Target  string
}

// RequireAuthenticated evaluates the authenticated gate. A signed in user of
// the wrong type is sent to their own dashboard, never to sign-in.
func RequireAuthenticated(s *models.Session, loading bool, required models.UserType) Decision {
	if loading {
		return Decision{Outcome: Loading}
	}
	if !s.IsAuthenticated() {
		return Decision{Outcome: Redirect, Target: PathSignIn}
	}
	if required != models.UserTypeUnknown {
		if actual := EffectiveType(s); actual != required {
			return Decision{Outcome: Redirect, Target: DashboardPath(actual)}
		}
	}
	return Decision{Outcome: Render}
}

// RequireAnonymous evaluates the anonymous-only gate.
func RequireAnonymous(s *models.Session, loading bool) Decision {
	if loading {
		return Decision{Outcome: Loading}
	}
	if s.IsAuthenticated() {
		return Decision{Outcome: Redirect, Target: DashboardPath(EffectiveType(s))}
	}
	return Decision{Outcome: Render}
}
