package edgeauth

import "time"

// Decision is the onboarding gate's verdict for a protected-route request.
type Decision int

const (
	// RequireSignIn: no session, or the session is expired, or its owning
	// user is gone. The guard redirects to the login page.
	RequireSignIn Decision = iota

	// RequireOnboarding: the session is valid but the user has not completed
	// onboarding yet. The guard forces navigation to the onboarding page.
	RequireOnboarding

	// Proceed: valid session, onboarding complete. No forced redirects.
	Proceed
)

func (d Decision) String() string {
	switch d {
	case RequireSignIn:
		return "RequireSignIn"
	case RequireOnboarding:
		return "RequireOnboarding"
	case Proceed:
		return "Proceed"
	}
	return "Unknown"
}

// Decide is the onboarding gate: a pure function of session validity and the
// user's onboarding flag. It never errors; an absent or expired session is a
// normal decision branch, not an exceptional path.
func Decide(session *Session, user *User, now time.Time) Decision {
	if session == nil || session.IsExpired(now) || user == nil {
		return RequireSignIn
	}
	if !user.CompletedOnboarding {
		return RequireOnboarding
	}
	return Proceed
}
