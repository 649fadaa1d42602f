package edgeauth

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// handleLogin renders the sign-in form (GET) and accepts a magic-link sign-in
// initiation (POST). Social sign-ins go through the mounted provider routes.
func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// Already signed in and onboarded? Nothing to do here.
		if user := UserFromContext(r.Context()); user != nil && user.CompletedOnboarding {
			http.Redirect(w, r, s.Guard.HomeURL, http.StatusFound)
			return
		}
		s.renderLoginPage(w, r)

	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.FormValue("email")
		if email == "" {
			http.Error(w, "Email required", http.StatusBadRequest)
			return
		}
		if callbackURL := r.FormValue(s.Guard.CallbackURLParam); callbackURL != "" {
			s.Session.Put(r.Context(), "callbackUrl", callbackURL)
		}
		if err := s.dispatcher.Request(email); err != nil {
			if IsDeliveryError(err) {
				http.Redirect(w, r, s.Guard.LoginURL+"?error="+url.QueryEscape("Could not send the sign-in email, please try again"), http.StatusFound)
				return
			}
			slog.Error("magic link request failed", "err", err)
			http.Error(w, "Sign-in failed, please try again", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/magic", http.StatusFound)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Service) renderLoginPage(w http.ResponseWriter, r *http.Request) {
	errMsg := r.URL.Query().Get("error")
	callbackURL := r.URL.Query().Get(s.Guard.CallbackURLParam)
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Login to %s</title></head>
<body>
<h1>Login to your account</h1>
<p>Enter your email below to login to your account</p>
<p class="error">%s</p>
<form method="POST" action="%s">
	<input type="hidden" name="%s" value="%s">
	<label>Email: <input type="email" name="email" required></label>
	<button type="submit">Login</button>
</form>
<p>Or continue with</p>
<a href="/auth/google/?%s">Login with Google</a>
<a href="/auth/microsoft/?%s">Login with Microsoft</a>
</body>
</html>`,
		s.AppName,
		html.EscapeString(errMsg),
		s.Guard.LoginURL,
		s.Guard.CallbackURLParam, html.EscapeString(callbackURL),
		providerQuery(s.Guard.CallbackURLParam, callbackURL),
		providerQuery(s.Guard.CallbackURLParam, callbackURL))
}

// handleMagicPage is the informational "check your email" page.
func (s *Service) handleMagicPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Check your email</title></head>
<body>
<h1>Check your email</h1>
<p>We sent you a sign-in link. It expires in %d minutes.</p>
</body>
</html>`, int(s.MagicLinkTTL.Minutes()))
}

// handleMagicCallback redeems a magic-link token. Redemption consumes the
// token exactly once and funnels into the shared SignIn entry point.
func (s *Service) handleMagicCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Redirect(w, r, s.Guard.LoginURL+"?error="+url.QueryEscape("Sign-in link is not valid"), http.StatusFound)
		return
	}
	s.SignIn(MagicLinkCredential{Token: token}, w, r)
}

// handleOnboarding runs behind the route guard, so a request reaching it
// always carries a valid session. GET renders the onboarding form; POST is
// the onboarding-completion action.
func (s *Service) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Welcome to Onboarding</title></head>
<body>
<h1>Welcome to Onboarding</h1>
<p>Please complete your profile to continue.</p>
<form method="POST" action="%s">
	<button type="submit">Complete Onboarding</button>
</form>
</body>
</html>`, s.Guard.OnboardingURL)

	case http.MethodPost:
		if _, err := s.CompleteOnboarding(user.ID); err != nil {
			slog.Error("onboarding completion failed", "user", user.ID, "err", err)
			http.Error(w, "Could not complete onboarding, please try again", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, s.Guard.HomeURL, http.StatusFound)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleOrganizations is the protected landing area.
func (s *Service) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Organizations</title></head>
<body>
<h1>Organizations</h1>
<p>Select an organization to continue.</p>
<p>Signed in as %s</p>
<form method="POST" action="/logout"><button type="submit">Sign out</button></form>
</body>
</html>`, html.EscapeString(user.Email))
}

func (s *Service) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearSession(w, r)
	http.Redirect(w, r, localTarget(r.URL.Query().Get("to"), s.Guard.LoginURL), http.StatusFound)
}

// handleSessionAPI is the session introspection endpoint for script clients:
// the current session and user as JSON, or 401.
func (s *Service) handleSessionAPI(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	user := UserFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if session == nil || user == nil {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{"error": "not authenticated"})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"session": map[string]any{
			"user_id":    session.UserID,
			"created_at": session.CreatedAt.Format(time.RFC3339),
			"expires_at": session.ExpiresAt.Format(time.RFC3339),
		},
		"user": map[string]any{
			"id":                   user.ID,
			"email":                user.Email,
			"provider":             user.Provider,
			"completed_onboarding": user.CompletedOnboarding,
		},
	})
}

func providerQuery(param, callbackURL string) string {
	if callbackURL == "" {
		return ""
	}
	return param + "=" + url.QueryEscape(callbackURL)
}
