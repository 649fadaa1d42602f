package edgeauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
)

type contextKey string

const (
	userContextKey    contextKey = "edgeauthUser"
	sessionContextKey contextKey = "edgeauthSession"
)

// Guard is the route guard: one decision function applied uniformly to every
// protected route instead of per-page session checks.
//
// Session resolution order per request: the scs-managed cookie session, then
// the Authorization header, then the auth-token cookie (both carrying the JWT
// envelope from Issuer.EncodeSession). Every evaluation re-reads current state
// from the store; nothing is cached between requests.
type Guard struct {
	Store  AuthStore
	Issuer *Issuer

	// Session is the scs manager whose session data carries the opaque
	// session token under SessionTokenVar.
	Session         *scs.SessionManager
	SessionTokenVar string

	AuthTokenHeaderName string
	AuthTokenCookieName string

	// Routes the state machine pivots on.
	LoginURL      string
	OnboardingURL string
	HomeURL       string

	// CallbackURLParam is the query param carrying the originally requested
	// page through the login redirect.
	CallbackURLParam string

	// Now is stubbed in tests; defaults to time.Now.
	Now func() time.Time
}

func (g *Guard) EnsureDefaults() {
	if g.SessionTokenVar == "" {
		g.SessionTokenVar = "sessionToken"
	}
	if g.AuthTokenHeaderName == "" {
		g.AuthTokenHeaderName = "Authorization"
	}
	if g.LoginURL == "" {
		g.LoginURL = "/login"
	}
	if g.OnboardingURL == "" {
		g.OnboardingURL = "/onboarding"
	}
	if g.HomeURL == "" {
		g.HomeURL = "/organizations"
	}
	if g.CallbackURLParam == "" {
		g.CallbackURLParam = "callbackUrl"
	}
	if g.Now == nil {
		g.Now = time.Now
	}
}

// Protect enforces the navigation state machine:
//
//	no valid session            -> redirect LoginURL?callbackUrl=<original>
//	onboarding incomplete       -> forced to OnboardingURL from anywhere else
//	onboarding complete         -> OnboardingURL forwards to HomeURL
//	otherwise                   -> proceed, user and session in context
func (g *Guard) Protect(next http.Handler) http.Handler {
	g.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, user, err := g.Resolve(r)
		if err != nil {
			g.failResolve(err, w)
			return
		}

		switch Decide(session, user, g.Now()) {
		case RequireSignIn:
			g.redirectToLogin(w, r)

		case RequireOnboarding:
			if r.URL.Path != g.OnboardingURL {
				http.Redirect(w, r, g.OnboardingURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, withAuth(r, session, user))

		case Proceed:
			if r.URL.Path == g.OnboardingURL && r.Method == http.MethodGet {
				http.Redirect(w, r, g.HomeURL, http.StatusFound)
				return
			}
			next.ServeHTTP(w, withAuth(r, session, user))
		}
	})
}

// Extract resolves the session without enforcing anything. Handlers that
// render differently for signed-in users (the login page itself) use this.
func (g *Guard) Extract(next http.Handler) http.Handler {
	g.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, user, err := g.Resolve(r)
		if err != nil {
			g.failResolve(err, w)
			return
		}
		next.ServeHTTP(w, withAuth(r, session, user))
	})
}

// Resolve finds the current session and its user, or (nil, nil, nil). An
// absent record is a normal outcome; a store failure is not, and aborts
// resolution with the error so the request fails outright instead of
// presenting the user as signed out. Expired session records are lazily
// purged on sight; purge timing never affects validity, which Decide judges
// purely from expiresAt.
func (g *Guard) Resolve(r *http.Request) (*Session, *User, error) {
	g.EnsureDefaults()

	for _, token := range g.candidateTokens(r) {
		session, err := g.Store.GetSession(token)
		if err != nil {
			return nil, nil, err
		}
		if session == nil {
			continue
		}
		if session.IsExpired(g.Now()) {
			// The session is already judged invalid; a failed purge only
			// delays cleanup.
			if err := g.Store.DeleteSession(session.Token); err != nil {
				slog.Warn("failed to purge expired session", "err", err)
			}
			continue
		}
		user, err := g.Store.GetUser(session.UserID)
		if err != nil {
			return nil, nil, err
		}
		if user == nil {
			continue
		}
		return session, user, nil
	}
	return nil, nil, nil
}

// failResolve answers a store failure with a generic retryable error, hiding
// store internals from the response.
func (g *Guard) failResolve(err error, w http.ResponseWriter) {
	slog.Error("session resolution failed", "err", err)
	http.Error(w, "Something went wrong, please try again", http.StatusInternalServerError)
}

// candidateTokens gathers opaque session tokens from the cookie session and
// from JWT envelopes in the auth header / auth cookie.
func (g *Guard) candidateTokens(r *http.Request) []string {
	var tokens []string

	if g.Session != nil {
		if token := g.Session.GetString(r.Context(), g.SessionTokenVar); token != "" {
			tokens = append(tokens, token)
		}
	}

	var envelopes []string
	for _, h := range r.Header.Values(g.AuthTokenHeaderName) {
		envelopes = append(envelopes, strings.TrimPrefix(h, "Bearer "))
	}
	if g.AuthTokenCookieName != "" {
		for _, cookie := range r.Cookies() {
			if cookie.Name == g.AuthTokenCookieName && cookie.Value != "" {
				envelopes = append(envelopes, cookie.Value)
			}
		}
	}
	if g.Issuer != nil {
		for _, envelope := range envelopes {
			token, err := g.Issuer.DecodeSessionToken(envelope)
			if err != nil {
				slog.Warn("rejecting auth token", "err", err)
				continue
			}
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func (g *Guard) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	originalURL := r.URL.Path
	if r.URL.RawQuery != "" {
		originalURL += "?" + r.URL.RawQuery
	}
	encoded := strings.Replace(url.QueryEscape(originalURL), "+", "%20", -1)
	http.Redirect(w, r, g.LoginURL+"?"+g.CallbackURLParam+"="+encoded, http.StatusFound)
}

func withAuth(r *http.Request, session *Session, user *User) *http.Request {
	ctx := context.WithValue(r.Context(), sessionContextKey, session)
	ctx = context.WithValue(ctx, userContextKey, user)
	return r.WithContext(ctx)
}

// UserFromContext returns the authenticated user set by Protect/Extract, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userContextKey).(*User)
	return u
}

// SessionFromContext returns the current session set by Protect/Extract, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}
