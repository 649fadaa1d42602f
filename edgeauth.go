package edgeauth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
)

// Service wires the whole sign-in flow together: credential verification,
// session issuance, the onboarding gate, the route guard and the magic-link
// dispatcher, behind one http.Handler.
type Service struct {
	mux     *http.ServeMux
	Session *scs.SessionManager
	Guard   Guard

	// Optional name used as a prefix for derived defaults
	AppName string

	// Must be passed in
	Store AuthStore

	// EmailSender delivers magic-link emails. Defaults to the console sender.
	EmailSender SendEmail

	// BaseURL of the deployment, used in magic links. e.g. "http://localhost:8080"
	BaseURL string

	// All the domains where the auth token cookie is set on login and cleared on logout
	CookieDomains []string

	// Name of the cookie carrying the JWT session envelope for API clients
	AuthTokenCookieName string

	// JWT related fields
	JwtIssuer    string
	JWTSecretKey string

	SessionTTL   time.Duration
	MagicLinkTTL time.Duration

	verifier   *Verifier
	issuer     *Issuer
	dispatcher *MagicLinkDispatcher
}

func New(appName string) *Service {
	return (&Service{AppName: appName}).EnsureDefaults()
}

func (s *Service) EnsureDefaults() *Service {
	if s.AppName == "" {
		s.AppName = "EDGE"
	}
	if s.SessionTTL <= 0 {
		s.SessionTTL = SessionTTLDefault
	}
	if s.MagicLinkTTL <= 0 {
		s.MagicLinkTTL = MagicLinkTTLDefault
	}
	if s.JwtIssuer == "" {
		s.JwtIssuer = s.AppName + "-Issuer"
	}
	if s.JWTSecretKey == "" {
		s.JWTSecretKey = strings.TrimSpace(os.Getenv("EDGEAUTH_JWT_SECRET_KEY"))
		if s.JWTSecretKey == "" {
			s.JWTSecretKey = "MyTestJWTSecretKey123456"
		}
	}
	if s.AuthTokenCookieName == "" {
		s.AuthTokenCookieName = s.AppName + "AuthToken"
	}
	if s.BaseURL == "" {
		s.BaseURL = strings.TrimSpace(os.Getenv("EDGEAUTH_BASE_URL"))
		if s.BaseURL == "" {
			s.BaseURL = "http://localhost:8080"
		}
	}
	if s.EmailSender == nil {
		s.EmailSender = &ConsoleEmailSender{}
	}
	if s.Session == nil {
		s.Session = scs.New()
		s.Session.Lifetime = s.SessionTTL
		s.Session.Cookie.HttpOnly = true
		s.Session.Cookie.Path = "/"
	}

	if s.Store != nil {
		s.verifier = &Verifier{Store: s.Store}
		s.issuer = &Issuer{
			Store:        s.Store,
			SessionTTL:   s.SessionTTL,
			JwtIssuer:    s.JwtIssuer,
			JWTSecretKey: s.JWTSecretKey,
		}
		s.dispatcher = &MagicLinkDispatcher{
			Store:    s.Store,
			Sender:   s.EmailSender,
			BaseURL:  s.BaseURL,
			TokenTTL: s.MagicLinkTTL,
		}
		s.Guard.Store = s.Store
		s.Guard.Issuer = s.issuer
		s.Guard.Session = s.Session
		s.Guard.AuthTokenCookieName = s.AuthTokenCookieName
		s.Guard.EnsureDefaults()
	}
	return s
}

// Issuer exposes the session issuer, mainly so host apps can encode or decode
// session envelopes (for gRPC metadata, background jobs, etc).
func (s *Service) Issuer() *Issuer {
	s.EnsureDefaults()
	return s.issuer
}

// Handler returns the full HTTP surface, wrapped in the cookie-session
// middleware. Mount it at the host router's root.
func (s *Service) Handler() http.Handler {
	s.EnsureDefaults()
	return s.Session.LoadAndSave(s.setupRoutes().mux)
}

// AddProvider mounts an OAuth provider handler (see the oauth2 subpackage)
// under /auth/<name>/. The provider receives /  (redirector) and /callback/.
func (s *Service) AddProvider(name string, handler http.Handler) *Service {
	s.setupRoutes()
	prefix := "/auth/" + strings.Trim(name, "/")

	// Register at prefix/ for subtree matching so the handler sees /, /callback/, etc.
	s.mux.Handle(prefix+"/", http.StripPrefix(prefix, handler))

	// Redirect the bare prefix to the trailing-slash form. 308 preserves the
	// method; 301 would turn POSTs into GETs.
	s.mux.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		origPath := r.RequestURI
		if idx := strings.Index(origPath, "?"); idx != -1 {
			origPath = origPath[:idx]
		}
		target := origPath + "/"
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusPermanentRedirect)
	})
	return s
}

func (s *Service) setupRoutes() *Service {
	if s.mux == nil {
		s.EnsureDefaults()
		s.mux = http.NewServeMux()
		s.mux.Handle("/login", s.Guard.Extract(http.HandlerFunc(s.handleLogin)))
		s.mux.HandleFunc("/magic", s.handleMagicPage)
		s.mux.HandleFunc("/auth/magic/callback", s.handleMagicCallback)
		s.mux.Handle("/onboarding", s.Guard.Protect(http.HandlerFunc(s.handleOnboarding)))
		s.mux.Handle("/organizations", s.Guard.Protect(http.HandlerFunc(s.handleOrganizations)))
		s.mux.HandleFunc("/logout", s.handleLogout)
		s.mux.Handle("/api/auth/session", s.Guard.Extract(http.HandlerFunc(s.handleSessionAPI)))
	}
	return s
}

// SignIn is the single post-verification entry point shared by the magic-link
// callback and every OAuth callback: verify the credential, issue a session,
// set cookies, then send the user where the onboarding gate says.
func (s *Service) SignIn(cred Credential, w http.ResponseWriter, r *http.Request) {
	s.EnsureDefaults()

	identity, err := s.verifier.Verify(cred)
	if err != nil {
		s.failSignIn(err, w, r)
		return
	}
	session, user, err := s.issuer.Issue(identity)
	if err != nil {
		s.failSignIn(err, w, r)
		return
	}

	s.setSession(session, w, r)

	target := s.popCallbackURL(w, r)
	if !user.CompletedOnboarding {
		target = s.Guard.OnboardingURL
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// failSignIn surfaces verification errors to the login page and hides store
// internals behind a generic failure.
func (s *Service) failSignIn(err error, w http.ResponseWriter, r *http.Request) {
	if IsVerificationError(err) {
		slog.Info("sign-in rejected", "err", err)
		http.Redirect(w, r, s.Guard.LoginURL+"?error="+url.QueryEscape(err.Error()), http.StatusFound)
		return
	}
	slog.Error("sign-in failed", "err", err)
	http.Error(w, "Sign-in failed, please try again", http.StatusInternalServerError)
}

// setSession stores the opaque token in the cookie session and mirrors the
// signed JWT envelope onto the configured cookie domains for API clients.
func (s *Service) setSession(session *Session, w http.ResponseWriter, r *http.Request) {
	// Fresh session id on privilege change
	if err := s.Session.RenewToken(r.Context()); err != nil {
		slog.Warn("error renewing cookie session", "err", err)
	}
	s.Session.Put(r.Context(), s.Guard.SessionTokenVar, session.Token)

	envelope, err := s.issuer.EncodeSession(session)
	if err != nil {
		slog.Warn("error signing session envelope", "err", err)
		return
	}
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	for _, cookieDomain := range s.cookieDomains() {
		http.SetCookie(w, &http.Cookie{
			Name:     s.AuthTokenCookieName,
			Value:    envelope,
			Domain:   cookieDomain,
			Path:     "/",
			HttpOnly: true,
			Expires:  session.ExpiresAt,
			MaxAge:   maxAge,
		})
	}
}

func (s *Service) clearSession(w http.ResponseWriter, r *http.Request) {
	if token := s.Session.GetString(r.Context(), s.Guard.SessionTokenVar); token != "" {
		if err := s.Store.DeleteSession(token); err != nil {
			slog.Warn("error deleting session record", "err", err)
		}
	}
	if err := s.Session.Destroy(r.Context()); err != nil {
		slog.Warn("error destroying cookie session", "err", err)
	}
	for _, cookieDomain := range s.cookieDomains() {
		http.SetCookie(w, &http.Cookie{
			Name:    s.AuthTokenCookieName,
			Domain:  cookieDomain,
			Path:    "/",
			MaxAge:  -1,
			Expires: time.Now(),
		})
	}
}

func (s *Service) cookieDomains() []string {
	domains := s.CookieDomains
	if slices.Index(domains, "") < 0 { // default domain
		domains = append(domains, "")
	}
	return domains
}

// popCallbackURL retrieves the post-login destination: the cookie session
// first, then the short-lived cookie the OAuth redirector sets, defaulting to
// the organizations area. Relative targets only; anything absolute is ignored
// to keep the redirect on this origin.
func (s *Service) popCallbackURL(w http.ResponseWriter, r *http.Request) string {
	target := s.Session.PopString(r.Context(), "callbackUrl")

	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil && cookie.Value != "" {
		if target == "" {
			target = cookie.Value
		}
		// delete it so it wont be used for subsequent redirects
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthCallbackURL",
			Value:  "",
			Path:   "/",
			MaxAge: -1, Expires: time.Now(),
		})
	}

	return localTarget(target, s.Guard.HomeURL)
}

// localTarget keeps redirect destinations on this origin: anything absolute
// or not rooted at "/" falls back.
func localTarget(target, fallback string) string {
	if u, err := url.Parse(target); err != nil || target == "" || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(target, "/") {
		return fallback
	}
	return target
}

// CompleteOnboarding flips the user's onboarding flag. The same session token
// keeps working; no re-authentication is required.
func (s *Service) CompleteOnboarding(userID string) (*User, error) {
	done := true
	user, err := s.Store.UpdateUser(userID, UserPatch{CompletedOnboarding: &done})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}
