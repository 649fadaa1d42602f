// Package edgeauth implements the sign-in, session and onboarding flow for
// the EDGE referee-management dashboard: passwordless magic-link email
// authentication, Google and Microsoft OAuth sign-in, server-side sessions
// with a 24 hour lifetime, and a route guard that funnels every new user
// through onboarding before the rest of the app.
//
// # Architecture
//
// Credential: something a request presents to prove who the caller is. A
// closed union of SocialAssertion (the result of an OAuth code exchange, see
// the oauth2 subpackage) and MagicLinkCredential (a raw token from a sign-in
// link).
//
// Verifier: judges a credential against the store and yields an Identity or a
// verification error (ErrProviderRejected, ErrProviderMismatch,
// ErrTokenExpired, ErrTokenAlreadyUsed, ErrTokenNotFound).
//
// Issuer: turns a verified Identity into a Session, creating the user on
// first sign-in. It also signs/verifies the JWT envelope used by API clients
// that carry the session in a header instead of the cookie.
//
// Guard: the route guard. One decision function (Decide) applied uniformly:
// no valid session redirects to login with the original URL preserved,
// incomplete onboarding forces the onboarding page, and completed onboarding
// forwards the onboarding page itself to the organizations area.
//
// # Basic Usage
//
//	import (
//	    "github.com/courtedge/edgeauth"
//	    oauth "github.com/courtedge/edgeauth/oauth2"
//	    gormstore "github.com/courtedge/edgeauth/stores/gorm"
//	)
//
//	store, _ := gormstore.Open(dsn)
//	svc := edgeauth.New("EDGE")
//	svc.Store = store
//	svc.EnsureDefaults()
//
//	handleSocial := func(a edgeauth.SocialAssertion, w http.ResponseWriter, r *http.Request) {
//	    svc.SignIn(a, w, r)
//	}
//	svc.AddProvider("google", oauth.NewGoogleOAuth2("", "", "", handleSocial).Handler())
//	svc.AddProvider("microsoft", oauth.NewMicrosoftOAuth2("", "", "", handleSocial).Handler())
//
//	http.ListenAndServe(":8080", svc.Handler())
//
// # Store Implementations
//
// The stores package has an in-memory implementation for development and
// tests; stores/gorm has the Postgres-backed implementation used in
// production. Both satisfy AuthStore.
//
// # Security
//
// Session and magic-link tokens are cryptographically secure 32-byte values,
// hex-encoded to 64 characters. Magic-link tokens are single use and expire
// after 15 minutes; consumption is atomic, so concurrent redemptions of the
// same token resolve to exactly one winner. Sessions expire 24 hours after
// sign-in with no sliding extension.
package edgeauth
