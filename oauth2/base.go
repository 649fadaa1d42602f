// Package oauth2 provides the redirect-based OAuth2 plumbing for the social
// sign-in providers (Google, Microsoft). Each provider handles the redirector
// at "/" and the provider callback at "/callback/", exchanges the code, and
// hands the resulting assertion to the configured callback, typically
// Service.SignIn via a small adapter.
package oauth2

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"

	"github.com/courtedge/edgeauth"
)

// HandleAssertionFunc receives the provider's verified assertion after a
// successful code exchange and userinfo fetch.
type HandleAssertionFunc func(assertion edgeauth.SocialAssertion, w http.ResponseWriter, r *http.Request)

type BaseOAuth2 struct {
	Provider     string
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// HandleAssertion is called on a successful callback.
	HandleAssertion HandleAssertionFunc

	// AuthFailureUrl receives the redirect when the exchange or the userinfo
	// fetch fails. Defaults to "/login?error=provider".
	AuthFailureUrl string

	// HTTPClient overrides the client used for the token exchange and the
	// userinfo fetch. Mainly for tests.
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux

	// fetchAssertion is provider specific: given a token, produce the
	// assertion. Set by the concrete provider constructor.
	fetchAssertion func(ctx context.Context, token *oauth2.Token) (edgeauth.SocialAssertion, error)
}

// NewBaseOAuth2 builds the shared provider scaffolding. Empty config values
// fall back to OAUTH2_<PROVIDER>_CLIENT_ID / _CLIENT_SECRET / _CALLBACK_URL.
func NewBaseOAuth2(provider, clientId, clientSecret, callbackUrl string, handleAssertion HandleAssertionFunc) *BaseOAuth2 {
	envPrefix := "OAUTH2_" + strings.ToUpper(provider)
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv(envPrefix + "_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv(envPrefix + "_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv(envPrefix + "_CALLBACK_URL"))
	}
	out := &BaseOAuth2{
		Provider:        provider,
		ClientId:        clientId,
		ClientSecret:    clientSecret,
		CallbackURL:     callbackUrl,
		HandleAssertion: handleAssertion,
		AuthFailureUrl:  "/login?error=provider",
		mux:             http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return out
}

// Handler returns the provider's HTTP surface: "/" (redirector) and
// "/callback/". Mount it with Service.AddProvider.
func (b *BaseOAuth2) Handler() http.Handler {
	return b.mux
}

// SetHTTPClient injects the client used for exchange and userinfo calls.
func (b *BaseOAuth2) SetHTTPClient(client *http.Client) {
	b.HTTPClient = client
}

// SetOAuthEndpoint overrides the provider endpoint, for tests against a mock
// OAuth server.
func (b *BaseOAuth2) SetOAuthEndpoint(endpoint oauth2.Endpoint) {
	b.oauthConfig.Endpoint = endpoint
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// ExchangeContext returns a context that routes the x/oauth2 token exchange
// through the injected HTTP client when one is set.
func (b *BaseOAuth2) ExchangeContext() context.Context {
	ctx := context.Background()
	if b.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

// handleCallback validates the state cookie, exchanges the code and hands the
// assertion onward. Exchange or userinfo failures redirect to AuthFailureUrl.
func (b *BaseOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{
			Name:   "oauthstate",
			MaxAge: 0,
		})
		http.Error(w, fmt.Sprintf("invalid oauth %s state: %s, CookieOauthState: %s", b.Provider, r.FormValue("state"), oauthState.Value), http.StatusBadRequest)
		return
	}

	code := r.FormValue("code")
	token, err := b.oauthConfig.Exchange(b.ExchangeContext(), code)
	if err != nil {
		slog.Info("invalid code exchange", "provider", b.Provider, "err", err)
	} else {
		var assertion edgeauth.SocialAssertion
		assertion, err = b.fetchAssertion(r.Context(), token)
		if err == nil {
			b.HandleAssertion(assertion, w, r)
			return
		}
		slog.Info("userinfo fetch failed", "provider", b.Provider, "err", err)
	}
	http.Redirect(w, r, b.AuthFailureUrl, http.StatusTemporaryRedirect)
}
