package oauth2

import (
	"context"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/courtedge/edgeauth"
)

type GoogleOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL overrides the userinfo endpoint, for tests.
	UserInfoURL string
}

func NewGoogleOAuth2(clientId string, clientSecret string, callbackUrl string, handleAssertion HandleAssertionFunc) *GoogleOAuth2 {
	out := &GoogleOAuth2{
		BaseOAuth2: NewBaseOAuth2(edgeauth.ProviderGoogle, clientId, clientSecret, callbackUrl, handleAssertion),
	}
	out.oauthConfig.Endpoint = google.Endpoint
	out.oauthConfig.Scopes = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
	out.fetchAssertion = out.fetchGoogleAssertion
	return out
}

func (g *GoogleOAuth2) fetchGoogleAssertion(ctx context.Context, token *oauth2.Token) (edgeauth.SocialAssertion, error) {
	httpClient := g.oauthConfig.Client(g.ExchangeContext(), token)
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if g.UserInfoURL != "" {
		opts = append(opts, option.WithEndpoint(g.UserInfoURL))
	}
	svc, err := goauth2.NewService(ctx, opts...)
	if err != nil {
		return edgeauth.SocialAssertion{}, err
	}
	ui, err := svc.Userinfo.Get().Do()
	if err != nil {
		return edgeauth.SocialAssertion{}, err
	}
	return edgeauth.SocialAssertion{
		Provider:  edgeauth.ProviderGoogle,
		AccountID: ui.Id,
		Email:     ui.Email,
		Name:      ui.Name,
		Picture:   ui.Picture,
	}, nil
}
