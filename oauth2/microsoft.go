package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"github.com/courtedge/edgeauth"
)

const graphMeURL = "https://graph.microsoft.com/v1.0/me"

// MicrosoftOAuth2 signs users in through Entra ID ("common" tenant, so both
// personal and work accounts work) and reads the profile from Microsoft Graph.
// Same redirector/callback shape as every other provider.
type MicrosoftOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL overrides the Graph /me endpoint, for tests.
	UserInfoURL string
}

func NewMicrosoftOAuth2(clientId string, clientSecret string, callbackUrl string, handleAssertion HandleAssertionFunc) *MicrosoftOAuth2 {
	out := &MicrosoftOAuth2{
		BaseOAuth2: NewBaseOAuth2(edgeauth.ProviderMicrosoft, clientId, clientSecret, callbackUrl, handleAssertion),
	}
	out.oauthConfig.Endpoint = microsoft.AzureADEndpoint("common")
	out.oauthConfig.Scopes = []string{"openid", "profile", "email", "User.Read"}
	out.fetchAssertion = out.fetchGraphAssertion
	return out
}

// graphUser is the subset of the Graph /me payload we need. Personal accounts
// often have no "mail" and carry the address in userPrincipalName instead.
type graphUser struct {
	Id                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (m *MicrosoftOAuth2) fetchGraphAssertion(ctx context.Context, token *oauth2.Token) (edgeauth.SocialAssertion, error) {
	userInfoURL := m.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = graphMeURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return edgeauth.SocialAssertion{}, err
	}
	token.SetAuthHeader(req)

	resp, err := m.getHTTPClient().Do(req)
	if err != nil {
		return edgeauth.SocialAssertion{}, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return edgeauth.SocialAssertion{}, fmt.Errorf("graph returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return edgeauth.SocialAssertion{}, fmt.Errorf("failed read response: %w", err)
	}

	var gu graphUser
	if err := json.Unmarshal(data, &gu); err != nil {
		return edgeauth.SocialAssertion{}, err
	}
	email := gu.Mail
	if email == "" {
		email = gu.UserPrincipalName
	}
	return edgeauth.SocialAssertion{
		Provider:  edgeauth.ProviderMicrosoft,
		AccountID: gu.Id,
		Email:     email,
		Name:      gu.DisplayName,
	}, nil
}
