package edgeauth

import "fmt"

// Credential is a presented-but-unverified credential. It is a closed union:
// SocialAssertion (already exchanged with the provider by the oauth2 package)
// or MagicLinkCredential (a raw token from a sign-in link).
type Credential interface {
	credential()
}

// SocialAssertion is the outcome of a provider's code exchange: a stable
// external identity. The redirect/exchange protocol itself lives in the
// oauth2 subpackage; the verifier only judges the result.
type SocialAssertion struct {
	Provider  string
	AccountID string
	Email     string
	Name      string
	Picture   string
}

func (SocialAssertion) credential() {}

// MagicLinkCredential is the token carried by a magic-link URL.
type MagicLinkCredential struct {
	Token string
}

func (MagicLinkCredential) credential() {}

// Verifier validates presented credentials against the store and yields an
// authenticated identity or a verification error.
type Verifier struct {
	Store AuthStore
}

// Verify validates the credential.
//
// Social path: fails with ErrProviderRejected when the assertion is unusable
// and ErrProviderMismatch when the email belongs to a user established under
// a different provider. Magic-link path: consumes the token exactly once;
// expired, used or unknown tokens are rejected with no side effect.
func (v *Verifier) Verify(cred Credential) (Identity, error) {
	switch c := cred.(type) {
	case SocialAssertion:
		return v.verifySocial(c)
	case MagicLinkCredential:
		return v.verifyMagicLink(c)
	default:
		return nil, fmt.Errorf("unsupported credential type %T", cred)
	}
}

func (v *Verifier) verifySocial(a SocialAssertion) (Identity, error) {
	email := NormalizeEmail(a.Email)
	if email == "" || a.AccountID == "" {
		return nil, fmt.Errorf("%w: provider returned no usable identity", ErrProviderRejected)
	}

	existing, err := v.Store.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	// A social sign-in may only reuse an email whose account it established.
	// Magic-link redemption proves ownership of the address itself, so a
	// magic-link account is open to either social provider through linking,
	// but that is an explicit step, not a side effect of signing in.
	if existing != nil && existing.Provider != a.Provider {
		return nil, fmt.Errorf("%w: account belongs to %q", ErrProviderMismatch, existing.Provider)
	}

	return SocialIdentity{
		ProviderName: a.Provider,
		AccountID:    a.AccountID,
		EmailAddress: email,
		Name:         a.Name,
		Picture:      a.Picture,
	}, nil
}

func (v *Verifier) verifyMagicLink(c MagicLinkCredential) (Identity, error) {
	if c.Token == "" {
		return nil, ErrTokenNotFound
	}
	email, err := v.Store.ConsumeMagicLinkToken(c.Token)
	if err != nil {
		return nil, err
	}
	return MagicLinkIdentity{EmailAddress: email}, nil
}
