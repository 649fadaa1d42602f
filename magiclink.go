package edgeauth

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// MagicLinkDispatcher creates single-use sign-in tokens and hands them to the
// email delivery channel. Requesting a new link never invalidates outstanding
// ones; each token is independently valid until consumed or expired.
type MagicLinkDispatcher struct {
	Store  MagicLinkStore
	Sender SendEmail

	// BaseURL for building the sign-in link, e.g. "https://edge.example.com".
	BaseURL string

	// CallbackPath defaults to "/auth/magic/callback".
	CallbackPath string

	// TokenTTL defaults to MagicLinkTTLDefault (15m).
	TokenTTL time.Duration
}

// Request creates a fresh token for the address and emails the sign-in link.
// A delivery failure surfaces as ErrDeliveryFailed; the token it was carrying
// should be treated as lost and the user asked to retry.
func (d *MagicLinkDispatcher) Request(email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email required")
	}

	ttl := d.TokenTTL
	if ttl <= 0 {
		ttl = MagicLinkTTLDefault
	}
	token, err := d.Store.CreateMagicLinkToken(email, ttl)
	if err != nil {
		return err
	}

	link := d.SignInLink(token.Token)
	if err := d.Sender.SendMagicLinkEmail(email, link); err != nil {
		slog.Warn("magic link delivery failed", "email", email, "err", err)
		if !IsDeliveryError(err) {
			err = fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		}
		return err
	}
	return nil
}

// SignInLink builds the URL a recipient clicks to redeem the token.
func (d *MagicLinkDispatcher) SignInLink(token string) string {
	path := d.CallbackPath
	if path == "" {
		path = "/auth/magic/callback"
	}
	return fmt.Sprintf("%s%s?token=%s", d.BaseURL, path, url.QueryEscape(token))
}
