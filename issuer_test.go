package edgeauth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/courtedge/edgeauth"
	"github.com/courtedge/edgeauth/stores"
)

func newIssuer(store edgeauth.AuthStore) *edgeauth.Issuer {
	return &edgeauth.Issuer{
		Store:        store,
		SessionTTL:   24 * time.Hour,
		JwtIssuer:    "EDGE-Test-Issuer",
		JWTSecretKey: "TestSecretKey1234567890",
	}
}

func TestIssueCreatesUserOnFirstSignIn(t *testing.T) {
	store := stores.NewMemoryStore()
	issuer := newIssuer(store)

	session, user, err := issuer.Issue(edgeauth.MagicLinkIdentity{EmailAddress: "fresh@example.com"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if user.Email != "fresh@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if user.Provider != edgeauth.ProviderMagicLink {
		t.Errorf("expected magiclink provider on first sign-in, got %q", user.Provider)
	}
	if user.CompletedOnboarding {
		t.Error("fresh users must start with onboarding incomplete")
	}
	if session.UserID != user.ID {
		t.Errorf("session owner mismatch: %s vs %s", session.UserID, user.ID)
	}
	if got := session.ExpiresAt.Sub(session.CreatedAt); got != 24*time.Hour {
		t.Errorf("expected 24h session lifetime, got %v", got)
	}
}

func TestIssueReusesExistingUser(t *testing.T) {
	store := stores.NewMemoryStore()
	issuer := newIssuer(store)

	_, first, err := issuer.Issue(edgeauth.SocialIdentity{
		ProviderName: edgeauth.ProviderGoogle,
		AccountID:    "g1",
		EmailAddress: "steady@example.com",
	})
	if err != nil {
		t.Fatal(err)
	}

	session2, second, err := issuer.Issue(edgeauth.SocialIdentity{
		ProviderName: edgeauth.ProviderGoogle,
		AccountID:    "g1",
		EmailAddress: "Steady@Example.COM",
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID {
		t.Errorf("expected the same user across sign-ins, got %s and %s", first.ID, second.ID)
	}
	if session2.UserID != first.ID {
		t.Errorf("session owner mismatch")
	}
}

func TestConcurrentSessionsAreIndependent(t *testing.T) {
	store := stores.NewMemoryStore()
	issuer := newIssuer(store)

	ident := edgeauth.MagicLinkIdentity{EmailAddress: "multi@example.com"}
	s1, _, _ := issuer.Issue(ident)
	s2, _, err := issuer.Issue(ident)
	if err != nil {
		t.Fatal(err)
	}
	if s1.Token == s2.Token {
		t.Fatal("each sign-in must mint a distinct session")
	}

	// Deleting one leaves the other intact
	if err := store.DeleteSession(s1.Token); err != nil {
		t.Fatal(err)
	}
	remaining, err := store.GetSession(s2.Token)
	if err != nil || remaining == nil {
		t.Errorf("second session should survive, got %v %v", remaining, err)
	}
}

func TestEncodeDecodeSession(t *testing.T) {
	store := stores.NewMemoryStore()
	issuer := newIssuer(store)

	session, _, err := issuer.Issue(edgeauth.MagicLinkIdentity{EmailAddress: "jwt@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	envelope, err := issuer.EncodeSession(session)
	if err != nil {
		t.Fatalf("EncodeSession: %v", err)
	}
	if strings.Count(envelope, ".") != 2 {
		t.Errorf("expected compact JWT, got %q", envelope)
	}

	sid, err := issuer.DecodeSessionToken(envelope)
	if err != nil {
		t.Fatalf("DecodeSessionToken: %v", err)
	}
	if sid != session.Token {
		t.Errorf("round trip mismatch: got %q want %q", sid, session.Token)
	}
}

func TestDecodeRejectsBadEnvelopes(t *testing.T) {
	store := stores.NewMemoryStore()
	issuer := newIssuer(store)

	session, _, _ := issuer.Issue(edgeauth.MagicLinkIdentity{EmailAddress: "bad@example.com"})
	envelope, _ := issuer.EncodeSession(session)

	t.Run("garbage", func(t *testing.T) {
		if _, err := issuer.DecodeSessionToken("not.a.jwt"); err == nil {
			t.Error("expected error for garbage input")
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other := newIssuer(store)
		other.JWTSecretKey = "ADifferentSecretKey0000"
		if _, err := other.DecodeSessionToken(envelope); err == nil {
			t.Error("expected signature verification failure")
		}
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(envelope, ".")
		tampered := parts[0] + ".eyJzaWQiOiJmb3JnZWQifQ." + parts[2]
		if _, err := issuer.DecodeSessionToken(tampered); err == nil {
			t.Error("expected rejection of tampered payload")
		}
	})
}
