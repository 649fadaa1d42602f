package edgeauth_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/courtedge/edgeauth"
)

func TestResendEmailSender(t *testing.T) {
	var gotAuth string
	var gotPath string
	var gotBody map[string]any
	respondWith := http.StatusOK

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.WriteHeader(respondWith)
	}))
	defer server.Close()

	sender := &edgeauth.ResendEmailSender{
		APIKey:  "re_test_key",
		From:    "EDGE <auth@edge.example.com>",
		BaseURL: server.URL,
	}

	t.Run("sends the sign-in email", func(t *testing.T) {
		respondWith = http.StatusOK
		if err := sender.SendMagicLinkEmail("ref@example.com", "https://edge.example.com/auth/magic/callback?token=abc"); err != nil {
			t.Fatalf("SendMagicLinkEmail: %v", err)
		}
		if gotAuth != "Bearer re_test_key" {
			t.Errorf("unexpected auth header %q", gotAuth)
		}
		if gotPath != "/emails" {
			t.Errorf("unexpected path %q", gotPath)
		}
		if gotBody["subject"] != "Sign in to EDGE" {
			t.Errorf("unexpected subject %v", gotBody["subject"])
		}
		to, _ := gotBody["to"].([]any)
		if len(to) != 1 || to[0] != "ref@example.com" {
			t.Errorf("unexpected recipients %v", gotBody["to"])
		}
	})

	t.Run("non-2xx is a delivery failure", func(t *testing.T) {
		respondWith = http.StatusUnprocessableEntity
		err := sender.SendMagicLinkEmail("ref@example.com", "https://link")
		if !errors.Is(err, edgeauth.ErrDeliveryFailed) {
			t.Errorf("expected ErrDeliveryFailed, got %v", err)
		}
	})

	t.Run("unreachable API is a delivery failure", func(t *testing.T) {
		dead := &edgeauth.ResendEmailSender{APIKey: "k", BaseURL: "http://127.0.0.1:1"}
		err := dead.SendMagicLinkEmail("ref@example.com", "https://link")
		if !errors.Is(err, edgeauth.ErrDeliveryFailed) {
			t.Errorf("expected ErrDeliveryFailed, got %v", err)
		}
	})
}
