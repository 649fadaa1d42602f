package edgeauth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// SendEmail interface allows applications to provide their own email sending implementation
type SendEmail interface {
	SendMagicLinkEmail(to string, signInLink string) error
}

// ConsoleEmailSender is a development implementation that logs emails to console
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendMagicLinkEmail(to string, signInLink string) error {
	log.Printf("\n=== EMAIL: Magic Link ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Sign in to EDGE")
	log.Printf("Body: Click the link below to sign in: %s", signInLink)
	log.Printf("=========================\n")
	return nil
}

// ResendEmailSender delivers magic-link emails through a Resend-compatible
// HTTP API. Delivery failures are reported as ErrDeliveryFailed; the API's
// response body is logged, never surfaced to the end user.
type ResendEmailSender struct {
	APIKey string
	From   string

	// BaseURL defaults to the hosted Resend endpoint.
	BaseURL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (s *ResendEmailSender) SendMagicLinkEmail(to string, signInLink string) error {
	return s.send(to, "Sign in to EDGE", fmt.Sprintf(
		`<p>Click the link below to sign in to EDGE:</p><a href="%s">Sign in</a>`,
		signInLink))
}

func (s *ResendEmailSender) send(to, subject, html string) error {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	payload, err := json.Marshal(map[string]any{
		"from":    s.From,
		"to":      []string{to},
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("email API returned %d sending to %s", resp.StatusCode, to)
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
