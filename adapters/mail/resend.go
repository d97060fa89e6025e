// Package mail delivers password reset links.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lborres/agora/core"
	"github.com/lborres/agora/internal/logging"
)

const (
	DefaultResendEndpoint = "https://api.resend.com/emails"
	DefaultFrom           = "onboarding@resend.dev"
	resetSubject          = "Reset your password"
)

var ErrMailRejected = errors.New("mail provider rejected the message")

type ResendConfig struct {
	APIKey   string
	From     string
	Endpoint string
	Timeout  time.Duration
}

// Resend sends mail through the Resend HTTP API.
type Resend struct {
	config ResendConfig
	client *http.Client
	log    logging.Logger
}

var _ core.Mailer = (*Resend)(nil)

func NewResend(config ResendConfig, log logging.Logger) *Resend {
	if config.From == "" {
		config.From = DefaultFrom
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultResendEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Resend{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		log:    log,
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (r *Resend) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	html, err := renderReset(resetURL)
	if err != nil {
		return err
	}

	body, err := json.Marshal(resendRequest{
		From:    r.config.From,
		To:      []string{to},
		Subject: resetSubject,
		HTML:    html,
		Text:    resetText(resetURL),
	})
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	var out resendResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d: %s", ErrMailRejected, resp.StatusCode, out.Message)
	}

	r.log.Info(ctx, "reset email sent", "message_id", out.ID)
	return nil
}

var resetTemplate = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h1>Reset your password</h1>
    <p>You asked to reset your password. Follow the link below to choose a new one:</p>
    <p><a href="{{.}}">Reset my password</a></p>
    <p style="word-break: break-all; color: #666; font-size: 12px;">{{.}}</p>
    <p style="color: #666; font-size: 14px;">This link is valid for 1 hour. If you did not ask for a reset, ignore this email.</p>
  </body>
</html>
`))

func renderReset(resetURL string) (string, error) {
	var b strings.Builder
	if err := resetTemplate.Execute(&b, resetURL); err != nil {
		return "", fmt.Errorf("render mail: %w", err)
	}
	return b.String(), nil
}

func resetText(resetURL string) string {
	return "You asked to reset your password. Open this link to choose a new one:\n\n" +
		resetURL + "\n\nThis link is valid for 1 hour. If you did not ask for a reset, ignore this email.\n"
}
