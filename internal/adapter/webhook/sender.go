// Package webhook posts notifications to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/incident-aoi-notifier/internal/config"
	"github.com/couchcryptid/incident-aoi-notifier/internal/domain"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body when a secret is configured.
const SignatureHeader = "X-Webhook-Signature"

// Sender is the webhook notification sink. Each notification is one POST, not retried.
type Sender struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSender creates a webhook sender.
func NewSender(url, secret string, timeout time.Duration, logger *slog.Logger) *Sender {
	return &Sender{
		url:    url,
		secret: secret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Name identifies the sink in logs and errors.
func (s *Sender) Name() string { return config.SinkWebhook }

// Send posts the notification payload as JSON. Any 2xx status is success.
func (s *Sender) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n.Payload())
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, s.secret))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook error: status %d: %s", resp.StatusCode, msg)
	}
	s.logger.Debug("webhook delivered", "aoi", n.AOI, "status", resp.StatusCode)
	return nil
}

// Sign returns the hex HMAC-SHA256 of body keyed by secret.
func Sign(body []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
