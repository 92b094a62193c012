package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Sender delivers one push message to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// WebhookSender posts the message to an FCM-compatible HTTP endpoint. The
// server key goes in the Authorization header, matching the legacy FCM API.
type WebhookSender struct {
	url       string
	serverKey string
	client    *http.Client
}

func NewWebhookSender(url, serverKey string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookSender{
		url:       url,
		serverKey: serverKey,
		client:    &http.Client{Timeout: timeout},
	}
}

type webhookPayload struct {
	To           string            `json:"to"`
	Notification map[string]string `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

func (s *WebhookSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	payload, err := json.Marshal(webhookPayload{
		To: token,
		Notification: map[string]string{
			"title": title,
			"body":  body,
		},
		Data: data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// NoopSender logs instead of delivering. Default when no push endpoint is
// configured.
type NoopSender struct {
	logger *slog.Logger
}

func NewNoopSender(logger *slog.Logger) *NoopSender {
	return &NoopSender{logger: logger}
}

func (s *NoopSender) Send(_ context.Context, token, title, body string, _ map[string]string) error {
	s.logger.Info("push suppressed (noop sender)", "token", token, "title", title, "body", body)
	return nil
}
