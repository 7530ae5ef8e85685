// package notify posts MessageCard announcements to Teams-style webhooks
// and drives the scheduled collect/publish notifications.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/rsd-team/rsd-service/pkg/logger/sl"
)

const (
	maxSendAttempts = 3
	sendBaseDelay   = 500 * time.Millisecond
)

// Sender posts MessageCard payloads with bounded retries. Webhook URLs
// carry an embedded secret, so logs only ever see a masked form.
type Sender struct {
	log        *slog.Logger
	httpClient *http.Client
}

func NewSender(log *slog.Logger) *Sender {
	return &Sender{
		log:        log,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type openURITarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

type potentialAction struct {
	Type    string          `json:"@type"`
	Name    string          `json:"name"`
	Targets []openURITarget `json:"targets"`
}

type messageCard struct {
	Type            string            `json:"@type"`
	Context         string            `json:"@context"`
	Summary         string            `json:"summary"`
	ThemeColor      string            `json:"themeColor"`
	Title           string            `json:"title"`
	Text            string            `json:"text"`
	PotentialAction []potentialAction `json:"potentialAction"`
}

func newMessageCard(title, text, linkURL, buttonName string) messageCard {
	return messageCard{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		Summary:    title,
		ThemeColor: "0078D7",
		Title:      title,
		Text:       text,
		PotentialAction: []potentialAction{
			{
				Type:    "OpenUri",
				Name:    buttonName,
				Targets: []openURITarget{{OS: "default", URI: linkURL}},
			},
		},
	}
}

// Send posts a MessageCard with a single link button, retrying transient
// failures with exponential backoff and honoring Retry-After.
func (s *Sender) Send(ctx context.Context, webhookURL, title, text, linkURL, buttonName string) error {
	const op = "internal.notify.Sender.Send"

	log := s.log.With(slog.String("op", op), slog.String("webhook", maskWebhook(webhookURL)))

	body, err := json.Marshal(newMessageCard(title, text, linkURL, buttonName))
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", op, err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		retryAfter, err := s.post(ctx, webhookURL, body)
		if err == nil {
			return nil
		}

		lastErr = err
		log.Warn("webhook delivery failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxSendAttempts),
			sl.Err(err),
		)

		if attempt == maxSendAttempts {
			break
		}

		delay := sendBaseDelay * (1 << (attempt - 1))
		if retryAfter > delay {
			delay = retryAfter
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s: webhook failed after %d attempts: %w", op, maxSendAttempts, lastErr)
}

func (s *Sender) post(ctx context.Context, webhookURL string, body []byte) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var retryAfter time.Duration
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
			retryAfter = time.Duration(seconds) * time.Second
		}

		return retryAfter, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return 0, nil
}

func maskWebhook(url string) string {
	if url == "" {
		return ""
	}

	if len(url) <= 16 {
		return "***"
	}

	return url[:8] + "..." + url[len(url)-4:]
}
