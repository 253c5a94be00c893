// Package webhook notifies an external endpoint when an export run ends.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/plexport/models"
)

// Event types delivered when a run ends.
const (
	EventCompleted = "export.completed"
	EventFailed    = "export.failed"
)

// signatureHeader carries "sha256=<hex HMAC of the body>".
const signatureHeader = "X-Plexport-Signature"

// Event is the payload sent to webhook endpoints. The summary fields are
// lifted out of Run so receivers need not parse the full snapshot.
type Event struct {
	Type      string           `json:"type"` // EventCompleted or EventFailed
	RunID     string           `json:"run_id"`
	Timestamp int64            `json:"timestamp"`
	Records   int              `json:"records"`
	Filename  string           `json:"filename,omitempty"`
	Error     string           `json:"error,omitempty"`
	Run       models.ExportRun `json:"run"`
}

// RunEvent builds the event for a finished run.
func RunEvent(run models.ExportRun) *Event {
	typ := EventCompleted
	if run.State == models.RunFailed {
		typ = EventFailed
	}
	ts := time.Now()
	if run.FinishedAt != nil {
		ts = *run.FinishedAt
	}
	return &Event{
		Type:      typ,
		RunID:     run.ID,
		Timestamp: ts.Unix(),
		Records:   run.Records,
		Filename:  run.Filename,
		Error:     run.Error,
		Run:       run,
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: endpoint returned status %d", e.Code)
}

// Permanent reports whether retrying cannot help: the endpoint rejected the
// event itself. 408 and 429 are worth another attempt.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 &&
		e.Code != http.StatusRequestTimeout && e.Code != http.StatusTooManyRequests
}

// Sender posts run events to one endpoint.
type Sender struct {
	url    string
	secret string
	client *http.Client

	// delays are the waits before each attempt; len(delays) is the attempt count.
	delays []time.Duration
}

// NewSender returns a Sender for url. Bodies are signed when secret is set.
func NewSender(url, secret string) *Sender {
	return &Sender{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Send posts one event and returns a *StatusError for non-2xx answers.
func (s *Sender) Send(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Plexport-Webhook/1.0")
	req.Header.Set("X-Plexport-Event", event.Type)
	if s.secret != "" {
		req.Header.Set(signatureHeader, "sha256="+Sign(s.secret, body))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// Notify delivers the event for run in the background. It matches
// controller.Notifier.
func (s *Sender) Notify(run models.ExportRun) {
	go func() {
		_ = s.deliver(context.Background(), RunEvent(run))
	}()
}

// deliver tries each delay in turn and stops early on success or on an
// answer that a retry cannot change.
func (s *Sender) deliver(ctx context.Context, event *Event) error {
	log := slog.With("url", s.url, "event", event.Type, "run_id", event.RunID)

	var err error
	for attempt, delay := range s.delays {
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = s.Send(ctx, event)
		if err == nil {
			log.Info("webhook delivered", "attempt", attempt+1)
			return nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Permanent() {
			log.Error("webhook rejected, not retrying", "status", statusErr.Code)
			return err
		}
		log.Warn("webhook delivery failed", "attempt", attempt+1, "error", err)
	}

	log.Error("webhook delivery exhausted all retries", "attempts", len(s.delays))
	return err
}
