package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/plexport/models"
)

func TestSend_SignsBody(t *testing.T) {
	var gotEvent Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if want := "sha256=" + Sign("s3cret", body); r.Header.Get(signatureHeader) != want {
			t.Errorf("signature = %q, want %q", r.Header.Get(signatureHeader), want)
		}
		if got := r.Header.Get("X-Plexport-Event"); got != EventCompleted {
			t.Errorf("event header = %q", got)
		}
		_ = json.Unmarshal(body, &gotEvent)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	finished := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	run := models.ExportRun{
		ID:         "run-1",
		State:      models.RunCompleted,
		Records:    12,
		Filename:   "plex_movies_12_x.csv",
		FinishedAt: &finished,
	}

	if err := NewSender(srv.URL, "s3cret").Send(context.Background(), RunEvent(run)); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if gotEvent.Type != EventCompleted || gotEvent.RunID != "run-1" || gotEvent.Timestamp != finished.Unix() {
		t.Errorf("event = %+v", gotEvent)
	}
	if gotEvent.Records != 12 || gotEvent.Filename != "plex_movies_12_x.csv" || gotEvent.Run.ID != "run-1" {
		t.Errorf("summary fields = %+v", gotEvent)
	}
}

func TestSend_NoSecretNoSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sig := r.Header.Get(signatureHeader); sig != "" {
			t.Errorf("unexpected signature %q", sig)
		}
	}))
	defer srv.Close()

	if err := NewSender(srv.URL, "").Send(context.Background(), RunEvent(models.ExportRun{ID: "x"})); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
}

func TestDeliver_Retries(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
		wantErr   bool
	}{
		{"success first try", http.StatusOK, 1, false},
		{"server error retried", http.StatusInternalServerError, 3, true},
		{"rate limited retried", http.StatusTooManyRequests, 3, true},
		{"bad request not retried", http.StatusBadRequest, 1, true},
		{"gone not retried", http.StatusGone, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			s := NewSender(srv.URL, "")
			s.delays = []time.Duration{0, time.Millisecond, time.Millisecond}

			err := s.deliver(context.Background(), RunEvent(models.ExportRun{ID: "x"}))
			if (err != nil) != tt.wantErr {
				t.Fatalf("deliver() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			var statusErr *StatusError
			if tt.wantErr && (!errors.As(err, &statusErr) || statusErr.Code != tt.status) {
				t.Errorf("error = %v, want StatusError %d", err, tt.status)
			}
		})
	}
}

func TestRunEvent_Failed(t *testing.T) {
	ev := RunEvent(models.ExportRun{ID: "x", State: models.RunFailed, Error: "boom"})
	if ev.Type != EventFailed || ev.Error != "boom" {
		t.Errorf("event = %+v", ev)
	}
}
