package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/plexport/config"
	"github.com/use-agent/plexport/models"
)

func TestOpen_NoTarget(t *testing.T) {
	s := NewScraper(config.BrowserConfig{}, config.ScraperConfig{})
	defer s.Close()

	_, err := s.Open(context.Background(), Target{})
	var exportErr *models.ExportError
	if !errors.As(err, &exportErr) || exportErr.Code != models.ErrCodeInjection {
		t.Fatalf("Open() error = %v, want %s", err, models.ErrCodeInjection)
	}
}

func TestOpen_BadCDPURL(t *testing.T) {
	s := NewScraper(config.BrowserConfig{}, config.ScraperConfig{})

	_, err := s.Open(context.Background(), Target{CDPURL: "http://127.0.0.1:1"})
	var exportErr *models.ExportError
	if !errors.As(err, &exportErr) || exportErr.Code != models.ErrCodeInjection {
		t.Fatalf("Open() error = %v, want %s", err, models.ErrCodeInjection)
	}
}

func TestBlockedSet(t *testing.T) {
	got := blockedSet([]string{"Image", "Media", "Bogus"})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	for _, rt := range []proto.NetworkResourceType{proto.NetworkResourceTypeImage, proto.NetworkResourceTypeMedia} {
		if _, ok := got[rt]; !ok {
			t.Errorf("missing %s", rt)
		}
	}
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"X-Plex-Client-Identifier": "plexport"})
	if got := m["X-Plex-Client-Identifier"].Str(); got != "plexport" {
		t.Errorf("header = %q", got)
	}
}

func TestInjectionError_KeepsCause(t *testing.T) {
	cause := models.NewExportError(models.ErrCodeBrowserCrash, "failed to launch browser", errors.New("no chrome"))
	err := injectionError("failed to start browser", cause)
	if err.Code != models.ErrCodeInjection {
		t.Errorf("code = %s", err.Code)
	}
	var inner *models.ExportError
	if !errors.As(err.Err, &inner) || inner.Code != models.ErrCodeBrowserCrash {
		t.Errorf("cause not preserved: %v", err.Err)
	}
}
