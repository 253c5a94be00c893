package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Extractor ExtractorConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	History   HistoryConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the local HTTP trigger surface.
type ServerConfig struct {
	Host string // default: "127.0.0.1"
	Port int    // default: 8686
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the launched browser runs headless.
	// Off by default so the user can watch and scroll manually.
	Headless bool // default: false

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for the launched browser.
	Proxy string

	// CDPURL attaches to an already running Chrome instead of launching one.
	CDPURL string
}

// ScraperConfig controls how the library page is opened.
type ScraperConfig struct {
	// TargetURL is the library page to open, or the tab to pick when attaching.
	TargetURL string

	// NavigationTimeout is the max time for page.Navigate and the first DOM settle.
	NavigationTimeout time.Duration // default: 30s

	// Stealth installs the stealth evasions on tabs plexport creates.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block on created tabs.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string

	// Headers are extra HTTP headers sent with every request of a created tab.
	// Format: "Name=Value,Name2=Value2".
	Headers map[string]string
}

// ExtractorConfig controls the scroll-scan loop and the CSV export.
type ExtractorConfig struct {
	// LabelSelector selects the elements whose aria-label is scanned.
	LabelSelector string // default: "a[aria-label], div[aria-label]"

	// MaxNoProgress is the number of consecutive passes without new records
	// after which collection stops.
	MaxNoProgress int // default: 3

	// DelayMin and DelayJitter bound the wait after each scroll: [min, min+jitter).
	DelayMin    time.Duration // default: 2s
	DelayJitter time.Duration // default: 1s

	// UpFraction is the fraction of the page height scrolled to on "up" passes.
	UpFraction float64 // default: 0.3

	// Locale is the BCP 47 tag used to collate titles.
	Locale string // default: "en"

	// OutputDir is where CSV files are written.
	OutputDir string // default: "."
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false (the server binds to loopback)

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// HistoryConfig controls the in-memory run history.
type HistoryConfig struct {
	// MaxEntries is the maximum number of finished runs kept.
	MaxEntries int // default: 100
}

// WebhookConfig controls completion notifications.
type WebhookConfig struct {
	URL    string
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("PLEXPORT_HOST", "127.0.0.1"),
			Port: envIntOr("PLEXPORT_PORT", 8686),
			Mode: envOr("PLEXPORT_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("PLEXPORT_HEADLESS", false),
			NoSandbox:  envBoolOr("PLEXPORT_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PLEXPORT_BROWSER_BIN"),
			Proxy:      os.Getenv("PLEXPORT_PROXY"),
			CDPURL:     os.Getenv("PLEXPORT_CDP_URL"),
		},
		Scraper: ScraperConfig{
			TargetURL:         os.Getenv("PLEXPORT_TARGET_URL"),
			NavigationTimeout: envDurationOr("PLEXPORT_NAV_TIMEOUT", 30*time.Second),
			Stealth:           envBoolOr("PLEXPORT_STEALTH", true),
			BlockedResourceTypes: envSliceOr("PLEXPORT_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
			Headers: envMapOr("PLEXPORT_HEADERS", nil),
		},
		Extractor: ExtractorConfig{
			LabelSelector: envOr("PLEXPORT_LABEL_SELECTOR", "a[aria-label], div[aria-label]"),
			MaxNoProgress: envIntOr("PLEXPORT_MAX_NO_PROGRESS", 3),
			DelayMin:      envDurationOr("PLEXPORT_DELAY_MIN", 2*time.Second),
			DelayJitter:   envDurationOr("PLEXPORT_DELAY_JITTER", 1*time.Second),
			UpFraction:    envFloatOr("PLEXPORT_UP_FRACTION", 0.3),
			Locale:        envOr("PLEXPORT_LOCALE", "en"),
			OutputDir:     envOr("PLEXPORT_OUTPUT_DIR", "."),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PLEXPORT_AUTH_ENABLED", false),
			APIKeys: envSliceOr("PLEXPORT_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PLEXPORT_RATE_RPS", 5.0),
			Burst:             envIntOr("PLEXPORT_RATE_BURST", 10),
		},
		History: HistoryConfig{
			MaxEntries: envIntOr("PLEXPORT_HISTORY_MAX", 100),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("PLEXPORT_WEBHOOK_URL"),
			Secret: os.Getenv("PLEXPORT_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("PLEXPORT_LOG_LEVEL", "info"),
			Format: envOr("PLEXPORT_LOG_FORMAT", "text"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envMapOr(key string, fallback map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	result := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		result[name] = strings.TrimSpace(value)
	}
	return result
}
