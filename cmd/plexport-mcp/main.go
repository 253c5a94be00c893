package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// exportRequest mirrors the plexport API request model.
type exportRequest struct {
	URL       string `json:"url,omitempty"`
	CDPURL    string `json:"cdp_url,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type exportRun struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	State    string `json:"state"`
	Records  int    `json:"records"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// exportResponse mirrors the plexport API run response.
type exportResponse struct {
	Success bool       `json:"success"`
	Run     *exportRun `json:"run"`
	Error   *apiError  `json:"error"`
}

// logResponse mirrors the plexport session log response.
type logResponse struct {
	Enabled bool `json:"enabled"`
	Entries []struct {
		Message string `json:"message"`
		LogType string `json:"logType"`
	} `json:"entries"`
}

// pollInterval is how often a running export is checked.
const pollInterval = 2 * time.Second

func main() {
	apiURL := os.Getenv("PLEXPORT_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8686"
	}
	// Optional: the server runs without auth on loopback by default.
	apiKey := os.Getenv("PLEXPORT_API_KEY")

	s := server.NewMCPServer(
		"plexport",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	exportTool := mcp.NewTool("export_library",
		mcp.WithDescription("Export a Plex movie library to CSV. Scrolls the library page in Chrome until no new movies appear, then writes a UTF-8 CSV of Title,Year and returns the file name and count."),
		mcp.WithString("url",
			mcp.Description("Plex library page to open, or a substring of the tab URL when attaching to a running Chrome. Defaults to the server's configured target."),
		),
		mcp.WithString("cdp_url",
			mcp.Description("Chrome remote debugging URL to attach to instead of launching a browser"),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory on the server host the CSV is written to"),
		),
	)
	s.AddTool(exportTool, handleExportLibrary(apiURL, apiKey))

	logTool := mcp.NewTool("export_log",
		mcp.WithDescription("Return the export session log: every status message of every run, with its severity."),
	)
	s.AddTool(logTool, handleExportLog(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the plexport API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, apiURL, apiKey, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollRun polls a run until it leaves the running state or ctx is cancelled.
func pollRun(ctx context.Context, client *http.Client, apiURL, apiKey, id string) (*exportResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/exports/"+id, nil)
			if err != nil {
				return nil, err
			}
			var resp exportResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if resp.Run == nil || resp.Run.State != "running" {
				return &resp, nil
			}
		}
	}
}

func formatError(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleExportLibrary(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload := exportRequest{
			URL:       request.GetString("url", ""),
			CDPURL:    request.GetString("cdp_url", ""),
			OutputDir: request.GetString("output_dir", ""),
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/export", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("export request failed: %v", err)), nil
		}

		var started exportResponse
		if err := json.Unmarshal(body, &started); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse export response: %v", err)), nil
		}
		if !started.Success || started.Run == nil {
			return mcp.NewToolResultError(formatError("export failed to start", started.Error)), nil
		}

		final, err := pollRun(ctx, client, apiURL, apiKey, started.Run.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling export %s failed: %v", started.Run.ID, err)), nil
		}
		if !final.Success || final.Run == nil {
			return mcp.NewToolResultError(formatError("export status unavailable", final.Error)), nil
		}

		run := final.Run
		if run.State != "completed" {
			return mcp.NewToolResultError(fmt.Sprintf("export %s %s: %s", run.ID, run.State, run.Error)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(
			"Movie collection complete! File saved as: %s\nMovies: %d\nRun: %s\nDownload: %s/api/v1/exports/%s/download",
			run.Filename, run.Records, run.ID, apiURL, run.ID,
		)), nil
	}
}

func handleExportLog(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, "/api/v1/export/log", nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("log request failed: %v", err)), nil
		}

		var logResp logResponse
		if err := json.Unmarshal(body, &logResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse log response: %v", err)), nil
		}

		var sb strings.Builder
		state := "idle"
		if !logResp.Enabled {
			state = "running"
		}
		sb.WriteString(fmt.Sprintf("Exporter: %s (%d entries)\n\n", state, len(logResp.Entries)))
		for _, e := range logResp.Entries {
			sb.WriteString(fmt.Sprintf("[%s] %s\n", e.LogType, e.Message))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
