package models

// ExportRequest is the payload for POST /api/v1/export.
// Every field is optional; unset fields fall back to the server configuration.
type ExportRequest struct {
	// URL is the library page to open, or, when attaching to an existing
	// browser, a substring of the tab URL to pick. Empty picks the first tab.
	URL string `json:"url,omitempty" binding:"omitempty,url"`

	// CDPURL attaches to the user's own Chrome (remote debugging endpoint)
	// instead of the browser launched by plexport.
	CDPURL string `json:"cdp_url,omitempty"`

	// OutputDir overrides the directory the CSV is written to.
	OutputDir string `json:"output_dir,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExportRequest) Defaults(url, cdpURL, outputDir string) {
	if r.URL == "" {
		r.URL = url
	}
	if r.CDPURL == "" {
		r.CDPURL = cdpURL
	}
	if r.OutputDir == "" {
		r.OutputDir = outputDir
	}
}
