package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Downloader delivers a finished CSV file and returns where it ended up.
type Downloader interface {
	Download(ctx context.Context, filename string, data []byte) (string, error)
}

// DirDownloader saves files into a local directory, creating it if needed.
type DirDownloader struct {
	Dir string
}

// Download writes data to Dir/filename. The file is written under a temporary
// name first so a partially written CSV is never left under the final name.
func (d DirDownloader) Download(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, filename)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize csv: %w", err)
	}
	return path, nil
}
