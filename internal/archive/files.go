package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status is the metadata trailer appended to each archived digest file.
type Status struct {
	Sent           bool `json:"telegram_sent"`
	ItemsCollected int  `json:"items_collected"`
	ChunksSent     int  `json:"chunks_sent"`
}

// WriteFile writes the digest body and its metadata trailer to a dated
// markdown file under dir. The file is write-once; an existing file for
// the same minute is left untouched and its path returned.
func WriteFile(dir, pipeline, body string, status Status, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating archive directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.md", pipeline, now.Format("20060102_1504"))
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	meta, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling metadata: %w", err)
	}

	content := body + "\n\nMETADATA:\n" + string(meta) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing digest file: %w", err)
	}
	return path, nil
}
