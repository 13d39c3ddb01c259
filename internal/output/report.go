package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// RunReport captures aggregated information about one run.
type RunReport struct {
	GeneratedAt      time.Time `json:"generated_at"`
	TargetURL        string    `json:"target_url"`
	ImagesFound      int       `json:"images_found"`
	Downloaded       int       `json:"downloaded"`
	SkippedExisting  int       `json:"skipped_existing"`
	SkippedNight     int       `json:"skipped_night"`
	Failed           int       `json:"failed"`
	VideoPath        string    `json:"video_path,omitempty"`
	TotalTimeSeconds float64   `json:"total_time_seconds"`
}

// WriteJSON writes the run report to a JSON file, creating parent
// directories as needed.
func WriteJSON(path string, report RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
			return err
		}
	}

	return os.WriteFile(path, data, 0o644)
}
