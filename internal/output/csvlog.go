package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const logFilename = "time_log.csv"

var csvHeader = []string{"date_time", "num_images", "total_time", "speed_per_image"}

// ExecutionLog appends run metrics to a CSV file inside the save directory,
// one row per run.
type ExecutionLog struct {
	path string
}

func NewExecutionLog(saveDir string) *ExecutionLog {
	return &ExecutionLog{path: filepath.Join(saveDir, logFilename)}
}

// Path returns the location of the CSV file.
func (l *ExecutionLog) Path() string { return l.path }

// Append records one run. The header row is written only when the file is
// still empty.
func (l *ExecutionLog) Append(when time.Time, numImages int, totalTime time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}

	writer := csv.NewWriter(file)

	if info.Size() == 0 {
		if err := writer.Write(csvHeader); err != nil {
			file.Close()
			return err
		}
	}

	speed := 0.0
	if numImages > 0 {
		speed = totalTime.Seconds() / float64(numImages)
	}

	row := []string{
		when.Format("2006-01-02 15:04:05"),
		strconv.Itoa(numImages),
		strconv.FormatFloat(totalTime.Seconds(), 'f', 2, 64),
		strconv.FormatFloat(speed, 'f', 4, 64),
	}
	if err := writer.Write(row); err != nil {
		file.Close()
		return err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
