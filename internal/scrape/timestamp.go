package scrape

import (
	"path"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// ParseTimestamp extracts the capture time embedded in an image filename of
// the form YYYYMMDD_HHMMSS.jpg.
func ParseTimestamp(filename string) (time.Time, error) {
	base := path.Base(filename)
	name := strings.TrimSuffix(base, path.Ext(base))
	return time.Parse(timestampLayout, name)
}

// InNightWindow reports whether hour falls inside the [start, end) exclusion
// window. The window may cross midnight, e.g. start=20 end=6 excludes 20:00
// through 05:59.
func InNightWindow(hour, start, end int) bool {
	if start < end {
		return start <= hour && hour < end
	}
	return hour >= start || hour < end
}
