package model

import "time"

// Image represents a timestamped gallery image to download.
type Image struct {
	URL       string
	Filename  string
	Timestamp time.Time
}

// RunStats aggregates the outcome of one run.
type RunStats struct {
	ImagesFound     int
	Downloaded      int
	SkippedExisting int
	SkippedNight    int
	Failed          int
}
