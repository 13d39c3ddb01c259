package scrape

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("20240101_153045.jpg")
	if err != nil {
		t.Fatalf("ParseTimestamp returned error: %v", err)
	}

	want := time.Date(2024, 1, 1, 15, 30, 45, 0, time.UTC)
	if !ts.Equal(want) {
		t.Fatalf("unexpected timestamp: got %s want %s", ts, want)
	}
}

func TestParseTimestampInvalid(t *testing.T) {
	cases := []string{
		"holiday_photo.jpg",
		"2024-01-01_153045.jpg",
		"20240101.jpg",
		"20241301_000000.jpg",
	}

	for _, filename := range cases {
		if _, err := ParseTimestamp(filename); err == nil {
			t.Errorf("expected error for %q", filename)
		}
	}
}

func TestInNightWindow(t *testing.T) {
	cases := []struct {
		name             string
		hour, start, end int
		want             bool
	}{
		{"crossing midnight, late evening", 21, 20, 6, true},
		{"crossing midnight, early morning", 3, 20, 6, true},
		{"crossing midnight, start hour", 20, 20, 6, true},
		{"crossing midnight, end hour", 6, 20, 6, false},
		{"crossing midnight, daytime", 12, 20, 6, false},
		{"same day, inside", 10, 8, 18, true},
		{"same day, before", 7, 8, 18, false},
		{"same day, end hour", 18, 8, 18, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InNightWindow(tc.hour, tc.start, tc.end); got != tc.want {
				t.Fatalf("InNightWindow(%d, %d, %d) = %v, want %v", tc.hour, tc.start, tc.end, got, tc.want)
			}
		})
	}
}
