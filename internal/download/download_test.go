package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/willcraig/scrapelapse/internal/config"
	"github.com/willcraig/scrapelapse/internal/model"
	"github.com/willcraig/scrapelapse/internal/scrape"
)

func testImage(t *testing.T, serverURL, filename string) model.Image {
	t.Helper()
	ts, err := scrape.ParseTimestamp(filename)
	if err != nil {
		t.Fatalf("bad test filename %q: %v", filename, err)
	}
	return model.Image{URL: serverURL + "/" + filename, Filename: filename, Timestamp: ts}
}

func TestRunDownloadsIntoDateDirs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.jpg") {
			http.NotFound(w, r)
			return
		}
		if _, err := w.Write([]byte("jpegdata:" + r.URL.Path)); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.SaveDir = t.TempDir()
	cfg.Workers = 4
	cfg.Timeout = 2 * time.Second

	queue := []model.Image{
		testImage(t, server.URL, "20240101_120000.jpg"),
		testImage(t, server.URL, "20240102_130000.jpg"),
	}

	downloaded, failed := Run(context.Background(), queue, cfg)
	if downloaded != 2 || failed != 0 {
		t.Fatalf("unexpected counts: downloaded=%d failed=%d", downloaded, failed)
	}

	for _, want := range []string{
		filepath.Join(cfg.SaveDir, "20240101", "20240101_120000.jpg"),
		filepath.Join(cfg.SaveDir, "20240102", "20240102_130000.jpg"),
	} {
		data, err := os.ReadFile(want)
		if err != nil {
			t.Fatalf("expected file %s: %v", want, err)
		}
		if !strings.HasPrefix(string(data), "jpegdata:") {
			t.Fatalf("unexpected file content: %q", data)
		}
	}
}

func TestRunCountsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cfg := config.Defaults()
	cfg.SaveDir = t.TempDir()
	cfg.Workers = 2
	cfg.Timeout = 2 * time.Second

	queue := []model.Image{
		testImage(t, server.URL, "20240101_120000.jpg"),
	}

	downloaded, failed := Run(context.Background(), queue, cfg)
	if downloaded != 0 || failed != 1 {
		t.Fatalf("unexpected counts: downloaded=%d failed=%d", downloaded, failed)
	}

	entries, err := os.ReadDir(cfg.SaveDir)
	if err != nil {
		t.Fatalf("failed to read save dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files for failed downloads, found %d entries", len(entries))
	}
}

func TestPlanFiltersExistingAndNight(t *testing.T) {
	cfg := config.Defaults()
	cfg.ExcludeNight = true

	images := []model.Image{
		{Filename: "20240101_120000.jpg", Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{Filename: "20240101_220000.jpg", Timestamp: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)},
		{Filename: "20240101_030000.jpg", Timestamp: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)},
		{Filename: "20240101_140000.jpg", Timestamp: time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)},
	}

	existing := map[string]struct{}{"20240101_140000.jpg": {}}

	queue, skippedExisting, skippedNight := Plan(images, existing, cfg)

	if len(queue) != 1 || queue[0].Filename != "20240101_120000.jpg" {
		t.Fatalf("unexpected queue: %+v", queue)
	}
	if skippedExisting != 1 {
		t.Errorf("unexpected skippedExisting: %d", skippedExisting)
	}
	if skippedNight != 2 {
		t.Errorf("unexpected skippedNight: %d", skippedNight)
	}
}

func TestPlanKeepsNightWhenDisabled(t *testing.T) {
	cfg := config.Defaults()
	cfg.ExcludeNight = false

	images := []model.Image{
		{Filename: "20240101_220000.jpg", Timestamp: time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)},
	}

	queue, _, skippedNight := Plan(images, map[string]struct{}{}, cfg)
	if len(queue) != 1 || skippedNight != 0 {
		t.Fatalf("expected night image kept, got queue=%v skippedNight=%d", queue, skippedNight)
	}
}

func TestExisting(t *testing.T) {
	dir := t.TempDir()

	sub := filepath.Join(dir, "20240101")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("failed to create date dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "20240101_120000.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	names, err := Existing(dir)
	if err != nil {
		t.Fatalf("Existing returned error: %v", err)
	}

	if _, ok := names["20240101_120000.jpg"]; !ok {
		t.Fatalf("expected filename in set, got %v", names)
	}
}

func TestExistingMissingDir(t *testing.T) {
	names, err := Existing(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Existing returned error: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected empty set, got %v", names)
	}
}
