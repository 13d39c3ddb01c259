package download

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/willcraig/scrapelapse/internal/config"
	"github.com/willcraig/scrapelapse/internal/model"
	"github.com/willcraig/scrapelapse/internal/network"
	"github.com/willcraig/scrapelapse/internal/scrape"
)

const dateLayout = "20060102"

// Existing returns the set of image filenames already present anywhere under
// the save directory. A missing directory yields an empty set.
func Existing(saveDir string) (map[string]struct{}, error) {
	names := map[string]struct{}{}

	err := filepath.WalkDir(saveDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names[d.Name()] = struct{}{}
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return names, nil
		}
		return nil, err
	}

	return names, nil
}

// Plan filters the discovered images down to the ones worth downloading:
// images already on disk are dropped, and when night exclusion is enabled so
// are images captured inside the configured window.
func Plan(images []model.Image, existing map[string]struct{}, cfg config.Config) (queue []model.Image, skippedExisting, skippedNight int) {
	for _, img := range images {
		if _, ok := existing[img.Filename]; ok {
			skippedExisting++
			continue
		}

		if cfg.ExcludeNight && scrape.InNightWindow(img.Timestamp.Hour(), cfg.NightStart, cfg.NightEnd) {
			skippedNight++
			continue
		}

		queue = append(queue, img)
	}

	return queue, skippedExisting, skippedNight
}

// Run downloads the queued images using cfg.Workers concurrent workers.
// Images land in <save-dir>/<YYYYMMDD>/<filename>. Individual failures are
// logged and counted; the pool keeps going. Cancelling the context stops
// feeding the workers.
func Run(ctx context.Context, queue []model.Image, cfg config.Config) (downloaded, failed int) {
	if len(queue) == 0 {
		return 0, 0
	}

	workers := cfg.Workers
	if workers > len(queue) {
		workers = len(queue)
	}

	log := zerolog.Ctx(ctx)

	jobs := make(chan model.Image)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for img := range jobs {
				dest, err := fetchOne(ctx, img, cfg)
				if err != nil {
					log.Warn().Err(err).Str("url", img.URL).Msg("download failed")
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}

				log.Debug().Str("path", dest).Msg("image stored")
				fmt.Printf("Downloaded %s\n", dest)
				mu.Lock()
				downloaded++
				mu.Unlock()
			}
		}()
	}

feed:
	for _, img := range queue {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- img:
		}
	}
	close(jobs)
	wg.Wait()

	return downloaded, failed
}

func fetchOne(ctx context.Context, img model.Image, cfg config.Config) (string, error) {
	result, err := network.Fetch(ctx, img.URL, cfg)
	if err != nil {
		return "", err
	}

	dateDir := filepath.Join(cfg.SaveDir, img.Timestamp.Format(dateLayout))
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return "", err
	}

	dest := filepath.Join(dateDir, img.Filename)
	if err := os.WriteFile(dest, result.Body, 0o644); err != nil {
		return "", err
	}

	return dest, nil
}
