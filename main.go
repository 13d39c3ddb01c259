package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/willcraig/scrapelapse/internal/browser"
	"github.com/willcraig/scrapelapse/internal/config"
	"github.com/willcraig/scrapelapse/internal/download"
	"github.com/willcraig/scrapelapse/internal/model"
	"github.com/willcraig/scrapelapse/internal/network"
	"github.com/willcraig/scrapelapse/internal/output"
	"github.com/willcraig/scrapelapse/internal/scrape"
	"github.com/willcraig/scrapelapse/internal/timelapse"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		exitWithError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Verbose)
	ctx = logger.WithContext(ctx)

	if err := run(ctx, cfg, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

// run executes one full pipeline pass: fetch the gallery page, discover
// image links, download the new ones, optionally assemble the timelapse,
// and append execution metrics.
func run(ctx context.Context, cfg config.Config, now func() time.Time) error {
	log := zerolog.Ctx(ctx)
	start := now()

	content, err := fetchGallery(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := scrape.Discover(content, cfg.TargetURL)
	if err != nil {
		return err
	}

	for _, name := range result.Skipped {
		fmt.Printf("Skipping image with unrecognized timestamp format: %s\n", name)
	}

	existing, err := download.Existing(cfg.SaveDir)
	if err != nil {
		return err
	}

	queue, skippedExisting, skippedNight := download.Plan(result.Images, existing, cfg)
	log.Debug().
		Int("found", len(result.Images)).
		Int("queued", len(queue)).
		Int("skipped_existing", skippedExisting).
		Int("skipped_night", skippedNight).
		Msg("download plan ready")

	var downloaded, failed int
	if len(queue) == 0 {
		fmt.Println("No new images to download.")
	} else {
		downloaded, failed = download.Run(ctx, queue, cfg)
		fmt.Printf("Downloaded %d new images.\n", downloaded)
	}

	stats := model.RunStats{
		ImagesFound:     len(result.Images),
		Downloaded:      downloaded,
		SkippedExisting: skippedExisting,
		SkippedNight:    skippedNight,
		Failed:          failed,
	}

	var runErr error
	if failed > 0 && downloaded == 0 {
		runErr = fmt.Errorf("all %d downloads failed", failed)
	}
	if ctxErr := ctx.Err(); ctxErr != nil && runErr == nil {
		runErr = ctxErr
	}

	videoPath := ""
	if cfg.VideoExport && runErr == nil {
		videoPath = cfg.OutputVideo
		if videoPath == "" {
			videoPath = fmt.Sprintf("expv_timelapse_%s.mp4", start.Format("2006_01_02"))
		}

		fmt.Println("creating video")
		if err := timelapse.Create(ctx, cfg.SaveDir, videoPath, cfg.FPS); err != nil {
			runErr = err
			videoPath = ""
		}
	}

	totalTime := now().Sub(start)

	logbook := output.NewExecutionLog(cfg.SaveDir)
	if err := logbook.Append(start, downloaded, totalTime); err != nil {
		log.Warn().Err(err).Msg("failed to append execution log")
		if runErr == nil {
			runErr = err
		}
	}

	if cfg.ReportPath != "" {
		report := output.RunReport{
			GeneratedAt:      start,
			TargetURL:        cfg.TargetURL,
			ImagesFound:      stats.ImagesFound,
			Downloaded:       stats.Downloaded,
			SkippedExisting:  stats.SkippedExisting,
			SkippedNight:     stats.SkippedNight,
			Failed:           stats.Failed,
			VideoPath:        videoPath,
			TotalTimeSeconds: totalTime.Seconds(),
		}
		if err := output.WriteJSON(cfg.ReportPath, report); err != nil {
			log.Warn().Err(err).Msg("failed to write run report")
			if runErr == nil {
				runErr = err
			}
		}
	}

	fmt.Printf("Total execution time: %.2f seconds\n", totalTime.Seconds())

	return runErr
}

func fetchGallery(ctx context.Context, cfg config.Config) (string, error) {
	if cfg.Render {
		return browser.FetchRendered(ctx, cfg.TargetURL, cfg)
	}

	result, err := network.Fetch(ctx, cfg.TargetURL, cfg)
	if err != nil {
		return "", err
	}
	return string(result.Body), nil
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Usage: %s [Options] use -h for help\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
