package timelapse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/willcraig/scrapelapse/internal/scrape"
)

var (
	// ErrNoFrames is returned when the image tree holds no usable frames.
	ErrNoFrames = errors.New("no frames found for timelapse creation")
	// ErrEncoderNotFound is returned when no ffmpeg binary can be located.
	ErrEncoderNotFound = errors.New("ffmpeg binary not found")
)

// Frame is a single timelapse frame on disk.
type Frame struct {
	Path      string
	Timestamp time.Time
}

// CollectFrames walks the image tree and returns all timestamped .jpg frames
// sorted by capture time. Files without a recognizable timestamp are ignored.
func CollectFrames(dir string) ([]Frame, error) {
	var frames []Frame

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".jpg") {
			return nil
		}

		ts, err := scrape.ParseTimestamp(d.Name())
		if err != nil {
			return nil
		}

		frames = append(frames, Frame{Path: path, Timestamp: ts})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(frames, func(i, j int) bool {
		if frames[i].Timestamp.Equal(frames[j].Timestamp) {
			return frames[i].Path < frames[j].Path
		}
		return frames[i].Timestamp.Before(frames[j].Timestamp)
	})

	return frames, nil
}

// Create assembles the frames under imageDir into a video at outputPath by
// invoking ffmpeg with a concat manifest.
func Create(ctx context.Context, imageDir, outputPath string, fps int) error {
	frames, err := CollectFrames(imageDir)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return ErrNoFrames
	}

	encoder, ok := findEncoder()
	if !ok {
		return ErrEncoderNotFound
	}

	list, err := os.CreateTemp("", "scrapelapse-frames-*.txt")
	if err != nil {
		return err
	}
	defer os.Remove(list.Name())

	if err := writeConcatList(list, frames); err != nil {
		list.Close()
		return err
	}
	if err := list.Close(); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Debug().
		Int("frames", len(frames)).
		Str("encoder", encoder).
		Str("output", outputPath).
		Msg("encoding timelapse")

	cmd := exec.CommandContext(ctx, encoder, buildArgs(list.Name(), outputPath, fps)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, lastLine(stderr.String()))
	}

	return nil
}

func buildArgs(listPath, outputPath string, fps int) []string {
	return []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-r", strconv.Itoa(fps),
		"-i", listPath,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		outputPath,
	}
}

func writeConcatList(w *os.File, frames []Frame) error {
	var buf bytes.Buffer
	for _, frame := range frames {
		abs, err := filepath.Abs(frame.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "file '%s'\n", escapeConcatPath(abs))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// escapeConcatPath escapes single quotes for ffmpeg's concat demuxer.
func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}

func findEncoder() (string, bool) {
	if env := strings.TrimSpace(os.Getenv("FFMPEG_PATH")); env != "" {
		if stat, err := os.Stat(env); err == nil && !stat.IsDir() {
			return env, true
		}
		return "", false
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, true
	}

	return "", false
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
