package config

import (
	"flag"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config contains the runtime configuration assembled from the env file and
// CLI flags. It is an explicit value handed to each component; nothing in
// this package keeps global state.
type Config struct {
	TargetURL    string
	SaveDir      string
	Workers      int
	FPS          int
	ExcludeNight bool
	NightStart   int
	NightEnd     int
	VideoExport  bool
	OutputVideo  string
	ReportPath   string
	Timeout      time.Duration
	Proxy        string
	Insecure     bool
	Render       bool
	Verbose      bool
}

// Defaults returns the built-in configuration values applied before the env
// file and flags are consulted.
func Defaults() Config {
	return Config{
		SaveDir:      "images_export",
		Workers:      32,
		FPS:          60,
		ExcludeNight: true,
		NightStart:   20,
		NightEnd:     6,
		VideoExport:  true,
		Timeout:      30 * time.Second,
	}
}

// envKeys maps env file keys to the flag names they feed. A key is only
// applied when its flag was not set explicitly on the command line.
var envKeys = map[string]string{
	"TARGET_URL":    "",
	"SAVE_DIR":      "save-dir",
	"MAX_WORKERS":   "workers",
	"FPS":           "fps",
	"EXCLUDE_NIGHT": "exclude-night",
	"VIDEO_EXPORT":  "video",
	"TIMEOUT":       "timeout",
}

// ParseFlags parses CLI flags and the configured env file into a Config
// value. Precedence, lowest to highest: built-in defaults, env file keys,
// explicitly set flags.
func ParseFlags(args []string) (Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("scrapelapse", flag.ContinueOnError)

	var envPath string
	fs.StringVar(&envPath, "config", ".env", "Path to the KEY=VALUE configuration file.")
	fs.StringVar(&envPath, "c", ".env", "Alias for --config.")

	fs.StringVar(&cfg.SaveDir, "save-dir", cfg.SaveDir, "Directory where downloaded images are stored.")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "Maximum number of concurrent downloads.")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frames per second of the timelapse video.")
	fs.BoolVar(&cfg.ExcludeNight, "exclude-night", cfg.ExcludeNight, "Skip images taken inside the night window.")
	fs.IntVar(&cfg.NightStart, "night-start", cfg.NightStart, "First hour (0-23) of the night window.")
	fs.IntVar(&cfg.NightEnd, "night-end", cfg.NightEnd, "First hour (0-23) after the night window ends.")
	fs.BoolVar(&cfg.VideoExport, "video", cfg.VideoExport, "Assemble a timelapse video after downloading.")
	fs.StringVar(&cfg.OutputVideo, "output", "", "Timelapse output path (default expv_timelapse_<date>.mp4).")
	fs.StringVar(&cfg.OutputVideo, "o", "", "Alias for --output.")
	fs.StringVar(&cfg.ReportPath, "report", "", "Write a JSON run report to the given path.")
	fs.Var(newDurationValue(&cfg.Timeout), "timeout", "Maximum time to wait for server responses (e.g. 30s, 1m).")
	fs.Var(newDurationValue(&cfg.Timeout), "t", "Alias for --timeout.")
	fs.StringVar(&cfg.Proxy, "proxy", "", "Forward HTTP requests through the provided proxy (e.g. http://127.0.0.1:8080).")
	fs.BoolVar(&cfg.Insecure, "insecure", false, "Skip TLS certificate verification.")
	fs.BoolVar(&cfg.Render, "render", false, "Fetch the gallery page through a headless browser.")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging.")
	fs.BoolVar(&cfg.Verbose, "v", false, "Alias for --verbose.")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[canonicalFlag(f.Name)] = true
	})

	env, err := LoadEnvFile(envPath)
	if err != nil {
		return cfg, err
	}

	if err := applyEnv(&cfg, env, set); err != nil {
		return cfg, &Error{Source: envPath, Err: err}
	}

	if err := validate(cfg); err != nil {
		return cfg, &Error{Source: envPath, Err: err}
	}

	return cfg, nil
}

func canonicalFlag(name string) string {
	switch name {
	case "c":
		return "config"
	case "o":
		return "output"
	case "t":
		return "timeout"
	case "v":
		return "verbose"
	default:
		return name
	}
}

func applyEnv(cfg *Config, env map[string]string, set map[string]bool) error {
	for key, flagName := range envKeys {
		value, ok := env[key]
		if !ok || (flagName != "" && set[flagName]) {
			continue
		}

		var err error
		switch key {
		case "TARGET_URL":
			cfg.TargetURL = value
		case "SAVE_DIR":
			cfg.SaveDir = value
		case "MAX_WORKERS":
			cfg.Workers, err = strconv.Atoi(value)
		case "FPS":
			cfg.FPS, err = strconv.Atoi(value)
		case "EXCLUDE_NIGHT":
			cfg.ExcludeNight, err = strconv.ParseBool(value)
		case "VIDEO_EXPORT":
			cfg.VideoExport, err = strconv.ParseBool(value)
		case "TIMEOUT":
			cfg.Timeout, err = parseTimeout(value)
		}
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", key, value, err)
		}
	}
	return nil
}

func parseTimeout(value string) (time.Duration, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	seconds, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("expected a duration or whole seconds")
	}
	return time.Duration(seconds) * time.Second, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.TargetURL) == "" {
		return fmt.Errorf("missing required key TARGET_URL")
	}

	u, err := url.Parse(cfg.TargetURL)
	if err != nil {
		return fmt.Errorf("TARGET_URL %q is not a valid URL: %w", cfg.TargetURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("TARGET_URL %q must be an absolute http or https URL", cfg.TargetURL)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if cfg.FPS < 1 {
		return fmt.Errorf("fps must be at least 1")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.NightStart < 0 || cfg.NightStart > 23 || cfg.NightEnd < 0 || cfg.NightEnd > 23 {
		return fmt.Errorf("night window hours must be in 0-23")
	}

	return nil
}

type durationValue struct {
	target *time.Duration
}

func newDurationValue(target *time.Duration) *durationValue {
	return &durationValue{target: target}
}

func (d *durationValue) Set(value string) error {
	parsed, err := parseTimeout(value)
	if err != nil {
		return err
	}
	*d.target = parsed
	return nil
}

func (d *durationValue) String() string {
	if d.target == nil {
		return ""
	}
	return d.target.String()
}
