package browser

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/willcraig/scrapelapse/internal/config"
)

const (
	// settleDelay gives scripts that inject gallery links a moment to run
	// after the document is ready.
	settleDelay          = 500 * time.Millisecond
	defaultRenderTimeout = 15 * time.Second
)

// FetchRendered loads the gallery page inside a headless browser and returns
// the rendered HTML. It exists for galleries that only materialize their
// image links after JavaScript runs; proxy, insecure and timeout settings
// from cfg apply.
func FetchRendered(ctx context.Context, rawURL string, cfg config.Config) (string, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocatorOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("ignore-certificate-errors", cfg.Insecure),
	)

	if cfg.Proxy != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ProxyServer(cfg.Proxy))
	}

	if execPath, ok := findExecPath(); ok {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	headers := network.Headers{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.8",
	}

	var html string
	err := chromedp.Run(browserCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)

	return html, err
}

// IsAvailable reports whether a Chromium based browser can be located.
func IsAvailable() bool {
	_, ok := findExecPath()
	return ok
}

func findExecPath() (string, bool) {
	if env := strings.TrimSpace(os.Getenv("CHROMEDP_EXEC_PATH")); env != "" {
		if stat, err := os.Stat(env); err == nil && !stat.IsDir() {
			return env, true
		}
	}

	names := []string{
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"chrome",
		"msedge",
		"microsoft-edge",
	}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}

	return "", false
}
