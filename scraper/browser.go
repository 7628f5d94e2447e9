package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"vehicle-tracker/utils"
)

// BrowserRenderer renders pages in headless Chrome and returns the DOM
// after scripts ran. The browser is started on first use and shared until
// Close.
type BrowserRenderer struct {
	chromeBin string
	userAgent string
	timeout   time.Duration
	settle    time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger

	once        sync.Once
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

// NewBrowserRenderer creates a renderer. An empty chromeBin is resolved
// from PATH and the usual install locations.
func NewBrowserRenderer(chromeBin, userAgent string, timeout time.Duration, maxRetries int, logger *utils.Logger) *BrowserRenderer {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &BrowserRenderer{
		chromeBin: chromeBin,
		userAgent: userAgent,
		timeout:   timeout,
		settle:    3 * time.Second,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (b *BrowserRenderer) start() {
	b.once.Do(func() {
		b.logger.Info("[browser] Using browser binary: %q", b.chromeBin)

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(b.userAgent),
		)
		if b.chromeBin != "" {
			opts = append(opts, chromedp.ExecPath(b.chromeBin))
		}

		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
		// chromedp is noisy about unknown CDP events
		browserCtx, cancelCtx := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

		b.browserCtx = browserCtx
		b.cancelAlloc = cancelAlloc
		b.cancelCtx = cancelCtx
	})
}

// Fetch implements PageSource.
func (b *BrowserRenderer) Fetch(ctx context.Context, pageURL string) (string, error) {
	b.start()

	var html string
	err := b.retry.Do(ctx, "render "+pageURL, func() error {
		tabCtx, cancel := chromedp.NewContext(b.browserCtx)
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, b.timeout)
		defer cancelTimeout()

		// stop the tab when the caller gives up
		stop := context.AfterFunc(ctx, cancel)
		defer stop()

		err := chromedp.Run(tabCtx,
			chromedp.Navigate(pageURL),
			chromedp.Sleep(b.settle),
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(b.settle/2),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return fmt.Errorf("chromedp render: %w", err)
		}
		return nil
	})
	return html, err
}

// Close shuts the browser down. It is safe to call when the browser never
// started.
func (b *BrowserRenderer) Close() {
	if b.cancelCtx != nil {
		b.cancelCtx()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
}

// findChromeBinary locates a Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	for _, p := range []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
