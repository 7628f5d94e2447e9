package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"

	"vehicle-tracker/utils"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page.
var ErrDisallowed = errors.New("fetch: disallowed by robots.txt")

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	ObeyRobots bool
	CacheTTL   time.Duration
}

// Fetcher downloads pages over plain HTTP. Pages are cached for the life of
// the fetcher so several manufacturers sharing a listing page only hit it
// once per run.
type Fetcher struct {
	client *resty.Client
	pages  *gocache.Cache
	retry  *utils.RetryConfig
	logger *utils.Logger

	obeyRobots bool
	userAgent  string
	robotsMu   sync.Mutex
	robots     map[string]*robotstxt.RobotsData
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts FetcherOptions, logger *utils.Logger) *Fetcher {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 30 * time.Minute
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("User-Agent", opts.UserAgent)

	return &Fetcher{
		client: client,
		pages:  gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries,
			BaseDelay:   opts.RetryDelay,
			Logger:      logger,
		},
		logger:     logger,
		obeyRobots: opts.ObeyRobots,
		userAgent:  opts.UserAgent,
		robots:     make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch implements PageSource.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if body, ok := f.pages.Get(pageURL); ok {
		f.logger.Debug("[fetcher] cache hit %s", pageURL)
		return body.(string), nil
	}

	if f.obeyRobots {
		allowed, err := f.allowed(ctx, pageURL)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", fmt.Errorf("%w: %s", ErrDisallowed, pageURL)
		}
	}

	var body string
	err := f.retry.Do(ctx, "fetch "+pageURL, func() error {
		resp, err := f.client.R().SetContext(ctx).Get(pageURL)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("fetch: %s returned %s", pageURL, resp.Status())
		}
		body = resp.String()
		return nil
	})
	if err != nil {
		return "", err
	}

	f.pages.SetDefault(pageURL, body)
	return body, nil
}

// allowed consults the host's robots.txt. An unreachable robots.txt allows
// everything.
func (f *Fetcher) allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("fetch: parse %q: %w", pageURL, err)
	}

	f.robotsMu.Lock()
	data, ok := f.robots[u.Host]
	f.robotsMu.Unlock()

	if !ok {
		robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
		resp, err := f.client.R().SetContext(ctx).Get(robotsURL)
		if err != nil {
			f.logger.Warn("[fetcher] robots.txt unavailable for %s: %v", u.Host, err)
			return true, nil
		}
		data, err = robotstxt.FromStatusAndBytes(resp.StatusCode(), resp.Body())
		if err != nil {
			f.logger.Warn("[fetcher] robots.txt unparsable for %s: %v", u.Host, err)
			return true, nil
		}
		f.robotsMu.Lock()
		f.robots[u.Host] = data
		f.robotsMu.Unlock()
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, f.userAgent), nil
}
