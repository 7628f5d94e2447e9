package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"vehicle-tracker/config"
	"vehicle-tracker/models"
	"vehicle-tracker/pipeline"
	"vehicle-tracker/scraper"
	"vehicle-tracker/storage"
	"vehicle-tracker/utils"
)

type crawlFlags struct {
	all    bool
	purge  string
	input  string
	rawOut string
}

func newCrawlCmd(a *app) *cobra.Command {
	f := &crawlFlags{}

	cmd := &cobra.Command{
		Use:   "crawl <make>",
		Short: "Collect one manufacturer (or all of them) into the store",
		Long: `Crawl runs one store session per manufacturer: the store is loaded,
optionally purged of that manufacturer's rows, and every unique cleaned
record the collector produces is appended.

Records come from the manufacturer's site configuration, or from a raw
CSV file given with --input.

Example:
  vehicle-tracker crawl acura --purge
  vehicle-tracker crawl fca --input fca-raw.csv
  vehicle-tracker crawl --all --purge=1`,
		Args: func(cmd *cobra.Command, args []string) error {
			if f.all {
				if len(args) > 0 {
					return errors.New("crawl: --all takes no make argument")
				}
				if f.input != "" {
					return errors.New("crawl: --input cannot be combined with --all")
				}
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCrawl(cmd, f, args)
		},
	}

	cmd.Flags().BoolVar(&f.all, "all", false, "crawl every manufacturer with a site configuration, one after another")
	cmd.Flags().StringVar(&f.purge, "purge", "", "remove the manufacturer's stored rows first (0/1, true/false)")
	cmd.Flags().Lookup("purge").NoOptDefVal = "1"
	cmd.Flags().StringVar(&f.input, "input", "", "read raw records from this CSV instead of the site")
	cmd.Flags().StringVar(&f.rawOut, "raw-out", "", "also dump raw records to this CSV (default $RAW_DUMP_PATH)")
	return cmd
}

func (a *app) runCrawl(cmd *cobra.Command, f *crawlFlags, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	// an omitted --purge is parsed too, so it surfaces the same warning
	purge := config.ParsePurge(f.purge, a.logger)

	var targets []models.Manufacturer
	if f.all {
		for _, m := range a.registry.Manufacturers {
			if m.Site == nil {
				a.logger.Debug("[crawl] %s has no site configuration, skipping", m.Key)
				continue
			}
			targets = append(targets, m)
		}
		if len(targets) == 0 {
			return errors.New("crawl: no manufacturer in the registry has a site configuration")
		}
	} else {
		m, ok := a.registry.Lookup(args[0])
		if !ok {
			return fmt.Errorf("crawl: unknown make %q (see `vehicle-tracker makes`)", args[0])
		}
		targets = []models.Manufacturer{m}
	}

	opts := pipeline.Options{}
	if a.cfg.MirrorEnabled() {
		mirror, err := storage.NewPostgresMirror(a.cfg.DSN())
		if err != nil {
			a.logger.Warn("[crawl] PostgreSQL mirror unavailable, continuing without it: %v", err)
		} else {
			defer mirror.Close()
			opts.Mirror = mirror
		}
	}

	rawOut := f.rawOut
	if rawOut == "" {
		rawOut = a.cfg.RawDumpPath
	}
	if rawOut != "" {
		dump, err := storage.NewRawCSVWriter(rawOut)
		if err != nil {
			return err
		}
		defer dump.Close()
		opts.RawDump = dump
	}

	src := newSources(a.cfg, a.logger)
	defer src.close()

	p := pipeline.New(a.logger)
	var failed []error
	for _, m := range targets {
		collector, err := a.collectorFor(m, f.input, src)
		if err != nil {
			return err
		}

		opts.Store = storage.SessionOptions{
			Path:        a.cfg.StorePath,
			Purge:       purge,
			Identity:    m,
			LockTimeout: a.cfg.LockTimeout,
		}
		stats, err := p.Run(ctx, opts, collector)
		if err != nil {
			a.logger.Error("[crawl] %s failed: %v", m.Key, err)
			failed = append(failed, err)
			// a store that cannot be loaded will fail every later session too
			if errors.Is(err, storage.ErrStoreLoad) || errors.Is(err, storage.ErrPurgeRewrite) ||
				errors.Is(err, context.Canceled) {
				break
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", m.Key, stats)
	}
	return errors.Join(failed...)
}

func (a *app) collectorFor(m models.Manufacturer, input string, src *sources) (scraper.Collector, error) {
	if input != "" {
		return scraper.NewFileCollector(input, m.MakeLabel(), a.logger), nil
	}
	if m.Site == nil {
		return nil, fmt.Errorf("crawl: %s has no site configuration; pass --input with raw records", m.Key)
	}
	var page scraper.PageSource = src.fetcher
	if m.Site.Render {
		page = src.browser()
	}
	return scraper.NewSelectorCollector(m, page, src.pool, a.logger)
}

// sources holds the page sources shared by every session of one crawl.
type sources struct {
	cfg     *config.Config
	logger  *utils.Logger
	fetcher *scraper.Fetcher
	pool    *utils.WorkerPool
	render  *scraper.BrowserRenderer
}

func newSources(cfg *config.Config, logger *utils.Logger) *sources {
	return &sources{
		cfg:    cfg,
		logger: logger,
		fetcher: scraper.NewFetcher(scraper.FetcherOptions{
			UserAgent:  cfg.UserAgent,
			Timeout:    cfg.RequestTimeout,
			MaxRetries: cfg.MaxRetries,
			ObeyRobots: cfg.ObeyRobots,
		}, logger),
		pool: utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
	}
}

func (s *sources) browser() *scraper.BrowserRenderer {
	if s.render == nil {
		s.render = scraper.NewBrowserRenderer(s.cfg.ChromeBin, s.cfg.UserAgent, s.cfg.RequestTimeout, s.cfg.MaxRetries, s.logger)
	}
	return s.render
}

func (s *sources) close() {
	if s.render != nil {
		s.render.Close()
	}
}
