package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"vehicle-tracker/models"
	"vehicle-tracker/utils"
)

// SelectorCollector extracts raw records from a manufacturer's pages using
// the CSS selectors of its site configuration. Every element matching the
// item selector yields one record.
type SelectorCollector struct {
	maker  models.Manufacturer
	source PageSource
	pool   *utils.WorkerPool
	logger *utils.Logger
}

// NewSelectorCollector creates a collector for m, which must carry a site
// configuration.
func NewSelectorCollector(m models.Manufacturer, source PageSource, pool *utils.WorkerPool, logger *utils.Logger) (*SelectorCollector, error) {
	if m.Site == nil {
		return nil, fmt.Errorf("scraper: %s has no site configuration", m.Key)
	}
	return &SelectorCollector{maker: m, source: source, pool: pool, logger: logger}, nil
}

// Collect implements Collector. Pages are fetched through the worker pool;
// a page that fails is logged and skipped, and Collect only fails when
// every page did.
func (c *SelectorCollector) Collect(ctx context.Context, emit func(models.RawRecord)) error {
	site := c.maker.Site
	var (
		emitMu sync.Mutex
		errMu  sync.Mutex
		errs   []error
	)

	for _, u := range site.StartURLs {
		pageURL := u
		c.pool.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			records, err := c.scrapePage(ctx, pageURL)
			if err != nil {
				c.logger.Warn("[%s] %s failed: %v", c.maker.Key, pageURL, err)
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
				return
			}
			c.logger.Debug("[%s] %s: %d items", c.maker.Key, pageURL, len(records))

			emitMu.Lock()
			defer emitMu.Unlock()
			for _, rec := range records {
				emit(rec)
			}
		})
	}
	c.pool.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(errs) == len(site.StartURLs) {
		return fmt.Errorf("scraper: %s: all pages failed: %w", c.maker.Key, errors.Join(errs...))
	}
	return nil
}

func (c *SelectorCollector) scrapePage(ctx context.Context, pageURL string) ([]models.RawRecord, error) {
	html, err := c.source.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("scraper: parse %s: %w", pageURL, err)
	}
	return c.extract(doc), nil
}

func (c *SelectorCollector) extract(doc *goquery.Document) []models.RawRecord {
	site := c.maker.Site
	var records []models.RawRecord

	doc.Find(site.Item).Each(func(_ int, item *goquery.Selection) {
		rec := models.RawRecord{
			Year:  pick(item, site.Year),
			Make:  pick(item, site.Make),
			Model: pick(item, site.Model),
			Trim:  pick(item, site.Trim),
			MSRP:  pick(item, site.MSRP),
		}
		if rec.Make == "" {
			rec.Make = c.maker.MakeLabel()
		}
		records = append(records, rec)
	})
	return records
}

// pick resolves one selector against an item. Text is whitespace-collapsed.
func pick(item *goquery.Selection, sel models.Selector) string {
	if sel.CSS == "" {
		if sel.Attr != "" {
			return strings.TrimSpace(item.AttrOr(sel.Attr, sel.Value))
		}
		return sel.Value
	}

	found := item.Find(sel.CSS).First()
	if found.Length() == 0 {
		return sel.Value
	}
	if sel.Attr != "" {
		return strings.TrimSpace(found.AttrOr(sel.Attr, sel.Value))
	}
	return strings.Join(strings.Fields(found.Text()), " ")
}
