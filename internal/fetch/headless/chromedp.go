// Package headless implements the heavy extraction tier: a real
// browser session driven via chromedp, used only when the static tier
// yields nothing.
package headless

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

// Config controls the behavior of the browser fetcher.
type Config struct {
	BaseURL           string
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay is the fixed wait after navigation before the
	// rendered DOM is read, to tolerate asynchronous client-side
	// rendering.
	SettleDelay time.Duration
	// ShowBrowser disables headless mode. Debugging aid only; no
	// behavioral effect on extraction.
	ShowBrowser bool
}

// Waiter is the browser-tier rate limiter applied before each navigation.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher drives a browser session per fetch attempt. The exec
// allocator is the scoped resource: acquired at construction, released
// by Close; each Fetch gets its own tab context, cancelled on every
// exit path.
type Fetcher struct {
	cfg         Config
	limiter     Waiter
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// New creates a browser fetcher. The browser executable itself is not
// launched until the first Fetch.
func New(cfg Config, limiter Waiter, logger *zap.Logger) (*Fetcher, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if !cfg.ShowBrowser {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger,
	}, nil
}

// Close tears down the browser session. Safe to call more than once.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch navigates with a browser, waits for the page to settle, and
// extracts tuples from the rendered DOM. Launch failures are returned
// wrapping scrape.ErrTierUnavailable; navigation failures as
// scrape.NetworkError.
func (f *Fetcher) Fetch(ctx context.Context, query scrape.Query) (scrape.FetchResult, error) {
	url := f.listingURL(query)
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return scrape.FetchResult{}, err
		}
	}

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	// Starting the browser is separate from navigating so a launch
	// failure maps to the "fallback unavailable" condition rather
	// than a transient network one.
	if err := chromedp.Run(taskCtx); err != nil {
		return scrape.FetchResult{}, fmt.Errorf("%w: launch browser: %v", scrape.ErrTierUnavailable, err)
	}

	if err := chromedp.Run(taskCtx,
		f.sessionSetup(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
	); err != nil {
		return scrape.FetchResult{}, &scrape.NetworkError{URL: url, Err: err}
	}

	if query.Mode == scrape.ModeSearch {
		if err := f.runSearch(taskCtx, query.PersonName); err != nil {
			return scrape.FetchResult{}, &scrape.NetworkError{URL: url, Err: err}
		}
	}

	var (
		rows []extractedRow
		html string
	)
	if err := chromedp.Run(taskCtx,
		chromedp.Evaluate(extractRowsJS, &rows),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return scrape.FetchResult{}, &scrape.NetworkError{URL: url, Err: err}
	}

	results := convertRows(rows, url)
	if query.Mode == scrape.ModeSearch {
		results = matchName(results, query.PersonName)
	}

	f.logger.Debug("browser fetch complete",
		zap.String("mode", string(query.Mode)),
		zap.Int("results", len(results)))

	return scrape.FetchResult{
		Results:   results,
		SourceURL: url,
		RawHTML:   []byte(html),
		Tier:      scrape.TierBrowser,
	}, nil
}

// listingURL carries the bulk page parameter into the navigated URL so
// paginated runs advance through the listing on this tier too.
func (f *Fetcher) listingURL(query scrape.Query) string {
	if query.Mode == scrape.ModeBulk && query.Page > 1 {
		return fmt.Sprintf("%s?page=%d", f.cfg.BaseURL, query.Page)
	}
	return f.cfg.BaseURL
}

// runSearch drives the on-site search box when one exists. A listing
// without a search box is not an error; the full listing is matched
// instead.
func (f *Fetcher) runSearch(ctx context.Context, personName string) error {
	var selector string
	if err := chromedp.Run(ctx, chromedp.Evaluate(findSearchBoxJS, &selector)); err != nil {
		return fmt.Errorf("locate search box: %w", err)
	}
	if selector == "" {
		return nil
	}
	if err := chromedp.Run(ctx,
		chromedp.SendKeys(selector, personName+kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(f.cfg.SettleDelay),
	); err != nil {
		return fmt.Errorf("drive search box: %w", err)
	}
	return nil
}

func (f *Fetcher) sessionSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if f.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(f.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// extractedRow mirrors the object shape produced by extractRowsJS.
type extractedRow struct {
	Name       string   `json:"name"`
	Sociotype  string   `json:"sociotype"`
	URL        string   `json:"url"`
	Confidence *float64 `json:"confidence"`
}

func convertRows(rows []extractedRow, sourceURL string) []scrape.ExtractionResult {
	var results []scrape.ExtractionResult
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		typeCode := strings.TrimSpace(row.Sociotype)
		if name == "" || typeCode == "" {
			continue
		}
		conf := row.Confidence
		if conf != nil && (*conf < 0 || *conf > 1) {
			conf = nil
		}
		results = append(results, scrape.ExtractionResult{
			Name:       name,
			TypeCode:   typeCode,
			Confidence: conf,
			Evidence:   fmt.Sprintf("Extracted from rendered DOM at %s", sourceURL),
			ProfileURL: row.URL,
		})
	}
	return results
}

func matchName(results []scrape.ExtractionResult, name string) []scrape.ExtractionResult {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return results
	}
	var matched []scrape.ExtractionResult
	for _, r := range results {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			matched = append(matched, r)
		}
	}
	return matched
}
