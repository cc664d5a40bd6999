// Package static implements the lightweight extraction tier: one-shot
// HTTP retrieval via gocolly plus goquery extraction from the static
// markup. No JavaScript execution.
package static

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

// Config controls collector behavior.
type Config struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RespectRobots bool
}

// Waiter is the rate-limiter contract the fetcher applies before every
// network call.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Fetcher is the static extraction tier.
type Fetcher struct {
	cfg           Config
	limiter       Waiter
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, limiter Waiter, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		limiter:       limiter,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch retrieves the listing (bulk mode) or the listing filtered to a
// person (search mode). An empty result with a nil error means the
// markup contained no matching structured data.
func (f *Fetcher) Fetch(ctx context.Context, query scrape.Query) (scrape.FetchResult, error) {
	url := f.listingURL(query)
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, url); err != nil {
			return scrape.FetchResult{}, err
		}
	}

	body, err := f.get(ctx, url)
	if err != nil {
		return scrape.FetchResult{}, &scrape.NetworkError{URL: url, Err: err}
	}

	results, err := parseListing(body, url)
	if err != nil {
		f.logger.Warn("listing parse failed", zap.String("url", url), zap.Error(err))
		results = nil
	}
	if query.Mode == scrape.ModeSearch {
		results = filterByName(results, query.PersonName)
	}

	f.logger.Debug("static fetch complete",
		zap.String("url", url),
		zap.Int("results", len(results)))

	return scrape.FetchResult{
		Results:   results,
		SourceURL: url,
		RawHTML:   body,
		Tier:      scrape.TierStatic,
	}, nil
}

func (f *Fetcher) listingURL(query scrape.Query) string {
	if query.Mode == scrape.ModeBulk && query.Page > 1 {
		return fmt.Sprintf("%s?page=%d", f.cfg.BaseURL, query.Page)
	}
	return f.cfg.BaseURL
}

// get performs one context-aware collector visit and returns the body.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("static fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit failed: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("response failed: %w", fetchErr)
		}
		return body, nil
	}
}

func filterByName(results []scrape.ExtractionResult, name string) []scrape.ExtractionResult {
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

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
