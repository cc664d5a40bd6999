package headless

import (
	"context"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

// Noop implements scrape.Fetcher but always reports the tier as
// unavailable, for builds or environments without a browser.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always returns scrape.ErrTierUnavailable.
func (Noop) Fetch(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
	return scrape.FetchResult{}, scrape.ErrTierUnavailable
}
