package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

type recordingWaiter struct {
	urls []string
}

func (w *recordingWaiter) Wait(_ context.Context, rawURL string) error {
	w.urls = append(w.urls, rawURL)
	return nil
}

func newListingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(listingFixture))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchBulkExtractsRows(t *testing.T) {
	srv := newListingServer(t)
	waiter := &recordingWaiter{}
	f := New(Config{BaseURL: srv.URL, UserAgent: "test-agent"}, waiter, nil)

	res, err := f.Fetch(context.Background(), scrape.Query{Mode: scrape.ModeBulk, Page: 1})
	require.NoError(t, err)

	assert.Equal(t, scrape.TierStatic, res.Tier)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, srv.URL, res.SourceURL)
	assert.NotEmpty(t, res.RawHTML, "raw markup is kept for archival")
	require.Len(t, waiter.urls, 1, "rate limiter runs before the request")
	assert.Equal(t, srv.URL, waiter.urls[0])
}

func TestFetchBulkPaginatesURL(t *testing.T) {
	srv := newListingServer(t)
	f := New(Config{BaseURL: srv.URL}, nil, nil)

	res, err := f.Fetch(context.Background(), scrape.Query{Mode: scrape.ModeBulk, Page: 3})
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"?page=3", res.SourceURL)
}

func TestFetchSearchFiltersByName(t *testing.T) {
	srv := newListingServer(t)
	f := New(Config{BaseURL: srv.URL}, nil, nil)

	res, err := f.Fetch(context.Background(), scrape.Query{Mode: scrape.ModeSearch, PersonName: "carl"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "Carl Jung", res.Results[0].Name)

	res, err = f.Fetch(context.Background(), scrape.Query{Mode: scrape.ModeSearch, PersonName: "nobody"})
	require.NoError(t, err)
	assert.True(t, res.Empty(), "no match is empty, not an error")
}

func TestFetchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	f := New(Config{BaseURL: srv.URL}, nil, nil)

	_, err := f.Fetch(context.Background(), scrape.Query{Mode: scrape.ModeBulk, Page: 1})
	require.Error(t, err)
	assert.True(t, scrape.IsNetworkError(err), "connection failures surface as NetworkError")
}

func TestFetchHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	f := New(Config{BaseURL: srv.URL}, nil, nil)

	_, err := f.Fetch(context.Background(), scrape.Query{Mode: scrape.ModeBulk, Page: 1})
	require.Error(t, err)
	assert.True(t, scrape.IsNetworkError(err))
}

func TestFilterByName(t *testing.T) {
	t.Parallel()

	results := []scrape.ExtractionResult{
		{Name: "Carl Jung"},
		{Name: "Carl Rogers"},
		{Name: "Marilyn Monroe"},
	}
	assert.Len(t, filterByName(results, "carl"), 2)
	assert.Len(t, filterByName(results, "JUNG"), 1)
	assert.Len(t, filterByName(results, ""), 3)
	assert.Empty(t, filterByName(results, "freud"))
}
