package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmbvcxd/socionics-harvester/internal/archive/memory"
	"github.com/jmbvcxd/socionics-harvester/internal/hash/sha256"
	pubmem "github.com/jmbvcxd/socionics-harvester/internal/publish/memory"
	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

type fetchFunc func(ctx context.Context, q scrape.Query) (scrape.FetchResult, error)

func (f fetchFunc) Fetch(ctx context.Context, q scrape.Query) (scrape.FetchResult, error) {
	return f(ctx, q)
}

// fakeStore records persisted tuples in memory and can be primed with
// known canonical names and per-name failures.
type fakeStore struct {
	known     map[string]bool
	failNames map[string]bool
	persisted []scrape.ExtractionResult
	provs     []scrape.Provenance
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		known:     make(map[string]bool),
		failNames: make(map[string]bool),
	}
}

func (s *fakeStore) Persist(_ context.Context, results []scrape.ExtractionResult, prov scrape.Provenance) (scrape.PersistReport, error) {
	var report scrape.PersistReport
	s.provs = append(s.provs, prov)
	for _, r := range results {
		if s.failNames[r.Name] {
			report.Failures = append(report.Failures, scrape.TupleFailure{Name: r.Name, Err: fmt.Errorf("write failed")})
			continue
		}
		canonical := scrape.CanonicalName(r.Name)
		if s.known[canonical] {
			report.PersonalitiesUpdated++
		} else {
			s.known[canonical] = true
			report.PersonalitiesCreated++
			report.NewCanonicalNames = append(report.NewCanonicalNames, canonical)
		}
		s.persisted = append(s.persisted, r)
		report.LabelsWritten++
	}
	return report, nil
}

func (s *fakeStore) HasPersonality(_ context.Context, canonicalName string) (bool, error) {
	return s.known[canonicalName], nil
}

func listing(names ...string) scrape.FetchResult {
	res := scrape.FetchResult{
		SourceURL: "https://sociotype.xyz/e",
		RawHTML:   []byte("<html>listing</html>"),
		Tier:      scrape.TierStatic,
	}
	for _, n := range names {
		res.Results = append(res.Results, scrape.ExtractionResult{Name: n, TypeCode: "LII"})
	}
	return res
}

func newTestPipeline(t *testing.T, static, browser scrape.Fetcher, store scrape.Store) (*Pipeline, *memory.BlobStore, *pubmem.Publisher) {
	t.Helper()
	archive := memory.New()
	publisher := pubmem.New()
	orch := scrape.NewOrchestrator(static, browser, nil)
	p, err := New(orch, store, archive, publisher, sha256.New(), Config{
		Domain:      "sociotype.xyz",
		LicenseNote: "Public database - educational use",
		Topic:       "harvester-runs",
	}, nil)
	require.NoError(t, err)
	return p, archive, publisher
}

func TestBulkImportStopsAtLimit(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	static := fetchFunc(func(_ context.Context, q scrape.Query) (scrape.FetchResult, error) {
		if q.Page > 1 {
			return scrape.FetchResult{Tier: scrape.TierStatic}, nil
		}
		return listing("Alpha One", "Beta Two", "Gamma Three", "Delta Four", "Epsilon Five"), nil
	})

	p, _, _ := newTestPipeline(t, static, nil, store)
	report, err := p.BulkImport(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, report.PersonalitiesPersisted)
	require.Len(t, store.persisted, 3, "processing must stop before the tuple past the limit")
	assert.Equal(t, "Gamma Three", store.persisted[2].Name)
	assert.Equal(t, 1, report.PagesProcessed)
}

func TestBulkImportKnownNamesDoNotCountAgainstLimit(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.known["alpha one"] = true
	store.known["beta two"] = true

	static := fetchFunc(func(_ context.Context, q scrape.Query) (scrape.FetchResult, error) {
		if q.Page > 1 {
			return scrape.FetchResult{Tier: scrape.TierStatic}, nil
		}
		return listing("Alpha One", "Beta Two", "Gamma Three", "Delta Four"), nil
	})

	p, _, _ := newTestPipeline(t, static, nil, store)
	report, err := p.BulkImport(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PersonalitiesPersisted)
	// Known names still gain labels; all four tuples are persisted.
	assert.Len(t, store.persisted, 4)
	assert.Equal(t, 4, report.LabelsWritten)
}

func TestBulkImportPaginatesUntilLimit(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	static := fetchFunc(func(_ context.Context, q scrape.Query) (scrape.FetchResult, error) {
		switch q.Page {
		case 1:
			return listing("Alpha One", "Beta Two"), nil
		case 2:
			return listing("Gamma Three", "Delta Four"), nil
		default:
			return scrape.FetchResult{Tier: scrape.TierStatic}, nil
		}
	})

	p, _, _ := newTestPipeline(t, static, nil, store)
	report, err := p.BulkImport(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 3, report.PersonalitiesPersisted)
	assert.Equal(t, 2, report.PagesProcessed)
}

func TestBulkImportStopsWhenListingStopsAdvancing(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	static := fetchFunc(func(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
		return scrape.FetchResult{}, &scrape.NetworkError{URL: "https://sociotype.xyz/e", Err: fmt.Errorf("connection refused")}
	})
	browserCalls := 0
	browser := fetchFunc(func(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
		browserCalls++
		// The page parameter is ignored; every fetch yields the same
		// two names.
		res := listing("Alpha One", "Beta Two")
		res.Tier = scrape.TierBrowser
		return res, nil
	})

	p, _, _ := newTestPipeline(t, static, browser, store)
	report, err := p.BulkImport(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PersonalitiesPersisted)
	assert.Equal(t, 2, browserCalls,
		"a page yielding no new names must end the run, not spin to the page cap")
	assert.LessOrEqual(t, report.LabelsWritten, 4)
	assert.Equal(t, 2, report.PagesProcessed)
}

func TestBulkImportFallbackUnavailableReducesCoverage(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	static := fetchFunc(func(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
		return scrape.FetchResult{Tier: scrape.TierStatic}, nil
	})

	p, _, _ := newTestPipeline(t, static, nil, store)
	report, err := p.BulkImport(context.Background(), 5)
	require.NoError(t, err, "an unavailable fallback tier is a warning, not a run failure")

	assert.Equal(t, 0, report.PersonalitiesPersisted)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "fallback tier unavailable")
}

func TestBulkImportFailedTupleDoesNotCount(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failNames["Beta Two"] = true

	static := fetchFunc(func(_ context.Context, q scrape.Query) (scrape.FetchResult, error) {
		if q.Page > 1 {
			return scrape.FetchResult{Tier: scrape.TierStatic}, nil
		}
		return listing("Alpha One", "Beta Two", "Gamma Three"), nil
	})

	p, _, _ := newTestPipeline(t, static, nil, store)
	report, err := p.BulkImport(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, 2, report.PersonalitiesPersisted)
	assert.Equal(t, 1, report.TuplesFailed)
	assert.NotEmpty(t, report.Warnings)
}

func TestBulkImportArchivesAndPublishes(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	static := fetchFunc(func(_ context.Context, q scrape.Query) (scrape.FetchResult, error) {
		if q.Page > 1 {
			return scrape.FetchResult{Tier: scrape.TierStatic}, nil
		}
		return listing("Alpha One"), nil
	})

	p, archive, publisher := newTestPipeline(t, static, nil, store)
	_, err := p.BulkImport(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, archive.Len(), "raw listing page is archived")
	require.Len(t, store.provs, 1)
	prov := store.provs[0]
	assert.NotEmpty(t, prov.ArchiveURI)
	assert.NotEmpty(t, prov.RawHash)
	assert.Equal(t, scrape.TierStatic, prov.Tier)
	assert.Equal(t, "sociotype.xyz", prov.LabelSource)

	require.Len(t, publisher.Messages(), 1)
	assert.Equal(t, "harvester-runs", publisher.Messages()[0].Topic)
}

func TestSearchPersonViaBrowserTier(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	static := fetchFunc(func(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
		return scrape.FetchResult{Tier: scrape.TierStatic}, nil
	})
	browser := fetchFunc(func(_ context.Context, q scrape.Query) (scrape.FetchResult, error) {
		require.Equal(t, scrape.ModeSearch, q.Mode)
		res := listing("Carl Jung")
		res.Tier = scrape.TierBrowser
		return res, nil
	})

	p, _, _ := newTestPipeline(t, static, browser, store)
	report, err := p.SearchPerson(context.Background(), "Carl Jung")
	require.NoError(t, err)

	assert.Equal(t, 1, report.PersonalitiesPersisted)
	assert.Equal(t, 1, report.LabelsWritten)
	require.Len(t, store.provs, 1)
	assert.Equal(t, scrape.TierBrowser, store.provs[0].Tier)
	assert.Equal(t, "sociotype.xyz (browser)", store.provs[0].LabelSource)
	assert.Contains(t, store.provs[0].LicenseNote, "(browser automation)")
}

func TestSearchPersonNoData(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	empty := fetchFunc(func(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
		return scrape.FetchResult{}, nil
	})

	p, _, _ := newTestPipeline(t, empty, empty, store)
	report, err := p.SearchPerson(context.Background(), "Nobody Atall")
	require.NoError(t, err)

	assert.Equal(t, 0, report.PersonalitiesPersisted)
	assert.Empty(t, store.persisted)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "no matching records")
}

func TestBulkImportRejectsNonPositiveLimit(t *testing.T) {
	t.Parallel()

	p, _, _ := newTestPipeline(t, fetchFunc(func(_ context.Context, _ scrape.Query) (scrape.FetchResult, error) {
		return scrape.FetchResult{}, nil
	}), nil, newFakeStore())

	_, err := p.BulkImport(context.Background(), 0)
	require.Error(t, err)

	_, err = p.SearchPerson(context.Background(), "")
	require.Error(t, err)
}
