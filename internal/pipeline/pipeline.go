// Package pipeline exposes the caller-facing acquisition entry points:
// bulk import of the source listing and targeted person search, both
// running the fallback orchestrator and persisting through the
// provenance store.
package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
)

// Config controls run-level behavior.
type Config struct {
	Domain      string
	LicenseNote string
	// Topic is the publisher topic for run summaries; ignored when no
	// publisher is configured.
	Topic string
	// MaxListingPages bounds bulk pagination as a safety stop.
	MaxListingPages int
}

// Pipeline wires the orchestrator to the store. Archive, publisher and
// hasher are optional collaborators.
type Pipeline struct {
	orch      *scrape.Orchestrator
	store     scrape.Store
	archive   scrape.BlobStore
	publisher scrape.Publisher
	hasher    scrape.Hasher
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Pipeline.
func New(
	orch *scrape.Orchestrator,
	store scrape.Store,
	archive scrape.BlobStore,
	publisher scrape.Publisher,
	hasher scrape.Hasher,
	cfg Config,
	logger *zap.Logger,
) (*Pipeline, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.MaxListingPages <= 0 {
		cfg.MaxListingPages = 25
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		orch:      orch,
		store:     store,
		archive:   archive,
		publisher: publisher,
		hasher:    hasher,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// RunReport summarizes one pipeline run for the caller.
type RunReport struct {
	Mode                   scrape.Mode `json:"mode"`
	PersonalitiesPersisted int         `json:"personalities_persisted"`
	LabelsWritten          int         `json:"labels_written"`
	TuplesFailed           int         `json:"tuples_failed"`
	PagesProcessed         int         `json:"pages_processed"`
	Warnings               []string    `json:"warnings,omitempty"`
}

func (r *RunReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// BulkImport advances through the source listing until limit distinct
// new personalities have been persisted or the listing is exhausted.
// Re-encountering an already-known canonical name refreshes its labels
// but does not count against the limit. Per-tuple storage failures are
// collected, never fatal to the run.
func (p *Pipeline) BulkImport(ctx context.Context, limit int) (RunReport, error) {
	report := RunReport{Mode: scrape.ModeBulk}
	if limit <= 0 {
		return report, fmt.Errorf("limit must be > 0")
	}

	seen := make(map[string]bool)
	newCount := 0

	for page := 1; page <= p.cfg.MaxListingPages; page++ {
		out := p.orch.Run(ctx, scrape.Query{Mode: scrape.ModeBulk, Page: page})
		if !out.Outcome.Satisfied() {
			p.noteTerminalOutcome(&report, out, page)
			break
		}
		report.PagesProcessed++

		prov := p.provenance(ctx, out, scrape.ModeBulk)
		stop := false
		pageNew := 0
		for _, r := range out.Results {
			canonical := scrape.CanonicalName(r.Name)
			isNew, err := p.isNewPersonality(ctx, canonical, seen)
			if err != nil {
				report.warn("dedup lookup for %q failed: %v", r.Name, err)
			}
			if isNew && newCount >= limit {
				stop = true
				break
			}
			ok := p.persistOne(ctx, &report, r, prov)
			if isNew && ok {
				seen[canonical] = true
				newCount++
				pageNew++
			}
		}
		if stop || newCount >= limit {
			break
		}
		// A satisfied page with no new canonical names means the
		// listing has stopped advancing (a source ignoring the page
		// parameter would otherwise be re-fetched until the page cap).
		if pageNew == 0 {
			p.logger.Info("listing exhausted, no new personalities on page",
				zap.Int("page", page))
			break
		}
	}

	report.PersonalitiesPersisted = newCount
	p.publishSummary(ctx, report)
	return report, nil
}

// SearchPerson runs one search-mode orchestration for name. The report
// shows whether a fresh label landed: LabelsWritten > 0 means the
// personality (new or existing) gained at least one new label.
func (p *Pipeline) SearchPerson(ctx context.Context, name string) (RunReport, error) {
	report := RunReport{Mode: scrape.ModeSearch}
	if name == "" {
		return report, fmt.Errorf("person name is required")
	}

	out := p.orch.Run(ctx, scrape.Query{Mode: scrape.ModeSearch, PersonName: name})
	if !out.Outcome.Satisfied() {
		p.noteTerminalOutcome(&report, out, 0)
		p.publishSummary(ctx, report)
		return report, nil
	}

	prov := p.provenance(ctx, out, scrape.ModeSearch)
	rep, err := p.store.Persist(ctx, out.Results, prov)
	if err != nil {
		return report, fmt.Errorf("persist search results: %w", err)
	}
	report.PersonalitiesPersisted = rep.PersonalitiesCreated
	report.LabelsWritten = rep.LabelsWritten
	report.TuplesFailed = len(rep.Failures)
	for _, f := range rep.Failures {
		report.warn("persist %q failed: %v", f.Name, f.Err)
	}

	p.publishSummary(ctx, report)
	return report, nil
}

// persistOne writes a single tuple and reports whether its atomic
// write landed.
func (p *Pipeline) persistOne(ctx context.Context, report *RunReport, r scrape.ExtractionResult, prov scrape.Provenance) bool {
	rep, err := p.store.Persist(ctx, []scrape.ExtractionResult{r}, prov)
	if err != nil {
		report.TuplesFailed++
		report.warn("persist %q failed: %v", r.Name, err)
		return false
	}
	report.LabelsWritten += rep.LabelsWritten
	report.TuplesFailed += len(rep.Failures)
	for _, f := range rep.Failures {
		report.warn("persist %q failed: %v", f.Name, f.Err)
	}
	return len(rep.Failures) == 0 && rep.LabelsWritten > 0
}

// isNewPersonality reports whether canonical has not been stored
// before and has not been counted earlier in this run.
func (p *Pipeline) isNewPersonality(ctx context.Context, canonical string, seen map[string]bool) (bool, error) {
	if seen[canonical] {
		return false, nil
	}
	known, err := p.store.HasPersonality(ctx, canonical)
	if err != nil {
		// Treat as new so the limit still bounds the run.
		return true, err
	}
	return !known, nil
}

func (p *Pipeline) noteTerminalOutcome(report *RunReport, out scrape.FetchOutcome, page int) {
	switch out.Outcome {
	case scrape.OutcomeFallbackUnavailable:
		report.warn("fallback tier unavailable: coverage reduced (%v)", out.Err)
	case scrape.OutcomeFailed:
		report.warn("fetch attempt failed: %v", out.Err)
	case scrape.OutcomeNoData:
		if page <= 1 {
			report.warn("no matching records found on either tier")
		}
	}
	p.logger.Info("run leg ended",
		zap.String("outcome", string(out.Outcome)),
		zap.Int("page", page))
}

// provenance archives the raw page (when an archive is configured) and
// builds the provenance tag for this batch.
func (p *Pipeline) provenance(ctx context.Context, out scrape.FetchOutcome, mode scrape.Mode) scrape.Provenance {
	prov := scrape.Provenance{
		SourceURL:   out.SourceURL,
		Domain:      p.cfg.Domain,
		Tier:        out.Tier,
		Mode:        mode,
		LicenseNote: p.licenseNote(out.Tier),
		LabelSource: p.labelSource(out.Tier),
	}
	if p.hasher == nil || len(out.RawHTML) == 0 {
		return prov
	}
	hash, err := p.hasher.Hash(out.RawHTML)
	if err != nil {
		p.logger.Warn("raw page hash failed", zap.Error(err))
		return prov
	}
	prov.RawHash = hash
	if p.archive == nil {
		return prov
	}
	path := fmt.Sprintf("pages/%s/%s.html", out.Tier, hash[:16])
	uri, err := p.archive.PutObject(ctx, path, "text/html; charset=utf-8", out.RawHTML)
	if err != nil {
		p.logger.Warn("raw page archive failed", zap.Error(err))
		return prov
	}
	prov.ArchiveURI = uri
	return prov
}

func (p *Pipeline) licenseNote(tier scrape.Tier) string {
	note := p.cfg.LicenseNote
	if note == "" {
		note = "Public database - educational use"
	}
	if tier == scrape.TierBrowser {
		note += " (browser automation)"
	}
	return note
}

func (p *Pipeline) labelSource(tier scrape.Tier) string {
	if tier == scrape.TierBrowser {
		return p.cfg.Domain + " (browser)"
	}
	return p.cfg.Domain
}

func (p *Pipeline) publishSummary(ctx context.Context, report RunReport) {
	if p.publisher == nil || p.cfg.Topic == "" {
		return
	}
	if _, err := p.publisher.Publish(ctx, p.cfg.Topic, report); err != nil {
		p.logger.Warn("run summary publish failed", zap.Error(err))
	}
}
