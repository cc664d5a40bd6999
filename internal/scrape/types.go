package scrape

import "strings"

// Tier identifies which extraction strategy produced a result.
type Tier string

// Extraction tiers, recorded in source metadata.
const (
	TierStatic  Tier = "static"
	TierBrowser Tier = "browser"
)

// Mode distinguishes a bulk listing pull from a targeted person search.
type Mode string

// Query modes, recorded in source metadata.
const (
	ModeBulk   Mode = "bulk"
	ModeSearch Mode = "search"
)

// Query describes one fetch request handed to a tier.
type Query struct {
	Mode       Mode
	PersonName string // search mode only
	Page       int    // bulk mode listing page, 1-based
}

// ExtractionResult is the normalized tuple both tiers produce.
// Confidence is nil when the site shows none; the store applies its
// default at persist time.
type ExtractionResult struct {
	Name       string   `json:"name"`
	TypeCode   string   `json:"type_code"`
	DCNH       string   `json:"dcnh,omitempty"`
	Confidence *float64 `json:"confidence"`
	Evidence   string   `json:"evidence"`
	ProfileURL string   `json:"profile_url,omitempty"`
}

// FetchResult is what a tier returns for one query.
type FetchResult struct {
	Results   []ExtractionResult
	SourceURL string
	RawHTML   []byte
	Tier      Tier
}

// Empty reports whether the fetch located no structured data. This is
// the designed fallback signal, not an error.
func (r FetchResult) Empty() bool {
	return len(r.Results) == 0
}

// Outcome is the terminal state of one orchestrated request.
type Outcome string

// Terminal outcomes. SatisfiedStatic and SatisfiedBrowser record which
// tier produced the data; the remaining values record the failure mode.
const (
	OutcomeSatisfiedStatic     Outcome = "satisfied_static"
	OutcomeSatisfiedBrowser    Outcome = "satisfied_browser"
	OutcomeNoData              Outcome = "no_data"
	OutcomeFallbackUnavailable Outcome = "fallback_unavailable"
	OutcomeFailed              Outcome = "failed"
)

// Satisfied reports whether the request terminated with data.
func (o Outcome) Satisfied() bool {
	return o == OutcomeSatisfiedStatic || o == OutcomeSatisfiedBrowser
}

// FetchOutcome is the unified result of one orchestrator run.
type FetchOutcome struct {
	Outcome   Outcome
	Tier      Tier // tier that produced the terminal state; empty when none ran
	Results   []ExtractionResult
	SourceURL string
	RawHTML   []byte
	Err       error // failure detail for OutcomeFailed / OutcomeFallbackUnavailable
}

// Provenance tags one persisted batch with where it came from.
type Provenance struct {
	SourceURL   string
	Domain      string
	Tier        Tier
	Mode        Mode
	LicenseNote string
	LabelSource string
	ArchiveURI  string
	RawHash     string
}

// PersistReport summarizes one Persist call.
type PersistReport struct {
	PersonalitiesCreated int
	PersonalitiesUpdated int
	LabelsWritten        int
	NewCanonicalNames    []string
	Failures             []TupleFailure
}

// TupleFailure records one extraction tuple whose atomic write failed.
type TupleFailure struct {
	Name string
	Err  error
}

// CanonicalName folds a display name into the dedup key: lowercased
// with runs of whitespace collapsed to single spaces.
func CanonicalName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
