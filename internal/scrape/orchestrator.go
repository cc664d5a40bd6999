package scrape

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/telemetry"
)

// state enumerates the orchestrator's control flow. Terminal states
// are stateSatisfied and stateFailed.
type state int

const (
	stateStart state = iota
	stateTryStatic
	stateNeedsFallback
	stateTryBrowser
	stateSatisfied
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateTryStatic:
		return "try_static"
	case stateNeedsFallback:
		return "needs_fallback"
	case stateTryBrowser:
		return "try_browser"
	case stateSatisfied:
		return "satisfied"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Orchestrator sequences the static tier ahead of the browser tier and
// maps every exit path to a distinct terminal outcome. The browser
// fetcher may be nil when fallback is not configured.
type Orchestrator struct {
	static  Fetcher
	browser Fetcher
	logger  *zap.Logger
}

// NewOrchestrator builds an Orchestrator. browser may be nil.
func NewOrchestrator(static Fetcher, browser Fetcher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		static:  static,
		browser: browser,
		logger:  logger,
	}
}

// Run drives one query through the state machine and returns the
// unified terminal outcome. Extraction failures never escape as
// errors; they are folded into the outcome.
func (o *Orchestrator) Run(ctx context.Context, query Query) FetchOutcome {
	var (
		out        FetchOutcome
		staticErr  error
		browserErr error
	)

	st := stateStart
	for {
		switch st {
		case stateStart:
			st = stateTryStatic

		case stateTryStatic:
			res, err := o.static.Fetch(ctx, query)
			st = afterStatic(res, err)
			if st == stateSatisfied {
				out = satisfied(res, TierStatic)
			}
			staticErr = err

		case stateNeedsFallback:
			if o.browser == nil {
				o.logger.Warn("static tier empty and no fallback configured",
					zap.String("mode", string(query.Mode)))
				out = FetchOutcome{Outcome: OutcomeFallbackUnavailable, Err: ErrTierUnavailable}
				st = stateFailed
				continue
			}
			st = stateTryBrowser

		case stateTryBrowser:
			res, err := o.browser.Fetch(ctx, query)
			st = afterBrowser(res, err)
			if st == stateSatisfied {
				out = satisfied(res, TierBrowser)
			} else {
				out = browserFailure(err, staticErr)
			}
			browserErr = err

		case stateSatisfied:
			o.logger.Debug("request satisfied",
				zap.String("tier", string(out.Tier)),
				zap.Int("results", len(out.Results)))
			telemetry.ObserveFetch(string(out.Tier), string(out.Outcome))
			return out

		case stateFailed:
			o.logger.Info("request terminated without data",
				zap.String("outcome", string(out.Outcome)),
				zap.NamedError("static_err", staticErr),
				zap.NamedError("browser_err", browserErr))
			telemetry.ObserveFetch(tierLabel(out.Tier), string(out.Outcome))
			return out
		}
	}
}

// afterStatic is the transition function out of stateTryStatic: a
// non-empty result satisfies the request and the browser tier is
// skipped entirely; empty results and network errors both demand
// fallback.
func afterStatic(res FetchResult, err error) state {
	if err == nil && !res.Empty() {
		return stateSatisfied
	}
	return stateNeedsFallback
}

// afterBrowser is the transition function out of stateTryBrowser:
// non-empty satisfies, everything else is terminal failure.
func afterBrowser(res FetchResult, err error) state {
	if err == nil && !res.Empty() {
		return stateSatisfied
	}
	return stateFailed
}

func satisfied(res FetchResult, tier Tier) FetchOutcome {
	outcome := OutcomeSatisfiedStatic
	if tier == TierBrowser {
		outcome = OutcomeSatisfiedBrowser
	}
	return FetchOutcome{
		Outcome:   outcome,
		Tier:      tier,
		Results:   res.Results,
		SourceURL: res.SourceURL,
		RawHTML:   res.RawHTML,
	}
}

func browserFailure(browserErr, staticErr error) FetchOutcome {
	switch {
	case errors.Is(browserErr, ErrTierUnavailable):
		// The tier never actually ran; leave Tier empty.
		return FetchOutcome{Outcome: OutcomeFallbackUnavailable, Err: browserErr}
	case browserErr != nil:
		return FetchOutcome{Outcome: OutcomeFailed, Tier: TierBrowser, Err: browserErr}
	default:
		// Both tiers ran and neither located matching records.
		return FetchOutcome{Outcome: OutcomeNoData, Tier: TierBrowser, Err: staticErr}
	}
}

// tierLabel is the metric label for a terminal outcome's tier; "none"
// when no tier produced the terminal state.
func tierLabel(tier Tier) string {
	if tier == "" {
		return "none"
	}
	return string(tier)
}
