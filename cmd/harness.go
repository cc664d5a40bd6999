package cmd

import (
	"context"
	"fmt"

	gcpubsub "cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/jmbvcxd/socionics-harvester/internal/archive/gcs"
	"github.com/jmbvcxd/socionics-harvester/internal/archive/local"
	archmem "github.com/jmbvcxd/socionics-harvester/internal/archive/memory"
	"github.com/jmbvcxd/socionics-harvester/internal/clock/system"
	"github.com/jmbvcxd/socionics-harvester/internal/config"
	"github.com/jmbvcxd/socionics-harvester/internal/fetch/headless"
	"github.com/jmbvcxd/socionics-harvester/internal/fetch/static"
	"github.com/jmbvcxd/socionics-harvester/internal/hash/sha256"
	"github.com/jmbvcxd/socionics-harvester/internal/id/uuid"
	"github.com/jmbvcxd/socionics-harvester/internal/logging"
	"github.com/jmbvcxd/socionics-harvester/internal/pipeline"
	pspub "github.com/jmbvcxd/socionics-harvester/internal/publish/pubsub"
	"github.com/jmbvcxd/socionics-harvester/internal/ratelimit"
	"github.com/jmbvcxd/socionics-harvester/internal/scrape"
	"github.com/jmbvcxd/socionics-harvester/internal/store/postgres"
	"github.com/jmbvcxd/socionics-harvester/internal/telemetry"
)

// harness holds the wired application services shared by the
// subcommands.
type harness struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *postgres.Store
	pipe    *pipeline.Pipeline
	closers []func()
}

// Close releases resources in reverse construction order.
func (h *harness) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		h.closers[i]()
	}
	if h.logger != nil {
		_ = h.logger.Sync()
	}
}

// newHarness loads configuration and builds the full pipeline stack.
func newHarness(ctx context.Context) (*harness, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	telemetry.Init()

	h := &harness{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			h.Close()
		}
	}()

	store, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}, uuid.NewGenerator(), system.New(), logger)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	h.store = store
	h.closers = append(h.closers, store.Close)

	staticFetcher := static.New(static.Config{
		BaseURL:       cfg.Source.BaseURL,
		UserAgent:     cfg.Source.UserAgent,
		Timeout:       cfg.HTTP.Timeout(),
		RespectRobots: cfg.HTTP.RespectRobots,
	}, ratelimit.New(cfg.StaticInterval()), logger)

	var browser scrape.Fetcher
	if cfg.Browser.Enabled {
		bf, err := headless.New(headless.Config{
			BaseURL:           cfg.Source.BaseURL,
			UserAgent:         cfg.Source.UserAgent,
			NavigationTimeout: cfg.Browser.NavTimeout(),
			SettleDelay:       cfg.Browser.SettleDelay(),
			ShowBrowser:       cfg.Browser.ShowBrowser,
		}, ratelimit.New(cfg.BrowserInterval()), logger)
		if err != nil {
			return nil, fmt.Errorf("init browser tier: %w", err)
		}
		h.closers = append(h.closers, bf.Close)
		browser = bf
	}

	orch := scrape.NewOrchestrator(staticFetcher, browser, logger)

	archive, err := h.buildArchive(ctx)
	if err != nil {
		return nil, err
	}

	publisher, err := h.buildPublisher(ctx)
	if err != nil {
		return nil, err
	}

	pipe, err := pipeline.New(orch, store, archive, publisher, sha256.New(), pipeline.Config{
		Domain:          cfg.Source.Domain,
		LicenseNote:     cfg.Source.LicenseNote,
		Topic:           cfg.PubSub.Topic,
		MaxListingPages: cfg.Pipeline.MaxListingPages,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	h.pipe = pipe

	ok = true
	return h, nil
}

func (h *harness) buildArchive(ctx context.Context) (scrape.BlobStore, error) {
	switch h.cfg.Archive.Backend {
	case "":
		return nil, nil
	case "memory":
		return archmem.New(), nil
	case "local":
		store, err := local.New(local.Config{BaseDir: h.cfg.Archive.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, nil
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		h.closers = append(h.closers, func() { _ = client.Close() })
		store, err := gcs.New(client, gcs.Config{Bucket: h.cfg.Archive.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", h.cfg.Archive.Backend)
	}
}

func (h *harness) buildPublisher(ctx context.Context) (scrape.Publisher, error) {
	if h.cfg.PubSub.ProjectID == "" || h.cfg.PubSub.Topic == "" {
		return nil, nil
	}
	client, err := gcpubsub.NewClient(ctx, h.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("init pubsub client: %w", err)
	}
	topic := client.Topic(h.cfg.PubSub.Topic)
	h.closers = append(h.closers, func() {
		topic.Stop()
		_ = client.Close()
	})
	return pspub.New(topic), nil
}
