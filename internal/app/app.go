package app

import (
	"context"
	"fmt"
	"log/slog"

	"newsdigest/internal/collector"
	"newsdigest/internal/config"
	"newsdigest/internal/digest"
	"newsdigest/internal/domain"
	"newsdigest/internal/infrastructure/archive"
	"newsdigest/internal/infrastructure/channel"
	"newsdigest/internal/infrastructure/feed"
	"newsdigest/internal/infrastructure/llm"
	schedulerdriver "newsdigest/internal/infrastructure/scheduler"
	"newsdigest/internal/infrastructure/storage"
	"newsdigest/internal/infrastructure/telegram"
	"newsdigest/internal/infrastructure/video"
	"newsdigest/internal/logging"
	"newsdigest/internal/normalize"
	"newsdigest/internal/ports"
	"newsdigest/internal/render"
	"newsdigest/internal/score"
	"newsdigest/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	store     *storage.Store
	gate      *usecase.Gate
	scheduler *usecase.DigestScheduler
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := seedSources(store, cfg.Sources, baseLogger); err != nil {
		_ = store.Close()
		return nil, err
	}

	registry := collector.NewRegistry()
	registry.Register(channel.New(nil))
	registry.Register(feed.New(nil))
	if cfg.Video.ServiceURL != "" {
		registry.Register(video.New(cfg.Video.ServiceURL, cfg.Video.APIKey,
			baseLogger.With("component", "video")))
	}

	coordinator := collector.NewCoordinator(
		registry,
		store,
		cfg.Pipeline.ConcurrentSources,
		cfg.Pipeline.SourceTimeout(),
		baseLogger.With("component", "coordinator"),
	)

	normalizer := normalize.New(normalize.Options{
		MaxAge:    cfg.Pipeline.MaxContentAge(),
		MinLength: cfg.Pipeline.MinContentLength,
		MaxLength: cfg.Pipeline.MaxContentLength,
	}, baseLogger.With("component", "normalizer"))

	primary := buildProvider(cfg, cfg.Providers.Primary)
	fallback := buildProvider(cfg, cfg.Providers.Fallback)

	scorer := score.New(primary, fallback, score.Options{
		Concurrency: cfg.Pipeline.ConcurrentScoring,
		CallTimeout: cfg.Providers.RequestTimeout(),
	}, baseLogger.With("component", "scorer"))

	var insights ports.InsightsGenerator
	if gen, ok := primary.(ports.InsightsGenerator); ok {
		insights = gen
	}

	assembler := digest.New(store, insights, digest.Options{
		TopItems:    cfg.Pipeline.TopItems,
		ScoreCutoff: cfg.Pipeline.ScoreCutoff,
	}, baseLogger.With("component", "assembler"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Repository:  store,
		Coordinator: coordinator,
		Normalizer:  normalizer,
		Scorer:      scorer,
		Assembler:   assembler,
		MaxAge:      cfg.Pipeline.MaxContentAge(),
		Logger:      baseLogger.With("component", "pipeline"),
	})

	gate := usecase.NewGate(pipeline, store, cfg.Pipeline.StalenessWindow(),
		baseLogger.With("component", "gate"))

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken)
	}

	var archiver ports.Archiver
	if cfg.Archive.Dir != "" {
		archiver = archive.NewWriter(cfg.Archive.Dir)
	}

	driver := schedulerdriver.NewDailyScheduler(cfg.Scheduler.DigestTime, cfg.Scheduler.Location())
	digestScheduler := usecase.NewDigestScheduler(usecase.SchedulerDeps{
		Driver:     driver,
		Gate:       gate,
		Notifier:   notifier,
		Render:     render.Telegram,
		Archiver:   archiver,
		Repository: store,
		Requesters: cfg.Notifications.Telegram.AllowedUserIDs,
		Retention:  cfg.Pipeline.Retention(),
		Logger:     baseLogger.With("component", "scheduler"),
	})

	return &Application{
		cfg:       cfg,
		store:     store,
		gate:      gate,
		scheduler: digestScheduler,
		logger:    baseLogger,
	}, nil
}

// RequestDigest serves a manual digest request; the chat-bot surface
// calls this.
func (a *Application) RequestDigest(ctx context.Context, requesterID int64) (*domain.Digest, error) {
	return a.gate.RequestDigest(ctx, requesterID)
}

// Run starts the daily scheduler and blocks until the context ends.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler running", "digest_time", a.cfg.Scheduler.DigestTime)

	<-ctx.Done()

	stopCtx := context.Background()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	return a.store.Close()
}

func buildProvider(cfg config.Config, name string) ports.Provider {
	switch name {
	case "openai":
		if cfg.Providers.OpenAI.APIKey == "" {
			return nil
		}
		return llm.NewOpenAIClient(cfg.Providers.OpenAI, cfg.Prompts)
	case "anthropic":
		if cfg.Providers.Anthropic.APIKey == "" {
			return nil
		}
		return llm.NewAnthropicClient(cfg.Providers.Anthropic, cfg.Prompts)
	default:
		return nil
	}
}

// seedSources populates the registry from config on first run only.
func seedSources(store *storage.Store, sources []config.SourceConfig, logger *slog.Logger) error {
	ctx := context.Background()

	existing, err := store.ActiveSources(ctx)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, src := range sources {
		_, err := store.AddSource(ctx, domain.Source{
			Kind:    domain.SourceKind(src.Kind),
			Name:    src.Name,
			Address: src.Address,
			Active:  true,
		})
		if err != nil {
			logger.Warn("failed to seed source", "name", src.Name, "error", err)
			continue
		}
		logger.Info("seeded source", "name", src.Name, "kind", src.Kind)
	}

	return nil
}
