package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"NewsletterIngest/internal/config"
	"NewsletterIngest/internal/domain"
	"NewsletterIngest/internal/extract"
	"NewsletterIngest/internal/infrastructure/notify"
	"NewsletterIngest/internal/infrastructure/source"
	"NewsletterIngest/internal/infrastructure/storage"
	"NewsletterIngest/internal/logging"
	"NewsletterIngest/internal/ports"
	"NewsletterIngest/internal/scheduler"
	"NewsletterIngest/internal/usecase"
)

// Application wires configuration to use cases and lifecycle control.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	scheduler *scheduler.Scheduler
	db        *sql.DB
	natsPub   *notify.NATSPublisher
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	store, err := app.buildStore()
	if err != nil {
		return nil, err
	}

	publications := make([]domain.Publication, 0, len(cfg.Publications))
	for _, p := range cfg.Publications {
		publications = append(publications, domain.Publication{
			ID: p.ID, Name: p.Name, Token: p.Token, Domain: p.Domain,
		})
	}

	ingestor := usecase.NewIngestor(usecase.IngestorDeps{
		Source:           source.NewClient(cfg.Source.BaseURL, nil),
		Store:            store,
		Notifier:         app.buildNotifier(),
		Publications:     publications,
		IssueLimit:       cfg.Source.IssueLimit,
		PublicationDelay: time.Duration(cfg.Source.PublicationDelaySeconds) * time.Second,
		SegmentOptions: extract.SegmentOptions{
			Categories:        cfg.Segmentation.Categories,
			PlaceholderTitles: cfg.Segmentation.PlaceholderTitles,
			MinBodyLength:     cfg.Segmentation.MinBodyLength,
		},
		Logger: baseLogger.With("component", "ingestor"),
	})

	app.scheduler = scheduler.New(ingestor, scheduler.Config{
		Enabled:      cfg.Scheduler.Enabled,
		Interval:     cfg.Scheduler.Interval(),
		WarmupDelay:  time.Duration(cfg.Scheduler.WarmupSeconds) * time.Second,
		MaxRetries:   cfg.Scheduler.MaxRetries,
		RetryDelay:   time.Duration(cfg.Scheduler.RetryDelayMinutes) * time.Minute,
		HistoryLimit: cfg.Scheduler.HistoryLimit,
	}, nil, baseLogger.With("component", "scheduler"))

	return app, nil
}

func (a *Application) buildStore() (ports.ContentStore, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Warn("no database DSN configured, using in-memory store")
		return storage.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	return storage.NewPostgresStore(db), nil
}

func (a *Application) buildNotifier() ports.Notifier {
	tg := a.cfg.Notifications.Telegram
	if tg.BotToken != "" && tg.ChatID != "" {
		return notify.NewTelegram(tg.BotToken, tg.ChatID)
	}

	if url := a.cfg.Notifications.NATS.URL; url != "" {
		pub, err := notify.NewNATSPublisher(url, a.cfg.Notifications.NATS.Subject)
		if err != nil {
			a.logger.Warn("nats notifier unavailable", "error", err)
			return nil
		}
		a.natsPub = pub
		return pub
	}
	return nil
}

// Scheduler exposes the control surface consumed by the HTTP layer.
func (a *Application) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

// Run starts the scheduler and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	a.scheduler.Start()
	<-ctx.Done()
	a.shutdown()
	return nil
}

func (a *Application) shutdown() {
	a.scheduler.Stop()
	if a.natsPub != nil {
		a.natsPub.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	a.logger.Info("application stopped")
}
