package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"ESOAnnouncements/internal/config"
	"ESOAnnouncements/internal/infrastructure/fetch"
	"ESOAnnouncements/internal/infrastructure/output"
	"ESOAnnouncements/internal/infrastructure/parser"
	"ESOAnnouncements/internal/infrastructure/render"
	"ESOAnnouncements/internal/infrastructure/scheduler"
	"ESOAnnouncements/internal/infrastructure/storage"
	"ESOAnnouncements/internal/logging"
	"ESOAnnouncements/internal/scanner"
	"ESOAnnouncements/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	history  *storage.SQLiteHistory
}

// New builds the application. The run history is opened only when configured.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	fetcher := fetch.NewHTTPFetcher(nil, cfg.HTTP.Timeout)

	registry := scanner.NewRegistry()
	registry.Register(parser.NewBlogSource(fetcher, cfg.Blog, baseLogger.With("component", "source.blog")))
	registry.Register(parser.NewForumSource(fetcher, cfg.Forum, baseLogger.With("component", "source.forum")))

	source := parser.NewStrategySource(registry, parser.DefaultSources, baseLogger.With("component", "aggregator"))
	files := output.NewFilePublisher("", baseLogger.With("component", "publisher"))

	deps := usecase.PipelineDeps{
		Source:    source,
		Feed:      render.NewFeedRenderer(cfg.Feed),
		Page:      render.NewPageRenderer(cfg.Output.FallbackImage),
		Templates: files,
		Publisher: files,
		Paths: usecase.Paths{
			Header: cfg.Output.HeaderPath,
			Footer: cfg.Output.FooterPath,
			Feed:   cfg.Output.FeedPath,
			Page:   cfg.Output.PagePath,
		},
		Logger: baseLogger.With("component", "pipeline"),
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if cfg.History.Enabled() {
		history, err := storage.OpenSQLiteHistory(cfg.History.DSN)
		if err != nil {
			return nil, fmt.Errorf("open run history: %w", err)
		}
		a.history = history
		deps.Recorder = history
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

// Run performs a single aggregation and publication.
func (a *Application) Run(ctx context.Context) error {
	_, err := a.pipeline.Run(ctx)
	return err
}

// Schedule runs the pipeline on the configured cron expression until ctx ends.
func (a *Application) Schedule(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(
		a.cfg.Scheduler.CronExpression,
		a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"),
	)
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return sched.Stop(stopCtx)
}

// History writes the most recent runs to w, newest first.
func (a *Application) History(ctx context.Context, limit int, w io.Writer) error {
	if a.history == nil {
		return fmt.Errorf("run history is disabled: set history.dsn or ESO_FEED_HISTORY_DSN")
	}

	runs, err := a.pipeline.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("load run history: %w", err)
	}

	for _, run := range runs {
		fmt.Fprintf(w, "%s  %s  %-9s  items=%d  took=%s\n",
			run.StartedAt.In(a.cfg.Scheduler.Location()).Format(time.DateTime),
			run.ID,
			run.Status,
			run.ItemCount,
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
		)
		if run.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", run.Error)
		}
		for _, item := range run.Items {
			fmt.Fprintf(w, "    %s  %-5s  %s\n", item.Date.Format(time.DateOnly), item.Source, item.Title)
		}
	}
	return nil
}

// Close releases the run history, if any.
func (a *Application) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}
