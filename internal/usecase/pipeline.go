package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/ports"
)

// Paths names the template inputs and artifact outputs of a run.
type Paths struct {
	Header string
	Footer string
	Feed   string
	Page   string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source    ports.AnnouncementSource
	Feed      ports.FeedRenderer
	Page      ports.PageRenderer
	Templates ports.TemplateReader
	Publisher ports.Publisher
	Recorder  ports.RunRecorder
	Paths     Paths
	Logger    *slog.Logger
	Now       func() time.Time
}

// Pipeline implements the aggregate-render-publish workflow.
type Pipeline struct {
	source    ports.AnnouncementSource
	feed      ports.FeedRenderer
	page      ports.PageRenderer
	templates ports.TemplateReader
	publisher ports.Publisher
	recorder  ports.RunRecorder
	paths     Paths
	logger    *slog.Logger
	now       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:    deps.Source,
		feed:      deps.Feed,
		page:      deps.Page,
		templates: deps.Templates,
		publisher: deps.Publisher,
		recorder:  deps.Recorder,
		paths:     deps.Paths,
		logger:    deps.Logger,
		now:       now,
	}
}

// Run aggregates announcements, renders both artifacts and publishes them
// together. Any failure before publishing leaves prior artifacts untouched.
func (p *Pipeline) Run(ctx context.Context) (domain.Run, error) {
	run := domain.Run{
		ID:        uuid.NewString(),
		StartedAt: p.now().UTC(),
	}

	items, err := p.execute(ctx)
	run.FinishedAt = p.now().UTC()
	run.Items = items
	run.ItemCount = len(items)
	if err != nil {
		run.Status = domain.RunFailed
		run.Error = err.Error()
		run.Items = nil
		run.ItemCount = 0
	} else {
		run.Status = domain.RunSucceeded
	}

	p.record(ctx, run)

	if err != nil {
		return run, err
	}
	p.info("run finished", "run_id", run.ID, "items", run.ItemCount, "took", run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

func (p *Pipeline) execute(ctx context.Context) ([]domain.Announcement, error) {
	if p.source == nil || p.feed == nil || p.page == nil || p.templates == nil || p.publisher == nil {
		return nil, fmt.Errorf("pipeline is not fully configured")
	}

	items, err := p.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	header, err := p.templates.ReadTemplate(p.paths.Header)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	footer, err := p.templates.ReadTemplate(p.paths.Footer)
	if err != nil {
		return nil, fmt.Errorf("read footer: %w", err)
	}

	var feed, page []byte
	g := new(errgroup.Group)
	g.Go(func() error {
		out, err := p.feed.RenderFeed(items)
		if err != nil {
			return fmt.Errorf("render feed: %w", err)
		}
		feed = out
		return nil
	})
	g.Go(func() error {
		out, err := p.page.RenderPage(header, footer, items)
		if err != nil {
			return fmt.Errorf("render page: %w", err)
		}
		page = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	artifacts := []domain.Artifact{
		{Path: p.paths.Feed, Data: feed},
		{Path: p.paths.Page, Data: page},
	}
	if err := p.publisher.Publish(ctx, artifacts); err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	return items, nil
}

func (p *Pipeline) record(ctx context.Context, run domain.Run) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordRun(ctx, run); err != nil && p.logger != nil {
		p.logger.Warn("record run failed", "run_id", run.ID, "error", err)
	}
}

// RecentRuns exposes the audit trail, newest first.
func (p *Pipeline) RecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if p.recorder == nil {
		return nil, fmt.Errorf("run history is not configured")
	}
	return p.recorder.RecentRuns(ctx, limit)
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
