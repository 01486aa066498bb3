package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ESOAnnouncements/internal/domain"
)

type stubSource struct {
	items []domain.Announcement
	err   error
}

func (s stubSource) FetchAll(context.Context) ([]domain.Announcement, error) {
	return s.items, s.err
}

type stubFeed struct{ err error }

func (s stubFeed) RenderFeed(items []domain.Announcement) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte(fmt.Sprintf("feed:%d", len(items))), nil
}

type stubPage struct{}

func (stubPage) RenderPage(header, footer string, items []domain.Announcement) ([]byte, error) {
	return []byte(fmt.Sprintf("%s|%d|%s", header, len(items), footer)), nil
}

type stubTemplates map[string]string

func (s stubTemplates) ReadTemplate(path string) (string, error) {
	body, ok := s[path]
	if !ok {
		return "", fmt.Errorf("open %s: no such file", path)
	}
	return body, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published [][]domain.Artifact
}

func (r *recordingPublisher) Publish(_ context.Context, artifacts []domain.Artifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, artifacts)
	return nil
}

type memoryRecorder struct {
	mu   sync.Mutex
	runs []domain.Run
	err  error
}

func (m *memoryRecorder) RecordRun(_ context.Context, run domain.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryRecorder) RecentRuns(_ context.Context, limit int) ([]domain.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	return m.runs[:limit], nil
}

var testPaths = Paths{Header: "header.html", Footer: "footer.html", Feed: "webroot/feed.rss", Page: "webroot/index.html"}

func newTestPipeline(source stubSource, feed stubFeed, publisher *recordingPublisher, recorder *memoryRecorder) *Pipeline {
	deps := PipelineDeps{
		Source:    source,
		Feed:      feed,
		Page:      stubPage{},
		Templates: stubTemplates{"header.html": "<head>", "footer.html": "<foot>"},
		Publisher: publisher,
		Paths:     testPaths,
	}
	if recorder != nil {
		deps.Recorder = recorder
	}
	return NewPipeline(deps)
}

func TestPipelineRunPublishesBothArtifacts(t *testing.T) {
	t.Parallel()

	items := []domain.Announcement{{Title: "a", Date: time.Now()}, {Title: "b", Date: time.Now()}}
	publisher := &recordingPublisher{}
	recorder := &memoryRecorder{}

	run, err := newTestPipeline(stubSource{items: items}, stubFeed{}, publisher, recorder).Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if run.Status != domain.RunSucceeded || run.ItemCount != 2 || run.ID == "" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected one publish call, got %d", len(publisher.published))
	}

	artifacts := publisher.published[0]
	if len(artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Path != testPaths.Feed || string(artifacts[0].Data) != "feed:2" {
		t.Fatalf("unexpected feed artifact: %s %s", artifacts[0].Path, artifacts[0].Data)
	}
	if artifacts[1].Path != testPaths.Page || string(artifacts[1].Data) != "<head>|2|<foot>" {
		t.Fatalf("unexpected page artifact: %s %s", artifacts[1].Path, artifacts[1].Data)
	}
	if len(recorder.runs) != 1 || recorder.runs[0].ID != run.ID {
		t.Fatalf("expected run to be recorded, got %+v", recorder.runs)
	}
}

func TestPipelineRunSourceFailureWritesNothing(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	recorder := &memoryRecorder{}
	sourceErr := fmt.Errorf("scan forum: %w", domain.ErrTransport)

	run, err := newTestPipeline(stubSource{err: sourceErr}, stubFeed{}, publisher, recorder).Run(context.Background())
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected nothing published, got %d calls", len(publisher.published))
	}
	if run.Status != domain.RunFailed || run.Error == "" {
		t.Fatalf("unexpected run: %+v", run)
	}
	if len(recorder.runs) != 1 || recorder.runs[0].Status != domain.RunFailed {
		t.Fatalf("expected failed run to be recorded, got %+v", recorder.runs)
	}
}

func TestPipelineRunRenderFailureWritesNothing(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	items := []domain.Announcement{{Title: "a", Date: time.Now()}}

	_, err := newTestPipeline(stubSource{items: items}, stubFeed{err: errors.New("boom")}, publisher, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected render error")
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected nothing published, got %d calls", len(publisher.published))
	}
}

func TestPipelineRunMissingTemplateWritesNothing(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	p := NewPipeline(PipelineDeps{
		Source:    stubSource{},
		Feed:      stubFeed{},
		Page:      stubPage{},
		Templates: stubTemplates{"header.html": "<head>"},
		Publisher: publisher,
		Paths:     testPaths,
	})

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("expected missing footer error")
	}
	if len(publisher.published) != 0 {
		t.Fatalf("expected nothing published, got %d calls", len(publisher.published))
	}
}

func TestPipelineRecorderFailureDoesNotFailRun(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	recorder := &memoryRecorder{err: errors.New("disk full")}

	if _, err := newTestPipeline(stubSource{}, stubFeed{}, publisher, recorder).Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected artifacts to be published, got %d calls", len(publisher.published))
	}
}

type immediateDriver struct {
	started bool
	stopped bool
}

func (d *immediateDriver) Start(_ context.Context, job func(time.Time)) error {
	d.started = true
	job(time.Now())
	return nil
}

func (d *immediateDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerRunsPipeline(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	driver := &immediateDriver{}
	s := NewScheduler(driver, newTestPipeline(stubSource{}, stubFeed{}, publisher, nil), nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop error: %v", err)
	}

	if !driver.started || !driver.stopped {
		t.Fatalf("driver not driven: %+v", driver)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected one scheduled run, got %d", len(publisher.published))
	}
}
