package ports

import (
	"context"
	"time"

	"ESOAnnouncements/internal/domain"
)

// Fetcher retrieves raw HTML for a URL, applying the given request headers.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (string, error)
}

// AnnouncementSource produces the merged, date-ordered announcement list for one run.
type AnnouncementSource interface {
	FetchAll(ctx context.Context) ([]domain.Announcement, error)
}

// FeedRenderer serializes announcements into a syndication document.
type FeedRenderer interface {
	RenderFeed(items []domain.Announcement) ([]byte, error)
}

// PageRenderer builds the static digest page between the header and footer fragments.
type PageRenderer interface {
	RenderPage(header, footer string, items []domain.Announcement) ([]byte, error)
}

// TemplateReader loads header/footer fragments.
type TemplateReader interface {
	ReadTemplate(path string) (string, error)
}

// Publisher writes a set of artifacts atomically: all of them or none.
type Publisher interface {
	Publish(ctx context.Context, artifacts []domain.Artifact) error
}

// RunRecorder keeps an audit trail of runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.Run) error
	RecentRuns(ctx context.Context, limit int) ([]domain.Run, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
