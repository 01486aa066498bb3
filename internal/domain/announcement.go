package domain

import "time"

// Source identifies which upstream site produced an announcement.
type Source string

const (
	SourceBlog  Source = "blog"
	SourceForum Source = "forum"
)

// Category is a named tag attached to an announcement.
type Category struct {
	Name string
}

// Author credits the poster of a forum announcement.
type Author struct {
	Name string
	Link string
}

// Announcement is the unified record built from either a blog post or a forum thread.
// It is constructed once per run and never mutated after extraction.
type Announcement struct {
	Source      Source
	Title       string
	Link        string
	Date        time.Time
	Content     string
	Description string
	Categories  []Category
	// Image is nil when the source page has no lead image (always nil for forum threads).
	Image   *string
	Authors []Author
}

// HasImage reports whether a lead image is attached.
func (a Announcement) HasImage() bool {
	return a.Image != nil && *a.Image != ""
}

// CategoryNames flattens categories for renderers and logs.
func (a Announcement) CategoryNames() []string {
	names := make([]string, 0, len(a.Categories))
	for _, c := range a.Categories {
		names = append(names, c.Name)
	}
	return names
}

// RunStatus enumerates outcomes of a publication run.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is the audit record of one aggregation + publication attempt.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     RunStatus
	Error      string
	ItemCount  int
	Items      []Announcement
}

// Artifact is a fully rendered output document bound to its destination path.
type Artifact struct {
	Path string
	Data []byte
}
