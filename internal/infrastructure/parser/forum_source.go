package parser

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"ESOAnnouncements/internal/config"
	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/markup"
	"ESOAnnouncements/internal/ports"
	"ESOAnnouncements/internal/scanner"
)

const (
	forumCategory = "Forum"
	staffRank     = "Rank-Staff"
)

// ThreadRef is an announcement thread found on the category page.
type ThreadRef struct {
	Title  string
	URL    string
	Author domain.Author
}

// ForumSource scrapes staff announcements pinned in a forum category.
type ForumSource struct {
	fetcher ports.Fetcher
	cfg     config.ForumConfig
	cleaner markup.Pipeline
	logger  *slog.Logger
}

var _ scanner.Scanner = (*ForumSource)(nil)

func NewForumSource(fetcher ports.Fetcher, cfg config.ForumConfig, log *slog.Logger) *ForumSource {
	return &ForumSource{
		fetcher: fetcher,
		cfg:     cfg,
		cleaner: markup.ForumPipeline(),
		logger:  log,
	}
}

func (f *ForumSource) Name() string {
	return string(domain.SourceForum)
}

// Scan lists qualifying threads and extracts each of them. Threads that do not
// open with a staff message are left out.
func (f *ForumSource) Scan(ctx context.Context) ([]domain.Announcement, error) {
	threads, err := f.ListThreads(ctx)
	if err != nil {
		return nil, err
	}
	f.debug("forum category read", "threads", len(threads))

	type extracted struct {
		item domain.Announcement
		ok   bool
	}

	results, err := collectInOrder(ctx, f.cfg.Concurrency, threads, func(ctx context.Context, ref ThreadRef) (extracted, error) {
		date, fragments, err := f.ExtractThread(ctx, ref.URL)
		if err != nil {
			return extracted{}, err
		}
		if len(fragments) == 0 {
			f.warn("thread has no leading staff message, skipping", "url", ref.URL, "title", ref.Title)
			return extracted{}, nil
		}
		return extracted{item: BuildThreadItem(ref.Title, ref.URL, date, fragments, ref.Author), ok: true}, nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.Announcement, 0, len(results))
	for _, r := range results {
		if r.ok {
			items = append(items, r.item)
		}
	}
	return items, nil
}

// ListThreads returns announcement threads in document order, minus excluded titles.
func (f *ForumSource) ListThreads(ctx context.Context) ([]ThreadRef, error) {
	page, err := f.fetcher.Fetch(ctx, f.cfg.CategoryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("forum category: %w", err)
	}

	doc, err := parseDocument(page)
	if err != nil {
		return nil, fmt.Errorf("forum category %s: %w", f.cfg.CategoryURL, err)
	}

	announcements := doc.Find(".Item.Announcement")
	announcements.Find(".Title .icon").Remove()

	var threads []ThreadRef
	var walkErr error
	announcements.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		title := item.Find(".Title").First()
		titleText := markup.NormalizeText(title.Text())
		if titleText == "" || f.excluded(titleText) {
			return true
		}

		href, ok := title.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			walkErr = &domain.ExtractionError{URL: f.cfg.CategoryURL, Field: "thread link"}
			return false
		}
		link, err := resolveLink(f.cfg.CategoryURL, href)
		if err != nil {
			walkErr = &domain.ExtractionError{URL: f.cfg.CategoryURL, Field: "thread link", Err: err}
			return false
		}

		user := item.Find(".FirstUser .UserLink").First()
		author := domain.Author{Name: strings.TrimSpace(user.Text())}
		if userHref, ok := user.Attr("href"); ok && userHref != "" {
			if resolved, err := resolveLink(f.cfg.CategoryURL, userHref); err == nil {
				author.Link = resolved
			}
		}

		threads = append(threads, ThreadRef{Title: titleText, URL: link, Author: author})
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return threads, nil
}

func (f *ForumSource) excluded(title string) bool {
	if slices.Contains(f.cfg.ExcludedTitles, title) {
		return true
	}
	lower := strings.ToLower(title)
	for _, keyword := range f.cfg.ExcludedKeywords {
		if keyword != "" && strings.Contains(lower, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// ExtractThread collects the leading run of staff messages. The walk stops at
// the first message from anyone else; the returned date belongs to the last
// message collected. No fragments means the thread does not open with staff.
func (f *ForumSource) ExtractThread(ctx context.Context, threadURL string) (time.Time, []string, error) {
	page, err := f.fetcher.Fetch(ctx, threadURL, nil)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("forum thread: %w", err)
	}
	return f.parseThread(threadURL, page)
}

func (f *ForumSource) parseThread(threadURL, page string) (time.Time, []string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("forum thread %s: %w", threadURL, err)
	}

	var (
		date      time.Time
		fragments []string
		walkErr   error
	)
	doc.Find("#Content .Item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if !item.HasClass(staffRank) {
			return false
		}

		stamp, ok := item.Find(".DateCreated time").First().Attr("datetime")
		if !ok || strings.TrimSpace(stamp) == "" {
			walkErr = &domain.ExtractionError{URL: threadURL, Field: "message date"}
			return false
		}
		created, err := parseTimestamp(stamp)
		if err != nil {
			walkErr = &domain.ExtractionError{URL: threadURL, Field: "message date", Err: err}
			return false
		}

		body, err := item.Find(".Message").First().Html()
		if err != nil {
			walkErr = &domain.ExtractionError{URL: threadURL, Field: "message body", Err: err}
			return false
		}

		date = created
		fragments = append(fragments, f.cleaner.Clean(strings.TrimSpace(body)))
		return true
	})
	if walkErr != nil {
		return time.Time{}, nil, walkErr
	}

	f.debug("thread extracted", "url", threadURL, "messages", len(fragments))
	return date, fragments, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// BuildThreadItem assembles a forum announcement from extracted fragments.
func BuildThreadItem(title, link string, date time.Time, fragments []string, author domain.Author) domain.Announcement {
	item := domain.Announcement{
		Source:     domain.SourceForum,
		Title:      title,
		Link:       link,
		Date:       date,
		Content:    strings.Join(fragments, ""),
		Categories: []domain.Category{{Name: forumCategory}},
	}
	if author.Name != "" {
		item.Authors = []domain.Author{author}
	}
	return item
}

func (f *ForumSource) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

func (f *ForumSource) warn(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}
