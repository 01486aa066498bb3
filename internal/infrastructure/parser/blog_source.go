package parser

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
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
	blogCategory         = "News"
	blogExcludedCategory = "Announcements"
)

// Post links sit in "link-block" containers; the first href after the marker is the post.
var linkBlockExpr = regexp.MustCompile(`(?s)link-block.+?href="([^"]+)"`)

// BlogSource scrapes the news blog announcements category.
type BlogSource struct {
	fetcher ports.Fetcher
	cfg     config.BlogConfig
	cleaner markup.Pipeline
	logger  *slog.Logger
}

var _ scanner.Scanner = (*BlogSource)(nil)

// NewBlogSource wires a fetcher with the blog settings.
func NewBlogSource(fetcher ports.Fetcher, cfg config.BlogConfig, log *slog.Logger) *BlogSource {
	return &BlogSource{
		fetcher: fetcher,
		cfg:     cfg,
		cleaner: markup.BlogPipeline(),
		logger:  log,
	}
}

// Name identifies the strategy inside the registry.
func (b *BlogSource) Name() string {
	return string(domain.SourceBlog)
}

// Scan lists the announcement posts and extracts each of them, in listing order.
func (b *BlogSource) Scan(ctx context.Context) ([]domain.Announcement, error) {
	paths, err := b.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	b.debug("blog listing read", "posts", len(paths))

	return collectInOrder(ctx, b.cfg.Concurrency, paths, b.ExtractPost)
}

// ListPosts returns post paths in document order. Repeated links are kept.
func (b *BlogSource) ListPosts(ctx context.Context) ([]string, error) {
	page, err := b.fetcher.Fetch(ctx, b.cfg.ListingURL(), b.headers())
	if err != nil {
		return nil, fmt.Errorf("blog listing: %w", err)
	}
	return listPostPaths(page), nil
}

func listPostPaths(page string) []string {
	matches := linkBlockExpr.FindAllStringSubmatch(page, -1)
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, html.UnescapeString(m[1]))
	}
	return paths
}

// ExtractPost fetches one post page and builds its announcement.
func (b *BlogSource) ExtractPost(ctx context.Context, path string) (domain.Announcement, error) {
	postURL, err := resolveLink(b.cfg.ListingURL(), path)
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("blog post %s: %w", path, err)
	}

	page, err := b.fetcher.Fetch(ctx, postURL, b.headers())
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("blog post: %w", err)
	}

	item, err := b.parsePost(postURL, page)
	if err != nil {
		return domain.Announcement{}, err
	}
	b.debug("post extracted", "url", postURL, "date", item.Date.Format(time.DateOnly), "categories", item.CategoryNames())
	return item, nil
}

func (b *BlogSource) parsePost(postURL, page string) (domain.Announcement, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("blog post %s: %w", postURL, err)
	}

	title := markup.NormalizeText(doc.Find("h1").First().Text())
	if title == "" {
		return domain.Announcement{}, &domain.ExtractionError{URL: postURL, Field: "title"}
	}

	dateText := strings.TrimSpace(doc.Find("span.date").First().Text())
	if dateText == "" {
		return domain.Announcement{}, &domain.ExtractionError{URL: postURL, Field: "date"}
	}
	date, err := dateparse.ParseIn(dateText, time.UTC)
	if err != nil {
		return domain.Announcement{}, &domain.ExtractionError{URL: postURL, Field: "date", Err: err}
	}

	var image *string
	if src, ok := doc.Find(".lead-img").First().Attr("src"); ok && strings.TrimSpace(src) != "" {
		src = strings.TrimSpace(src)
		image = &src
	}

	return domain.Announcement{
		Source:      domain.SourceBlog,
		Title:       title,
		Link:        postURL,
		Date:        date,
		Content:     b.cleaner.Clean(b.assembleContent(postURL, doc, image)),
		Description: markup.NormalizeText(doc.Find(".text_block i").First().Text()),
		Categories:  postCategories(doc),
		Image:       image,
	}, nil
}

func postCategories(doc *goquery.Document) []domain.Category {
	categories := []domain.Category{{Name: blogCategory}}
	doc.Find(".post-title .tags a").Each(func(_ int, a *goquery.Selection) {
		name := strings.TrimSpace(a.Text())
		if name != "" && name != blogExcludedCategory {
			categories = append(categories, domain.Category{Name: name})
		}
	})
	return categories
}

// assembleContent walks the body blocks in document order and dispatches on the id prefix.
func (b *BlogSource) assembleContent(postURL string, doc *goquery.Document, image *string) string {
	var content strings.Builder
	if image != nil {
		fmt.Fprintf(&content, `<img src="%s" />`, html.EscapeString(*image))
	}

	doc.Find(".blog-body-box > div[id]").Each(func(_ int, block *goquery.Selection) {
		id, _ := block.Attr("id")
		switch {
		case strings.HasPrefix(id, "blog_images"):
			block.Find(".zl-link").Each(func(_ int, a *goquery.Selection) {
				if href, ok := a.Attr("href"); ok {
					fmt.Fprintf(&content, "\n<img src=\"%s\" />\n", html.EscapeString(href))
				}
			})
		case strings.HasPrefix(id, "blog_videos"):
			embed, ok := block.Find(`a[href*="youtube.com/embed/"]`).First().Attr("href")
			if !ok {
				b.warn("video block without embed link", "url", postURL, "block", id)
				return
			}
			preview, _ := block.Find("img.preview").First().Attr("data-lazy-src")
			fmt.Fprintf(&content, "\n<a href=\"%s\"><img src=\"%s\" /></a>\n",
				html.EscapeString(strings.Replace(embed, "/embed/", "/v/", 1)),
				html.EscapeString(preview))
		case strings.HasPrefix(id, "text_block"):
			block.Children().Each(func(_ int, child *goquery.Selection) {
				inner, err := child.Html()
				if err != nil || inner == "" {
					return
				}
				content.WriteString(strings.TrimSpace(markup.NormalizeApostrophes(inner)))
			})
		}
	})

	return content.String()
}

func (b *BlogSource) headers() map[string]string {
	if b.cfg.UserAgent == "" {
		return nil
	}
	return map[string]string{"User-Agent": b.cfg.UserAgent}
}

func (b *BlogSource) debug(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}

func (b *BlogSource) warn(msg string, args ...interface{}) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}
