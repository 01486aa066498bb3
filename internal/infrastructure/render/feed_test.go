package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"ESOAnnouncements/internal/config"
	"ESOAnnouncements/internal/domain"
)

func testChannel() config.FeedConfig {
	return config.FeedConfig{
		Title:       "ESO Announcements",
		Description: "Combined ESO blog and forum post announcements feed",
		Link:        "https://www.elderscrollsonline.com/",
		Language:    "en-us",
		Favicon:     "https://www.elderscrollsonline.com/favicon.ico",
		Generator:   "ESOAnnouncements",
	}
}

func sampleItems() []domain.Announcement {
	image := "https://cdn.example/lead.png?w=640"
	return []domain.Announcement{
		{
			Source:      domain.SourceBlog,
			Title:       "Update 41 & Patch Notes",
			Link:        "https://www.elderscrollsonline.com/en-us/news/post/1",
			Date:        time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
			Content:     `<img src="https://cdn.example/lead.png?w=640" /><p>Body tail</p>`,
			Description: "Lead in",
			Categories:  []domain.Category{{Name: "News"}, {Name: "PC"}},
			Image:       &image,
		},
		{
			Source:     domain.SourceForum,
			Title:      "Server Downtime",
			Link:       "https://forums.example/en/discussion/5",
			Date:       time.Date(2024, time.March, 2, 12, 30, 0, 0, time.UTC),
			Content:    "<p>Maintenance</p>",
			Categories: []domain.Category{{Name: "Forum"}},
			Authors:    []domain.Author{{Name: "ZOS_Kevin", Link: "https://forums.example/en/profile/ZOS_Kevin"}},
		},
	}
}

func TestRenderFeed(t *testing.T) {
	t.Parallel()

	data, err := NewFeedRenderer(testChannel()).RenderFeed(sampleItems())
	if err != nil {
		t.Fatalf("RenderFeed error: %v", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		t.Fatalf("parse generated feed: %v", err)
	}

	if feed.Title != "ESO Announcements" || feed.Language != "en-us" || feed.Link != "https://www.elderscrollsonline.com/" {
		t.Fatalf("unexpected channel: %s %s %s", feed.Title, feed.Language, feed.Link)
	}
	if feed.Image == nil || feed.Image.URL != "https://www.elderscrollsonline.com/favicon.ico" {
		t.Fatalf("unexpected channel image: %+v", feed.Image)
	}
	if feed.UpdatedParsed == nil || !feed.UpdatedParsed.Equal(time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected updated to be the newest item date, got %v", feed.UpdatedParsed)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(feed.Items))
	}

	blog := feed.Items[0]
	if blog.Title != "Update 41 & Patch Notes" {
		t.Fatalf("unexpected title: %s", blog.Title)
	}
	if blog.Content != `<img src="https://cdn.example/lead.png?w=640" /><p>Body tail</p>` {
		t.Fatalf("unexpected content: %s", blog.Content)
	}
	if strings.Join(blog.Categories, ",") != "News,PC" {
		t.Fatalf("unexpected categories: %v", blog.Categories)
	}
	if len(blog.Enclosures) != 1 || blog.Enclosures[0].Type != "image/png" {
		t.Fatalf("unexpected enclosures: %+v", blog.Enclosures)
	}
	if blog.GUID != blog.Link {
		t.Fatalf("expected guid to equal link, got %s", blog.GUID)
	}

	forum := feed.Items[1]
	if len(forum.Authors) != 1 || forum.Authors[0].Name != "ZOS_Kevin" {
		t.Fatalf("unexpected authors: %+v", forum.Authors)
	}
	if forum.Description != "" {
		t.Fatalf("expected empty description, got %q", forum.Description)
	}
	if len(forum.Enclosures) != 0 {
		t.Fatalf("expected no enclosure for forum item, got %+v", forum.Enclosures)
	}
}

func TestRenderFeedWithoutItems(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.April, 1, 9, 0, 0, 0, time.UTC)
	r := NewFeedRenderer(testChannel())
	r.now = func() time.Time { return now }

	data, err := r.RenderFeed(nil)
	if err != nil {
		t.Fatalf("RenderFeed error: %v", err)
	}
	if !strings.Contains(string(data), "<lastBuildDate>"+now.Format(time.RFC1123Z)+"</lastBuildDate>") {
		t.Fatalf("expected lastBuildDate to fall back to now:\n%s", data)
	}
}

func TestWriteCDATASplitsTerminator(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeCDATA(&buf, "a]]>b")
	if got := buf.String(); got != "<![CDATA[a]]]]><![CDATA[>b]]>" {
		t.Fatalf("unexpected CDATA: %s", got)
	}
}

func TestEnclosureType(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://cdn.example/a.jpg":     "image/jpeg",
		"https://cdn.example/a.PNG":     "image/png",
		"https://cdn.example/a.gif?x=1": "image/gif",
		"https://cdn.example/image":     defaultEnclosureType,
		"https://cdn.example/a.mp4":     defaultEnclosureType,
	}
	for in, want := range cases {
		if got := enclosureType(in); got != want {
			t.Fatalf("enclosureType(%s) = %s, want %s", in, got, want)
		}
	}
}
