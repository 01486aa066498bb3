package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ESOAnnouncements/internal/config"
	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/ports"
)

const defaultEnclosureType = "image/jpeg"

// FeedRenderer writes announcements as an RSS 2.0 document.
type FeedRenderer struct {
	channel config.FeedConfig
	now     func() time.Time
}

var _ ports.FeedRenderer = (*FeedRenderer)(nil)

func NewFeedRenderer(channel config.FeedConfig) *FeedRenderer {
	return &FeedRenderer{channel: channel, now: time.Now}
}

// RenderFeed serializes items in the given order and checks that the result
// parses back as a feed with the same number of entries.
func (r *FeedRenderer) RenderFeed(items []domain.Announcement) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", r.channel.Title, 4)
	writeElement(&buf, "link", r.channel.Link, 4)
	writeElement(&buf, "description", r.channel.Description, 4)

	// Items arrive sorted, so the first one is the newest.
	lastBuildDate := r.now()
	if len(items) > 0 {
		lastBuildDate = items[0].Date
	}
	writeElement(&buf, "lastBuildDate", lastBuildDate.UTC().Format(time.RFC1123Z), 4)
	writeElement(&buf, "generator", r.channel.Generator, 4)
	writeElement(&buf, "language", r.channel.Language, 4)

	if r.channel.Favicon != "" {
		buf.WriteString("    <image>\n")
		writeElement(&buf, "url", r.channel.Favicon, 6)
		writeElement(&buf, "title", r.channel.Title, 6)
		writeElement(&buf, "link", r.channel.Link, 6)
		buf.WriteString("    </image>\n")
	}

	for _, item := range items {
		writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	if err := verifyFeed(buf.Bytes(), len(items)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeItem(buf *bytes.Buffer, item domain.Announcement) {
	buf.WriteString("    <item>\n")

	writeElement(buf, "title", item.Title, 6)
	writeElement(buf, "link", item.Link, 6)
	if item.Link != "" {
		buf.WriteString(`      <guid isPermaLink="true">`)
		xml.EscapeText(buf, []byte(item.Link))
		buf.WriteString("</guid>\n")
	}
	writeElement(buf, "pubDate", item.Date.UTC().Format(time.RFC1123Z), 6)
	writeElement(buf, "description", item.Description, 6)

	if item.Content != "" {
		buf.WriteString("      <content:encoded>")
		writeCDATA(buf, item.Content)
		buf.WriteString("</content:encoded>\n")
	}

	for _, author := range item.Authors {
		writeElement(buf, "dc:creator", author.Name, 6)
	}

	for _, category := range item.Categories {
		writeElement(buf, "category", category.Name, 6)
	}

	if item.HasImage() {
		fmt.Fprintf(buf, "      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(*item.Image),
			html.EscapeString(enclosureType(*item.Image)))
	}

	buf.WriteString("    </item>\n")
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	buf.WriteString(strings.Repeat(" ", indent))
	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

// writeCDATA splits any "]]>" inside content across two sections.
func writeCDATA(buf *bytes.Buffer, content string) {
	buf.WriteString("<![CDATA[")
	buf.WriteString(strings.ReplaceAll(content, "]]>", "]]]]><![CDATA[>"))
	buf.WriteString("]]>")
}

func enclosureType(imageURL string) string {
	ext := path.Ext(imageURL)
	if u, err := url.Parse(imageURL); err == nil {
		ext = path.Ext(u.Path)
	}
	if t := mime.TypeByExtension(strings.ToLower(ext)); strings.HasPrefix(t, "image/") {
		return t
	}
	return defaultEnclosureType
}

func verifyFeed(data []byte, want int) error {
	parsed, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return fmt.Errorf("generated feed does not parse: %w", err)
	}
	if len(parsed.Items) != want {
		return fmt.Errorf("generated feed has %d items, want %d", len(parsed.Items), want)
	}
	return nil
}
