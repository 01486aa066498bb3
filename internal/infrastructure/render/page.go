package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"ESOAnnouncements/internal/domain"
	"ESOAnnouncements/internal/ports"
)

const (
	cardsPerRow    = 2
	cardDateLayout = "Mon Jan 02 2006"
	modalIndent    = "\n\t\t\t\t"
)

//go:embed templates/digest.html.tmpl
var templateFS embed.FS

var digestTemplate = template.Must(template.ParseFS(templateFS, "templates/digest.html.tmpl"))

type card struct {
	Index       int
	Title       string
	Date        string
	Description string
	Image       string
	Content     template.HTML
}

type digestView struct {
	Header template.HTML
	Footer template.HTML
	Rows   [][]card
	Cards  []card
}

// PageRenderer builds the static digest page: a grid of cards followed by one
// modal per item.
type PageRenderer struct {
	fallbackImage string
}

var _ ports.PageRenderer = (*PageRenderer)(nil)

// NewPageRenderer uses fallbackImage on cards for items without a lead image.
func NewPageRenderer(fallbackImage string) *PageRenderer {
	return &PageRenderer{fallbackImage: fallbackImage}
}

// RenderPage places the cards between header and footer, both copied verbatim.
// Card and modal indexes are positions in items.
func (r *PageRenderer) RenderPage(header, footer string, items []domain.Announcement) ([]byte, error) {
	view := digestView{
		Header: template.HTML(header),
		Footer: template.HTML(footer),
		Cards:  make([]card, 0, len(items)),
	}

	for i, item := range items {
		view.Cards = append(view.Cards, r.card(i, item))
	}
	for start := 0; start < len(view.Cards); start += cardsPerRow {
		end := min(start+cardsPerRow, len(view.Cards))
		view.Rows = append(view.Rows, view.Cards[start:end])
	}

	var buf bytes.Buffer
	if err := digestTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute digest template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PageRenderer) card(index int, item domain.Announcement) card {
	image := r.fallbackImage
	if item.HasImage() {
		image = *item.Image
	}

	return card{
		Index:       index,
		Title:       item.Title,
		Date:        item.Date.Format(cardDateLayout),
		Description: item.Description,
		Image:       image,
		Content:     template.HTML(modalContent(item.Content)),
	}
}

// modalContent opens every link in a new tab and indents continuation lines.
func modalContent(content string) string {
	content = strings.ReplaceAll(content, "<a ", `<a target="_blank" `)
	return strings.ReplaceAll(content, "\n", modalIndent)
}
