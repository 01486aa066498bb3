// Package markup holds the text-level rewrite rules applied to HTML fragments
// lifted out of third-party pages. Rules are pure, never fail, and each is
// idempotent on its own output; pipelines order them so that no rule creates
// new matches for an earlier one.
package markup

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Rule is a single named rewrite over an HTML fragment.
type Rule struct {
	Name  string
	Apply func(string) string
}

// Pipeline applies its rules in order.
type Pipeline []Rule

// Clean runs every rule of the pipeline over fragment.
func (p Pipeline) Clean(fragment string) string {
	for _, rule := range p {
		fragment = rule.Apply(fragment)
	}
	return fragment
}

// Names lists rule names in application order.
func (p Pipeline) Names() []string {
	names := make([]string, 0, len(p))
	for _, rule := range p {
		names = append(names, rule.Name)
	}
	return names
}

const (
	listCloseTag  = "</ul>"
	listEndMarker = "[/list]"
)

var (
	apostrophes = runes.Map(func(r rune) rune {
		if r == '’' {
			return '\''
		}
		return r
	})
	doubleQuotes = runes.Map(func(r rune) rune {
		if r == '“' || r == '”' {
			return '"'
		}
		return r
	})

	classAndDataAttr   = regexp.MustCompile(` (?:class|data-[\w-]*)="[^"]*"`)
	presentationAttr   = regexp.MustCompile(` (?:alt|rel|srcset)="[^"]*"`)
	bulletTypeAttr     = regexp.MustCompile(` type="(?:circle|disc)"`)
	alignAttr          = regexp.MustCompile(` align="([^"]*)"`)
	emptyEmphasis      = regexp.MustCompile(`<[bi]>(?:\s|\x{00A0}|&nbsp;)+</[bi]>`)
	blankLines         = regexp.MustCompile(`\n\s*\n`)
	spaceRuns          = regexp.MustCompile(` {2,}`)
	trailingLineBreaks = regexp.MustCompile(`(?:\s*<br\s*/?>)+\s*$`)
)

// NormalizeApostrophes turns curly single quotes into straight apostrophes.
func NormalizeApostrophes(s string) string {
	out, _, err := transform.String(apostrophes, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeDoubleQuotes turns curly double quotes into straight ones.
func NormalizeDoubleQuotes(s string) string {
	out, _, err := transform.String(doubleQuotes, s)
	if err != nil {
		return s
	}
	return out
}

// StripClassAndData removes class and data-* attributes from every tag.
func StripClassAndData(s string) string {
	return classAndDataAttr.ReplaceAllString(s, "")
}

// StripPresentationAttrs removes alt, rel and srcset attributes.
func StripPresentationAttrs(s string) string {
	return presentationAttr.ReplaceAllString(s, "")
}

// StripBulletTypes drops list type attributes that only restate the default bullet.
func StripBulletTypes(s string) string {
	return bulletTypeAttr.ReplaceAllString(s, "")
}

// AlignToStyle rewrites align="X" into an inline text-align style.
func AlignToStyle(s string) string {
	return alignAttr.ReplaceAllString(s, ` style="text-align: $1;"`)
}

// CollapseEmptyEmphasis replaces <b>/<i> pairs holding only whitespace with a
// single space. Nested empty pairs are unwrapped until none remain.
func CollapseEmptyEmphasis(s string) string {
	for emptyEmphasis.MatchString(s) {
		s = emptyEmphasis.ReplaceAllString(s, " ")
	}
	return s
}

var nbsp = strings.NewReplacer("&nbsp;", " ", "\u00a0", " ")

// ReplaceNbsp turns &nbsp; entities and raw no-break spaces into plain spaces.
func ReplaceNbsp(s string) string {
	return nbsp.Replace(s)
}

// CollapseBlankLines folds any whitespace run holding two or more newlines into one newline.
func CollapseBlankLines(s string) string {
	return blankLines.ReplaceAllString(s, "\n")
}

// JoinContinuationLines turns a newline followed by a space into a single space.
func JoinContinuationLines(s string) string {
	return strings.ReplaceAll(s, "\n ", " ")
}

// CollapseSpaces folds runs of spaces into one.
func CollapseSpaces(s string) string {
	return spaceRuns.ReplaceAllString(s, " ")
}

// RepairLists fixes forum lists rendered as a real </ul> followed by bracket
// pseudo-markup ("[*]item<br>...[/list]"). For each [/list] marker the nearest
// preceding </ul> opens the broken run; the run's items become <li> elements and
// the list is closed in place. A marker with no </ul> ahead of it is dropped.
// Every step consumes one marker, so the scan ends after one step per marker.
func RepairLists(s string) string {
	from := 0
	for {
		end := strings.Index(s[from:], listEndMarker)
		if end < 0 {
			return s
		}
		end += from

		start := strings.LastIndex(s[from:end], listCloseTag)
		if start < 0 {
			s = s[:end] + s[end+len(listEndMarker):]
			from = end
			continue
		}
		start += from

		repaired := listItems(s[start+len(listCloseTag):end]) + listCloseTag
		s = s[:start] + repaired + s[end+len(listEndMarker):]
		from = start + len(repaired)
	}
}

func listItems(run string) string {
	parts := strings.Split(run, "[*]")

	var b strings.Builder
	b.WriteString(strings.TrimSpace(trailingLineBreaks.ReplaceAllString(parts[0], "")))
	for _, item := range parts[1:] {
		item = strings.TrimSpace(trailingLineBreaks.ReplaceAllString(item, ""))
		b.WriteString("<li>")
		b.WriteString(item)
		b.WriteString("</li>")
	}
	return b.String()
}

// NormalizeText cleans a short plain-text value such as a title or lead-in.
func NormalizeText(s string) string {
	s = NormalizeApostrophes(s)
	s = JoinContinuationLines(s)
	s = CollapseSpaces(s)
	return strings.TrimSpace(s)
}

func rule(name string, apply func(string) string) Rule {
	return Rule{Name: name, Apply: apply}
}

// whitespaceRules are shared by both sources. Empty emphasis goes first so the
// whitespace it leaves behind is folded by the later rules.
func whitespaceRules() []Rule {
	return []Rule{
		rule("collapse-empty-emphasis", CollapseEmptyEmphasis),
		rule("replace-nbsp", ReplaceNbsp),
		rule("collapse-blank-lines", CollapseBlankLines),
		rule("join-continuation-lines", JoinContinuationLines),
		rule("collapse-spaces", CollapseSpaces),
	}
}

// BlogPipeline cleans assembled blog post content.
func BlogPipeline() Pipeline {
	p := Pipeline{
		rule("normalize-apostrophes", NormalizeApostrophes),
		rule("strip-class-and-data", StripClassAndData),
		rule("strip-bullet-types", StripBulletTypes),
		rule("align-to-style", AlignToStyle),
	}
	return append(p, whitespaceRules()...)
}

// ForumPipeline cleans a single forum message body.
func ForumPipeline() Pipeline {
	p := Pipeline{
		rule("repair-lists", RepairLists),
		rule("normalize-apostrophes", NormalizeApostrophes),
		rule("normalize-double-quotes", NormalizeDoubleQuotes),
		rule("strip-class-and-data", StripClassAndData),
		rule("strip-presentation-attrs", StripPresentationAttrs),
	}
	return append(p, whitespaceRules()...)
}
