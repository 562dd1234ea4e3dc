// Package parser extracts proposal metadata from SIMD markdown documents.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/stake-plus/simd-tracker/src/shared/simd"
)

const (
	// UntitledProposal is used when neither front matter nor a heading names the document.
	UntitledProposal = "Untitled Proposal"
	summaryLimit     = 500
	minParagraphLen  = 50
)

var (
	headingTitle   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	simdPrefix     = regexp.MustCompile(`(?i)^SIMD-\d+:\s*`)
	summarySection = regexp.MustCompile(`(?ims)^##\s+Summary\s*$\n(.*?)(?:^#|\z)`)
)

// Document is the parsed form of a proposal file.
type Document struct {
	Title   string
	Status  simd.Status
	Summary string
	Topics  []string
	Body    string
	// FrontMatter holds the raw decoded front matter, nil when absent or invalid.
	FrontMatter map[string]any
}

// Parse extracts metadata from raw. It never fails: malformed front matter
// yields an untitled draft carrying the whole input as body.
func Parse(raw string) Document {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	front, body, hasFront := splitFrontMatter(raw)

	var meta map[string]any
	if hasFront {
		if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
			return Document{Title: UntitledProposal, Status: simd.StatusDraft, Body: raw}
		}
	}

	doc := Document{Body: body, FrontMatter: meta, Status: simd.StatusDraft}
	doc.Title = extractTitle(meta, body)
	if s, ok := simd.ParseStatus(stringField(meta, "status")); ok {
		doc.Status = s
	}
	doc.Summary = extractSummary(meta, body)
	doc.Topics = listField(meta, "topics")
	if len(doc.Topics) == 0 {
		doc.Topics = listField(meta, "tags")
	}
	return doc
}

func splitFrontMatter(raw string) (front, body string, ok bool) {
	if !strings.HasPrefix(raw, "---\n") {
		return "", raw, false
	}
	rest := raw[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", raw, false
	}
	front = rest[:end]
	body = rest[end+len("\n---"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}
	return front, body, true
}

func extractTitle(meta map[string]any, body string) string {
	title := strings.TrimSpace(stringField(meta, "title"))
	if title == "" {
		if m := headingTitle.FindStringSubmatch(body); m != nil {
			title = strings.TrimSpace(m[1])
		}
	}
	if title == "" {
		return UntitledProposal
	}
	return CleanTitle(title)
}

// CleanTitle strips a leading "SIMD-nnnn:" marker from a title.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if stripped := strings.TrimSpace(simdPrefix.ReplaceAllString(title, "")); stripped != "" {
		return stripped
	}
	return title
}

func extractSummary(meta map[string]any, body string) string {
	for _, key := range []string{"summary", "description"} {
		if s := strings.TrimSpace(stringField(meta, key)); s != "" {
			return truncate(s, summaryLimit)
		}
	}
	if m := summarySection.FindStringSubmatch(body); m != nil {
		if p := firstParagraph(m[1], 0); p != "" {
			return truncate(p, summaryLimit)
		}
	}
	return truncate(firstParagraph(body, minParagraphLen), summaryLimit)
}

// firstParagraph returns the first blank-line separated block that is not a
// heading and is longer than minLen characters.
func firstParagraph(text string, minLen int) string {
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		if utf8.RuneCountInString(p) > minLen {
			return p
		}
	}
	return ""
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func stringField(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, err := yaml.Marshal(v)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
}

func listField(meta map[string]any, key string) []string {
	var out []string
	switch v := meta[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
