package summaries

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Per-field caps for text placed into a prompt.
const (
	MaxBodyRunes   = 2000
	MaxAuthorRunes = 100
)

var (
	controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	blankRuns    = regexp.MustCompile(`\n{3,}`)

	// tagOpen matches anything the HTML tokenizer would read as a tag start.
	tagOpen = regexp.MustCompile(`<(/?)([A-Za-z][A-Za-z0-9]*)([\s/>]?)`)
	// htmlTags are the element names markup in messages actually uses.
	htmlTags = regexp.MustCompile(`^(a|abbr|b|blockquote|br|code|dd|del|details|div|dl|dt|em|h[1-6]|hr|i|img|ins|kbd|li|ol|p|pre|q|s|samp|span|strike|strong|sub|summary|sup|table|tbody|td|th|thead|tr|tt|u|ul|var)$`)
	// activeTags are stripped whatever their case.
	activeTags = regexp.MustCompile(`(?i)^(script|style|iframe|frame|frameset|object|embed|applet|svg|math|form|input|button|textarea|select|link|meta|base|img|video|audio|source|template)$`)

	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions?`),
		regexp.MustCompile(`(?i)ignore\s+(all\s+)?above`),
		regexp.MustCompile(`(?i)disregard\s+(all\s+)?previous\s+instructions?`),
		regexp.MustCompile(`(?i)forget\s+(all\s+)?previous\s+instructions?`),
		regexp.MustCompile(`(?i)new\s+instructions?:`),
		regexp.MustCompile(`(?i)system\s+prompt:`),
		regexp.MustCompile(`(?i)you\s+are\s+now`),
		regexp.MustCompile(`(?i)your\s+new\s+role`),
	}
)

// Sanitizer cleans untrusted message text before it reaches a model.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// NewSanitizer strips all markup from input.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean strips control characters and markup, caps the text at maxRunes,
// collapses blank runs and neutralises injection phrasing.
func (s *Sanitizer) Clean(text string, maxRunes int) string {
	if text == "" {
		return ""
	}
	text = controlChars.ReplaceAllString(text, "")
	text = html.UnescapeString(s.policy.Sanitize(escapeNonTags(text)))
	if r := []rune(text); maxRunes > 0 && len(r) > maxRunes {
		text = string(r[:maxRunes])
	}
	text = blankRuns.ReplaceAllString(text, "\n\n")
	for _, p := range injectionPatterns {
		text = p.ReplaceAllString(text, "[removed]")
	}
	return strings.TrimSpace(text)
}

// escapeNonTags escapes '<' where it opens something that is not an HTML
// element, so type parameters like Vec<u8> survive the markup policy.
func escapeNonTags(text string) string {
	return tagOpen.ReplaceAllStringFunc(text, func(m string) string {
		sub := tagOpen.FindStringSubmatch(m)
		name, term := sub[2], sub[3]
		if activeTags.MatchString(name) {
			return m
		}
		if term != "" && htmlTags.MatchString(name) {
			return m
		}
		return "&lt;" + m[1:]
	})
}
