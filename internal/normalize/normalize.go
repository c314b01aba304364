// Package normalize cleans raw feed text: entity decoding, tag stripping and
// source-specific boilerplate removal. All functions are pure and idempotent.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	cdataRe     = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
	numEntityRe = regexp.MustCompile(`&#(x?[0-9a-fA-F]+);`)
	spaceRe     = regexp.MustCompile(`\s+`)

	// Trailing "- SourceName" suffix many aggregated feeds append to titles.
	sourceSuffixRe = regexp.MustCompile(`\s+[-–—|]\s+[A-Z][\w.&' ]{1,40}$`)

	// Reddit feed boilerplate.
	submittedByRe  = regexp.MustCompile(`(?i)submitted by\s+/u/\S+.*$`)
	linkCommentsRe = regexp.MustCompile(`(?i)\[(link|comments)\]`)
	viewCommentsRe = regexp.MustCompile(`(?i)view comments\s*$`)
)

var namedEntities = map[string]string{
	"&lt;":     "<",
	"&gt;":     ">",
	"&quot;":   `"`,
	"&apos;":   "'",
	"&nbsp;":   " ",
	"&ndash;":  "–",
	"&mdash;":  "—",
	"&rsquo;":  "’",
	"&lsquo;":  "‘",
	"&rdquo;":  "”",
	"&ldquo;":  "“",
	"&hellip;": "…",
	"&copy;":   "©",
	"&reg;":    "®",
	"&trade;":  "™",
	"&eacute;": "é",
}

// decodeEntities resolves numeric and common named markup entities.
func decodeEntities(s string) string {
	s = numEntityRe.ReplaceAllStringFunc(s, func(m string) string {
		body := numEntityRe.FindStringSubmatch(m)[1]
		base := 10
		if strings.HasPrefix(body, "x") || strings.HasPrefix(body, "X") {
			base = 16
			body = body[1:]
		}
		n, err := strconv.ParseInt(body, base, 32)
		if err != nil || n <= 0 {
			return ""
		}
		return string(rune(n))
	})
	for ent, r := range namedEntities {
		s = strings.ReplaceAll(s, ent, r)
	}
	// Ampersand last, so already-decoded text is not decoded twice.
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}

// Text decodes entities, strips markup and collapses whitespace.
func Text(s string) string {
	s = cdataRe.ReplaceAllString(s, "$1")
	s = decodeEntities(s)
	s = tagRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Title cleans a story title: everything Text does, plus removal of the
// trailing "- SourceName" suffix pattern.
func Title(s string) string {
	s = Text(s)
	// Strip to a fixpoint so a second Title call is a no-op.
	for {
		t := sourceSuffixRe.ReplaceAllString(s, "")
		if t == s {
			break
		}
		s = t
	}
	return strings.TrimSpace(s)
}

// Description cleans a story body, discarding Reddit-style boilerplate
// ("submitted by ...", [link]/[comments] markers, trailing "view comments").
func Description(s string) string {
	s = Text(s)
	s = submittedByRe.ReplaceAllString(s, "")
	s = linkCommentsRe.ReplaceAllString(s, "")
	s = viewCommentsRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
