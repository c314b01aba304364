// Package feedparse extracts stories out of RSS- and Atom-shaped markup.
// It is deliberately a best-effort regex layer over the document text rather
// than a strict XML parser: broken feeds still yield their parseable items.
package feedparse

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/newsmesh/newsmesh/internal/news"
	"github.com/newsmesh/newsmesh/internal/normalize"
)

// maxItems caps how many of the newest-appearing items one feed contributes.
const maxItems = 10

var (
	itemRe  = regexp.MustCompile(`(?s)<item(?:\s[^>]*)?>(.*?)</item>`)
	entryRe = regexp.MustCompile(`(?s)<entry(?:\s[^>]*)?>(.*?)</entry>`)

	titleRe    = regexp.MustCompile(`(?s)<title[^>]*>(.*?)</title>`)
	linkTextRe = regexp.MustCompile(`(?s)<link[^>]*>(.*?)</link>`)
	linkHrefRe = regexp.MustCompile(`<link[^>]*href="([^"]+)"`)

	pubDateRe   = regexp.MustCompile(`(?s)<pubDate[^>]*>(.*?)</pubDate>`)
	updatedRe   = regexp.MustCompile(`(?s)<updated[^>]*>(.*?)</updated>`)
	publishedRe = regexp.MustCompile(`(?s)<published[^>]*>(.*?)</published>`)

	descriptionRe = regexp.MustCompile(`(?s)<description[^>]*>(.*?)</description>`)
	summaryRe     = regexp.MustCompile(`(?s)<summary[^>]*>(.*?)</summary>`)
	encodedRe     = regexp.MustCompile(`(?s)<content:encoded[^>]*>(.*?)</content:encoded>`)
	contentRe     = regexp.MustCompile(`(?s)<content[^>]*>(.*?)</content>`)

	dcCreatorRe = regexp.MustCompile(`(?s)<dc:creator[^>]*>(.*?)</dc:creator>`)
	authorRe    = regexp.MustCompile(`(?s)<author[^>]*>(.*?)</author>`)
	creatorRe   = regexp.MustCompile(`(?s)<creator[^>]*>(.*?)</creator>`)
	nameRe      = regexp.MustCompile(`(?s)<name[^>]*>(.*?)</name>`)

	cdataRe = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	mediaContentRe   = regexp.MustCompile(`<media:content[^>]*url="([^"]+)"`)
	mediaThumbnailRe = regexp.MustCompile(`<media:thumbnail[^>]*url="([^"]+)"`)
	enclosureRe      = regexp.MustCompile(`<enclosure[^>]*url="([^"]+)"`)
)

// dateLayouts covers the publish date formats seen across real feeds.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse extracts up to maxItems stories from the raw feed document. Items
// missing a title or link are discarded; an unparseable publish date falls
// back to now.
func Parse(raw, source string, category news.Category, now time.Time) []news.Story {
	blocks := itemRe.FindAllStringSubmatch(raw, -1)
	if len(blocks) == 0 {
		blocks = entryRe.FindAllStringSubmatch(raw, -1)
	}

	stories := make([]news.Story, 0, maxItems)
	for _, block := range blocks {
		if len(stories) >= maxItems {
			break
		}
		body := block[1]

		title := normalize.Title(firstMatch(body, titleRe))
		link := extractLink(body)
		if title == "" || link == "" {
			continue
		}

		published, ok := parseDate(body)
		if !ok {
			published = now
		}

		stories = append(stories, news.Story{
			Title:       title,
			Link:        link,
			PublishedAt: published,
			Description: normalize.Description(extractBody(body)),
			Author:      extractAuthor(body),
			ImageURL:    extractImage(body),
			Source:      source,
			Category:    category,
			Timestamp:   published.UnixMilli(),
		})
	}
	return stories
}

func firstMatch(body string, re *regexp.Regexp) string {
	if m := re.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractLink handles both RSS link text and Atom link-as-attribute style.
func extractLink(body string) string {
	if text := normalize.Text(firstMatch(body, linkTextRe)); text != "" {
		return text
	}
	if m := linkHrefRe.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return ""
}

func parseDate(body string) (time.Time, bool) {
	raw := firstMatch(body, pubDateRe)
	if raw == "" {
		raw = firstMatch(body, updatedRe)
	}
	if raw == "" {
		raw = firstMatch(body, publishedRe)
	}
	raw = normalize.Text(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// extractBody picks the story text in priority order:
// description, summary, encoded content, plain content.
func extractBody(body string) string {
	for _, re := range []*regexp.Regexp{descriptionRe, summaryRe, encodedRe, contentRe} {
		if m := firstMatch(body, re); m != "" {
			return m
		}
	}
	return ""
}

func extractAuthor(body string) string {
	if a := normalize.Text(firstMatch(body, dcCreatorRe)); a != "" {
		return a
	}
	if raw := firstMatch(body, authorRe); raw != "" {
		// Atom authors nest a <name> element.
		if n := normalize.Text(firstMatch(raw, nameRe)); n != "" {
			return n
		}
		if a := normalize.Text(raw); a != "" {
			return a
		}
	}
	if a := normalize.Text(firstMatch(body, creatorRe)); a != "" {
		return a
	}
	return normalize.Text(firstMatch(body, nameRe))
}

// extractImage resolves the story image: embedded media reference first, then
// thumbnail, then enclosure, then an <img> sniffed out of the description.
func extractImage(body string) string {
	for _, re := range []*regexp.Regexp{mediaContentRe, mediaThumbnailRe, enclosureRe} {
		if m := re.FindStringSubmatch(body); m != nil {
			return strings.TrimSpace(html.UnescapeString(m[1]))
		}
	}
	return sniffImage(extractBody(body))
}

// sniffImage pulls the first <img src> out of an HTML fragment. The fragment
// is usually entity-escaped inside the feed, so it is unescaped first.
func sniffImage(fragment string) string {
	if fragment == "" {
		return ""
	}
	fragment = cdataRe.ReplaceAllString(fragment, "$1")
	fragment = html.UnescapeString(fragment)
	if !strings.Contains(fragment, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img").First().Attr("src")
	return strings.TrimSpace(src)
}
