package feedparse

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/newsmesh/newsmesh/internal/news"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParse_RSSItem(t *testing.T) {
	raw := `<?xml version="1.0"?>
	<rss><channel>
	<item>
		<title><![CDATA[Bitcoin Hits New High - CoinDesk]]></title>
		<link>https://example.com/btc</link>
		<pubDate>Tue, 10 Mar 2026 09:30:00 +0000</pubDate>
		<description><![CDATA[Price &amp; volume surge. <img src="https://img.example/a.jpg">]]></description>
		<dc:creator>Jane Doe</dc:creator>
	</item>
	</channel></rss>`

	stories := Parse(raw, "CoinDesk", news.CategoryCrypto, testNow)
	if len(stories) != 1 {
		t.Fatalf("got %d stories, want 1", len(stories))
	}
	s := stories[0]
	if s.Title != "Bitcoin Hits New High" {
		t.Errorf("title = %q (source suffix should be stripped)", s.Title)
	}
	if s.Link != "https://example.com/btc" {
		t.Errorf("link = %q", s.Link)
	}
	if s.Author != "Jane Doe" {
		t.Errorf("author = %q", s.Author)
	}
	if s.Description != "Price & volume surge." {
		t.Errorf("description = %q", s.Description)
	}
	if s.ImageURL != "https://img.example/a.jpg" {
		t.Errorf("image = %q (should be sniffed from description)", s.ImageURL)
	}
	want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	if s.Timestamp != want.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", s.Timestamp, want.UnixMilli())
	}
	if s.Source != "CoinDesk" || s.Category != news.CategoryCrypto {
		t.Errorf("source/category = %q/%q", s.Source, s.Category)
	}
}

func TestParse_AtomEntry(t *testing.T) {
	raw := `<feed xmlns="http://www.w3.org/2005/Atom">
	<entry>
		<title>Markets Rally on Rate News</title>
		<link href="https://example.com/rally" rel="alternate"/>
		<updated>2026-03-10T08:00:00Z</updated>
		<summary>Stocks climbed across the board.</summary>
		<author><name>Sam Smith</name></author>
	</entry>
	</feed>`

	stories := Parse(raw, "MarketWatch", news.CategoryFinance, testNow)
	if len(stories) != 1 {
		t.Fatalf("got %d stories, want 1", len(stories))
	}
	s := stories[0]
	if s.Link != "https://example.com/rally" {
		t.Errorf("link = %q (Atom href attribute)", s.Link)
	}
	if s.Author != "Sam Smith" {
		t.Errorf("author = %q", s.Author)
	}
	if s.Description != "Stocks climbed across the board." {
		t.Errorf("description = %q", s.Description)
	}
	want := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	if s.Timestamp != want.UnixMilli() {
		t.Errorf("timestamp = %d, want %d", s.Timestamp, want.UnixMilli())
	}
}

func TestParse_ImagePriority(t *testing.T) {
	item := func(extra string) string {
		return `<item><title>A Story</title><link>https://e.com/x</link>` + extra +
			`<description>&lt;img src="https://img.example/desc.jpg"&gt;</description></item>`
	}
	cases := []struct {
		name  string
		extra string
		want  string
	}{
		{"media content wins", `<media:content url="https://img.example/m.jpg"/><media:thumbnail url="https://img.example/t.jpg"/>`, "https://img.example/m.jpg"},
		{"thumbnail over enclosure", `<media:thumbnail url="https://img.example/t.jpg"/><enclosure url="https://img.example/e.jpg" type="image/jpeg"/>`, "https://img.example/t.jpg"},
		{"enclosure over description", `<enclosure url="https://img.example/e.jpg" type="image/jpeg"/>`, "https://img.example/e.jpg"},
		{"description img fallback", ``, "https://img.example/desc.jpg"},
	}
	for _, c := range cases {
		stories := Parse(item(c.extra), "X", news.CategoryTech, testNow)
		if len(stories) != 1 {
			t.Fatalf("%s: got %d stories", c.name, len(stories))
		}
		if stories[0].ImageURL != c.want {
			t.Errorf("%s: image = %q, want %q", c.name, stories[0].ImageURL, c.want)
		}
	}
}

func TestParse_DiscardsItemsMissingTitleOrLink(t *testing.T) {
	raw := `<rss><channel>
	<item><title>No Link Here</title></item>
	<item><link>https://e.com/no-title</link></item>
	<item><title>Complete</title><link>https://e.com/ok</link></item>
	</channel></rss>`

	stories := Parse(raw, "X", news.CategoryTech, testNow)
	if len(stories) != 1 || stories[0].Link != "https://e.com/ok" {
		t.Fatalf("got %+v, want only the complete item", stories)
	}
}

func TestParse_CapsAtTenItems(t *testing.T) {
	var b strings.Builder
	b.WriteString("<rss><channel>")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, `<item><title>Story %d</title><link>https://e.com/%d</link></item>`, i, i)
	}
	b.WriteString("</channel></rss>")

	stories := Parse(b.String(), "X", news.CategoryTech, testNow)
	if len(stories) != 10 {
		t.Fatalf("got %d stories, want 10", len(stories))
	}
	// Newest-appearing means document order: the first ten.
	if stories[0].Title != "Story 0" || stories[9].Title != "Story 9" {
		t.Errorf("unexpected selection: first %q last %q", stories[0].Title, stories[9].Title)
	}
}

func TestParse_UnparseableDateFallsBackToNow(t *testing.T) {
	raw := `<item><title>Odd Date</title><link>https://e.com/x</link><pubDate>whenever</pubDate></item>`
	stories := Parse(raw, "X", news.CategoryTech, testNow)
	if len(stories) != 1 {
		t.Fatalf("got %d stories", len(stories))
	}
	if stories[0].Timestamp != testNow.UnixMilli() {
		t.Errorf("timestamp = %d, want fetch time %d", stories[0].Timestamp, testNow.UnixMilli())
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	if got := Parse("not xml at all", "X", news.CategoryTech, testNow); len(got) != 0 {
		t.Errorf("got %d stories from junk input", len(got))
	}
}
