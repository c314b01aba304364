// Package news holds the core data model shared across the pipeline:
// stories, clusters and the cached payload served to clients.
package news

import (
	"strings"
	"time"
)

// Category is one of the fixed topic sections the registry is organized into.
type Category string

const (
	CategoryCrypto  Category = "Crypto"
	CategoryFinance Category = "Finance"
	CategoryTech    Category = "Tech"
	CategorySports  Category = "Sports"
	CategoryScience Category = "Science"
	CategoryWorld   Category = "World"

	// CategoryAll is the aggregate pseudo-category spanning every section.
	CategoryAll Category = "All"
)

// Categories lists the real sections, excluding the All aggregate.
var Categories = []Category{
	CategoryCrypto,
	CategoryFinance,
	CategoryTech,
	CategorySports,
	CategoryScience,
	CategoryWorld,
}

// ParseCategory maps a request parameter onto a known category.
func ParseCategory(s string) (Category, bool) {
	if strings.EqualFold(s, string(CategoryAll)) || s == "" {
		return CategoryAll, true
	}
	for _, c := range Categories {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// CacheKey is the storage key for a category's cached payload.
func (c Category) CacheKey() string {
	return "news-" + strings.ToLower(string(c))
}

// Story is one normalized article from one source. Link is the sole
// deduplication key and must be non-empty.
type Story struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"publishedAt"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Source      string    `json:"source"`
	Category    Category  `json:"category"`
	Timestamp   int64     `json:"timestamp"` // epoch ms, derived from PublishedAt
}

// Cluster is one reported event: a representative story plus corroborating
// coverage from other sources. Every story in Related comes from a source
// distinct from Main's and from every other member.
type Cluster struct {
	Main       Story    `json:"main"`
	Related    []Story  `json:"related"`
	Category   Category `json:"category"`
	Tags       []string `json:"tags"`
	Importance float64  `json:"importance"`
}

// Stories returns main plus related in order.
func (c Cluster) Stories() []Story {
	out := make([]Story, 0, 1+len(c.Related))
	out = append(out, c.Main)
	out = append(out, c.Related...)
	return out
}

// Payload is the ranked result persisted per category and returned to
// clients.
type Payload struct {
	Clusters    []Cluster `json:"clusters"`
	LastUpdated time.Time `json:"lastUpdated"`
}
