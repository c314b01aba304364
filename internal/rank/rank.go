// Package rank scores clusters by recency, source authority, breadth of
// corroboration and topical popularity, and orders them for display.
package rank

import (
	"sort"
	"strings"
	"time"

	"github.com/newsmesh/newsmesh/internal/news"
	"github.com/newsmesh/newsmesh/internal/sources"
)

const (
	recencyWeight   = 0.4
	authorityWeight = 0.3
	relatedBonus    = 0.05
	relatedCap      = 0.3
	trendingBonus   = 0.3
	baseline        = 0.1

	recencyHorizonHours = 24.0
	maxTier             = 3.0
)

// trendingKeywords marks stories whose coverage is currently hot regardless
// of cluster size. Matched case-insensitively against title+description.
var trendingKeywords = []string{
	"bitcoin",
	"federal reserve",
	"interest rate",
	"inflation",
	"openai",
	"chatgpt",
	"artificial intelligence",
	"election",
	"tesla",
	"nvidia",
	"earnings",
	"etf",
	"ukraine",
	"recession",
	"world cup",
}

// IsTrending reports whether a story's title+description hits the trending
// keyword list.
func IsTrending(s news.Story) bool {
	text := strings.ToLower(s.Title + " " + s.Description)
	for _, kw := range trendingKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Importance computes the cluster score. The result stays in (0, 1.7]:
// 0.4 + 0.3 + 0.3 + 0.3 + 0.1 at the maximum, baseline only at the floor.
func Importance(c news.Cluster, now time.Time) float64 {
	ageHours := float64(now.UnixMilli()-c.Main.Timestamp) / (60 * 60 * 1000)
	recency := 1 - ageHours/recencyHorizonHours
	if recency < 0 {
		recency = 0
	}
	if recency > 1 {
		recency = 1
	}

	authority := float64(sources.Tier(c.Main.Source)) / maxTier

	corroboration := relatedBonus * float64(len(c.Related))
	if corroboration > relatedCap {
		corroboration = relatedCap
	}

	popularity := 0.0
	if IsTrending(c.Main) {
		popularity = trendingBonus
	}

	return recencyWeight*recency + authorityWeight*authority + corroboration + popularity + baseline
}

// Apply scores every cluster and sorts descending by importance. The sort is
// stable: equal scores keep cluster discovery order.
func Apply(clusters []news.Cluster, now time.Time) []news.Cluster {
	for i := range clusters {
		clusters[i].Importance = Importance(clusters[i], now)
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].Importance > clusters[j].Importance
	})
	return clusters
}
