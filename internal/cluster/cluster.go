// Package cluster groups related stories into one-primary-plus-related
// clusters. The pass is greedy and order-dependent on purpose: stories are
// visited newest first and an assignment is never revisited.
package cluster

import (
	"math"
	"sort"
	"strings"

	"github.com/newsmesh/newsmesh/internal/news"
	"github.com/newsmesh/newsmesh/internal/sources"
	"github.com/newsmesh/newsmesh/internal/topics"
)

const (
	// similarityThreshold is a hard cutoff, not a ranking.
	similarityThreshold = 0.4

	entityWeight = 0.6
	titleWeight  = 0.4

	// Near-simultaneous stories tie-break on authority tier instead of
	// timestamp, so the more authoritative coverage anchors the cluster.
	tieWindowMillis = int64(60 * 60 * 1000)
)

// Similarity scores pairwise story relatedness: shared entity count
// (case-insensitive, a count, not a ratio) plus Jaccard overlap of title
// words longer than three characters. Two shared long entities can dominate
// the score even with low word overlap.
func Similarity(a, b news.Story) float64 {
	shared := sharedEntities(a.Title, b.Title)
	jaccard := titleJaccard(a.Title, b.Title)
	return entityWeight*float64(shared) + titleWeight*jaccard
}

func sharedEntities(titleA, titleB string) int {
	setA := make(map[string]struct{})
	for _, e := range topics.Entities(titleA) {
		setA[strings.ToLower(e)] = struct{}{}
	}
	count := 0
	seen := make(map[string]struct{})
	for _, e := range topics.Entities(titleB) {
		key := strings.ToLower(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := setA[key]; ok {
			count++
		}
	}
	return count
}

func titleWords(title string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, `.,:;!?"'()[]`)
		if len(w) > 3 {
			words[w] = struct{}{}
		}
	}
	return words
}

func titleJaccard(titleA, titleB string) float64 {
	a := titleWords(titleA)
	b := titleWords(titleB)
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Build runs the single greedy pass over the story set and returns the
// clusters in discovery order. Stories with no extracted topics always end
// up as singletons: the topic-overlap gate can never pass for them.
func Build(stories []news.Story) []news.Cluster {
	ordered := make([]news.Story, len(stories))
	copy(ordered, stories)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if math.Abs(float64(a.Timestamp-b.Timestamp)) <= float64(tieWindowMillis) {
			ta, tb := sources.Tier(a.Source), sources.Tier(b.Source)
			if ta != tb {
				return ta > tb
			}
		}
		return a.Timestamp > b.Timestamp
	})

	labels := make([][]string, len(ordered))
	for i, s := range ordered {
		labels[i] = topics.Labels(s.Title)
	}

	assigned := make([]bool, len(ordered))
	var clusters []news.Cluster

	for i, main := range ordered {
		if assigned[i] {
			continue
		}
		assigned[i] = true

		c := news.Cluster{
			Main:     main,
			Category: main.Category,
			Tags:     labels[i],
		}
		usedSources := map[string]struct{}{main.Source: {}}

		for j := i + 1; j < len(ordered); j++ {
			if assigned[j] {
				continue
			}
			candidate := ordered[j]
			if candidate.Category != main.Category {
				continue
			}
			if _, taken := usedSources[candidate.Source]; taken {
				continue
			}
			if Similarity(main, candidate) <= similarityThreshold {
				continue
			}
			if !topics.Overlap(labels[i], labels[j]) {
				continue
			}
			c.Related = append(c.Related, candidate)
			usedSources[candidate.Source] = struct{}{}
			assigned[j] = true
		}

		clusters = append(clusters, c)
	}
	return clusters
}
