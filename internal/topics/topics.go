// Package topics is the best-effort entity and topic tagger. It is a
// lookup-table plus regex layer, not a model: capitalized words pass for
// entities, and a fixed keyword vocabulary activates topic labels.
package topics

import (
	"regexp"
	"strings"
)

// entityRe matches capitalized words longer than two characters. Individual
// words, not runs: near-duplicate headlines rarely agree on full phrases but
// reliably share the key capitalized terms.
var entityRe = regexp.MustCompile(`\b[A-Z][A-Za-z]{2,}\b`)

// vocabulary maps each topic label to its activation pattern, tested
// case-insensitively against the title. Order fixes the tag ordering.
var vocabulary = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"Cryptocurrency", regexp.MustCompile(`(?i)\b(bitcoin|btc|ethereum|eth|crypto\w*|blockchain|solana|defi|stablecoin|binance|coinbase|altcoin|token|nft|web3)\b`)},
	{"AI & Tech", regexp.MustCompile(`(?i)\b(ai|artificial intelligence|machine learning|deep learning|openai|chatgpt|gemini|llm|neural network|anthropic|copilot)\b`)},
	{"Markets", regexp.MustCompile(`(?i)\b(stocks?|market|markets|nasdaq|s&p|dow|wall street|trading|traders?|investors?|shares|bonds?|etf|fed|federal reserve|interest rates?|inflation|treasury|rate)\b`)},
	{"Regulation", regexp.MustCompile(`(?i)\b(sec|regulat\w*|lawsuit|antitrust|ban|banned|court|ruling|congress|senate|legislation|compliance|fine[ds]?|probe)\b`)},
	{"Earnings", regexp.MustCompile(`(?i)\b(earnings|revenue|profits?|quarterly|q[1-4]|guidance|forecast|beats?|misses)\b`)},
	{"Tech News", regexp.MustCompile(`(?i)\b(apple|google|microsoft|amazon|meta|nvidia|tesla|iphone|android|software|startup|chips?|semiconductors?|app|cloud)\b`)},
	{"Sports", regexp.MustCompile(`(?i)\b(nfl|nba|mlb|nhl|soccer|football|basketball|baseball|tennis|golf|olympics?|championship|playoffs?|league|cup|match)\b`)},
	{"Science", regexp.MustCompile(`(?i)\b(nasa|spacex|space|rocket|research(ers)?|study|scientists?|climate|physics|biology|quantum|telescope|vaccine|genome)\b`)},
	{"Entertainment", regexp.MustCompile(`(?i)\b(movie|film|music|celebrity|netflix|box office|album|hollywood|tv|streaming|concert|premiere)\b`)},
	{"Politics & World", regexp.MustCompile(`(?i)\b(president|election|war|ukraine|china|russia|white house|minister|parliament|government|sanctions|summit|nato|un)\b`)},
}

// Entities extracts candidate named entities from a title: capitalized words
// longer than two characters, deduplicated case-insensitively. Best effort,
// capitalized common words included.
func Entities(title string) []string {
	matches := entityRe.FindAllString(title, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		key := strings.ToLower(m)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Labels returns the deduplicated topic labels activated by the title. A
// title may activate zero, one or many topics.
func Labels(title string) []string {
	var out []string
	for _, v := range vocabulary {
		if v.pattern.MatchString(title) {
			out = append(out, v.label)
		}
	}
	return out
}

// Overlap reports whether two label sets share at least one topic.
func Overlap(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
