// Package sources is the static registry of feed endpoints, grouped into the
// fixed topic categories, plus the authority tiers used by clustering and
// ranking.
package sources

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newsmesh/newsmesh/internal/news"
)

// Source is one feed endpoint.
type Source struct {
	Name     string        `yaml:"name"`
	URL      string        `yaml:"url"`
	Category news.Category `yaml:"category"`
}

// Default is the built-in registry. A YAML override can replace it at
// startup, see Load.
var Default = []Source{
	// Crypto
	{Name: "CoinDesk", URL: "https://www.coindesk.com/arc/outboundfeeds/rss/", Category: news.CategoryCrypto},
	{Name: "CoinTelegraph", URL: "https://cointelegraph.com/rss", Category: news.CategoryCrypto},
	{Name: "Decrypt", URL: "https://decrypt.co/feed", Category: news.CategoryCrypto},
	{Name: "Bitcoin Magazine", URL: "https://bitcoinmagazine.com/.rss/full/", Category: news.CategoryCrypto},
	{Name: "The Block", URL: "https://www.theblock.co/rss.xml", Category: news.CategoryCrypto},
	{Name: "CryptoSlate", URL: "https://cryptoslate.com/feed/", Category: news.CategoryCrypto},
	{Name: "r/CryptoCurrency", URL: "https://www.reddit.com/r/CryptoCurrency/.rss", Category: news.CategoryCrypto},

	// Finance
	{Name: "CNBC Finance", URL: "https://www.cnbc.com/id/10000664/device/rss/rss.html", Category: news.CategoryFinance},
	{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories", Category: news.CategoryFinance},
	{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex", Category: news.CategoryFinance},
	{Name: "Investing.com", URL: "https://www.investing.com/rss/news.rss", Category: news.CategoryFinance},
	{Name: "Seeking Alpha", URL: "https://seekingalpha.com/market_currents.xml", Category: news.CategoryFinance},
	{Name: "Financial Times", URL: "https://www.ft.com/rss/home", Category: news.CategoryFinance},
	{Name: "r/stocks", URL: "https://www.reddit.com/r/stocks/.rss", Category: news.CategoryFinance},

	// Tech
	{Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Category: news.CategoryTech},
	{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: news.CategoryTech},
	{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: news.CategoryTech},
	{Name: "Wired", URL: "https://www.wired.com/feed/rss", Category: news.CategoryTech},
	{Name: "Engadget", URL: "https://www.engadget.com/rss.xml", Category: news.CategoryTech},
	{Name: "VentureBeat", URL: "https://venturebeat.com/feed/", Category: news.CategoryTech},
	{Name: "Hacker News", URL: "https://news.ycombinator.com/rss", Category: news.CategoryTech},

	// Sports
	{Name: "ESPN", URL: "https://www.espn.com/espn/rss/news", Category: news.CategorySports},
	{Name: "BBC Sport", URL: "https://feeds.bbci.co.uk/sport/rss.xml", Category: news.CategorySports},
	{Name: "CBS Sports", URL: "https://www.cbssports.com/rss/headlines/", Category: news.CategorySports},
	{Name: "Yahoo Sports", URL: "https://sports.yahoo.com/rss/", Category: news.CategorySports},
	{Name: "Sky Sports", URL: "https://www.skysports.com/rss/12040", Category: news.CategorySports},

	// Science
	{Name: "Science Daily", URL: "https://www.sciencedaily.com/rss/all.xml", Category: news.CategoryScience},
	{Name: "NASA", URL: "https://www.nasa.gov/feed/", Category: news.CategoryScience},
	{Name: "Phys.org", URL: "https://phys.org/rss-feed/", Category: news.CategoryScience},
	{Name: "New Scientist", URL: "https://www.newscientist.com/feed/home/", Category: news.CategoryScience},
	{Name: "Space.com", URL: "https://www.space.com/feeds/all", Category: news.CategoryScience},

	// World
	{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: news.CategoryWorld},
	{Name: "Reuters", URL: "https://www.reutersagency.com/feed/?best-topics=top-news", Category: news.CategoryWorld},
	{Name: "Al Jazeera", URL: "https://www.aljazeera.com/xml/rss/all.xml", Category: news.CategoryWorld},
	{Name: "The Guardian", URL: "https://www.theguardian.com/world/rss", Category: news.CategoryWorld},
	{Name: "AP News", URL: "https://rsshub.app/apnews/topics/ap-top-news", Category: news.CategoryWorld},
	{Name: "r/worldnews", URL: "https://www.reddit.com/r/worldnews/.rss", Category: news.CategoryWorld},
}

// authorityTiers ranks a source's editorial weight, 1 (default) to 3.
var authorityTiers = map[string]int{
	"Reuters":          3,
	"AP News":          3,
	"BBC News":         3,
	"Financial Times":  3,
	"CNBC Finance":     3,
	"The Guardian":     2,
	"Al Jazeera":       2,
	"MarketWatch":      2,
	"Yahoo Finance":    2,
	"CoinDesk":         2,
	"The Block":        2,
	"CoinTelegraph":    2,
	"TechCrunch":       2,
	"The Verge":        2,
	"Ars Technica":     2,
	"Wired":            2,
	"ESPN":             2,
	"BBC Sport":        2,
	"Science Daily":    2,
	"NASA":             3,
	"New Scientist":    2,
	"Bitcoin Magazine": 1,
}

// Tier returns the authority tier for a source name, defaulting to 1.
func Tier(source string) int {
	if t, ok := authorityTiers[source]; ok {
		return t
	}
	return 1
}

// Registry holds the active source list.
type Registry struct {
	sources []Source
}

// NewRegistry returns a registry over the built-in source list.
func NewRegistry() *Registry {
	return &Registry{sources: Default}
}

// NewRegistryFrom returns a registry over an explicit source list.
func NewRegistryFrom(srcs []Source) *Registry {
	return &Registry{sources: srcs}
}

type registryFile struct {
	Sources []Source `yaml:"sources"`
}

// Load reads a YAML source list from path. A missing file falls back to the
// built-in registry; a malformed one is an error.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRegistry(), nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg registryFile
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("%s: no sources defined", path)
	}
	for _, s := range cfg.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("%s: source entries need both name and url", path)
		}
		if _, ok := news.ParseCategory(string(s.Category)); !ok {
			return nil, fmt.Errorf("%s: unknown category %q for source %s", path, s.Category, s.Name)
		}
	}
	return &Registry{sources: cfg.Sources}, nil
}

// ForCategory returns the sources in one category; CategoryAll returns the
// whole registry.
func (r *Registry) ForCategory(cat news.Category) []Source {
	if cat == news.CategoryAll {
		out := make([]Source, len(r.sources))
		copy(out, r.sources)
		return out
	}
	var out []Source
	for _, s := range r.sources {
		if strings.EqualFold(string(s.Category), string(cat)) {
			out = append(out, s)
		}
	}
	return out
}

// All returns every registered source.
func (r *Registry) All() []Source {
	return r.ForCategory(news.CategoryAll)
}
