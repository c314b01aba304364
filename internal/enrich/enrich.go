// Package enrich augments clusters with richer topic tags via Gemini. The
// adapter is strictly best-effort: missing credentials, quota exhaustion or
// malformed model output all degrade to returning the input unchanged.
package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/newsmesh/newsmesh/internal/logger"
	"github.com/newsmesh/newsmesh/internal/metrics"
	"github.com/newsmesh/newsmesh/internal/news"
	"github.com/newsmesh/newsmesh/internal/ratelimit"
	"github.com/newsmesh/newsmesh/internal/retry"
)

const (
	modelName = "gemini-1.5-flash"
	batchSize = 20
	maxTags   = 5
)

// Enricher wraps the Gemini client. A nil client means enrichment is
// disabled and Enrich becomes the identity function.
type Enricher struct {
	client *genai.Client
	budget *ratelimit.Budget
}

// New builds the enricher. An empty API key yields a disabled enricher, not
// an error: the pipeline must keep serving unenriched clusters.
func New(ctx context.Context, apiKey string, maxRequests int) (*Enricher, error) {
	if apiKey == "" {
		logger.Warn("GEMINI_API_KEY not set, enrichment disabled")
		return &Enricher{budget: ratelimit.NewBudget(0)}, nil
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Enricher{client: client, budget: ratelimit.NewBudget(maxRequests)}, nil
}

// Enabled reports whether a real model backs this enricher.
func (e *Enricher) Enabled() bool {
	return e != nil && e.client != nil
}

func (e *Enricher) Close() {
	if e != nil && e.client != nil {
		e.client.Close()
	}
}

// Enrich re-tags the clusters in batches. Any per-batch failure leaves that
// batch's clusters untouched; total failure returns the input unchanged.
func (e *Enricher) Enrich(ctx context.Context, clusters []news.Cluster) []news.Cluster {
	if !e.Enabled() || len(clusters) == 0 {
		return clusters
	}

	out := make([]news.Cluster, len(clusters))
	copy(out, clusters)

	for start := 0; start < len(out); start += batchSize {
		end := start + batchSize
		if end > len(out) {
			end = len(out)
		}
		if !e.budget.Allow() {
			break
		}
		if err := e.enrichBatch(ctx, out[start:end]); err != nil {
			logger.Warn("enrichment batch failed", "start", start, "error", err)
			metrics.Global.IncrementEnrichmentsFailed()
			continue
		}
		metrics.Global.IncrementEnrichmentsOK()
	}
	return out
}

func (e *Enricher) enrichBatch(ctx context.Context, batch []news.Cluster) error {
	if err := e.budget.Use(); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("You are tagging news headlines. For each numbered headline below, reply with one line in the form\n")
	b.WriteString("N: tag1, tag2, tag3\n")
	b.WriteString("using two to five short topical tags per headline. No other text.\n\n")
	for i, c := range batch {
		fmt.Fprintf(&b, "%d: %s\n", i+1, c.Main.Title)
	}

	model := e.client.GenerativeModel(modelName)

	var resp *genai.GenerateContentResponse
	err := retry.Do(ctx, retry.Config{MaxAttempts: 2, Delay: 2 * time.Second}, func() error {
		var genErr error
		resp, genErr = model.GenerateContent(ctx, genai.Text(b.String()))
		return genErr
	})
	if err != nil {
		return err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("empty model response")
	}

	text := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	applyTags(batch, text)
	return nil
}

var tagLineRe = regexp.MustCompile(`^\s*(\d+)\s*[:.)-]\s*(.+)$`)

// applyTags parses "N: tag, tag" lines and replaces the matching cluster's
// tags. Lines that don't parse, or indexes out of range, are skipped; a
// cluster the model skipped keeps its heuristic tags.
func applyTags(batch []news.Cluster, response string) {
	for _, line := range strings.Split(response, "\n") {
		m := tagLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > len(batch) {
			continue
		}
		tags := splitTags(m[2])
		if len(tags) > 0 {
			batch[idx-1].Tags = tags
		}
	}
}

func splitTags(s string) []string {
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		tag := strings.Trim(strings.TrimSpace(p), `"'.`)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, tag)
		if len(tags) >= maxTags {
			break
		}
	}
	return tags
}
