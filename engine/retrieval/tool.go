// Package retrieval exposes the vector index to the agent as a callable
// tool, reshaping raw hits into the listing-result schema.
package retrieval

import (
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/engine/semantic"
)

const (
	// ToolName is the function name declared to the model.
	ToolName = "query_similar_rooms"

	toolDescription = "Search for lodges and villas based on user preferences"

	// DefaultSiteOrigin prefixes the relative listing URLs stored in metadata.
	DefaultSiteOrigin = "https://jajiga.com"
)

// Searcher is the slice of the vector store the tool reads from.
type Searcher interface {
	Query(ctx context.Context, text string, k int) ([]semantic.Hit, error)
}

// Options configures the tool.
type Options struct {
	SiteOrigin string
	TopK       int
}

// Tool answers accommodation queries from the index.
type Tool struct {
	index  Searcher
	opts   Options
	logger *slog.Logger
}

// New creates the retrieval tool.
func New(index Searcher, opts Options, logger *slog.Logger) *Tool {
	if opts.SiteOrigin == "" {
		opts.SiteOrigin = DefaultSiteOrigin
	}
	if opts.TopK <= 0 {
		opts.TopK = semantic.DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tool{index: index, opts: opts, logger: logger}
}

// Declaration returns the tool's call signature for the chat request: one
// required string parameter, "query".
func (t *Tool) Declaration() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolName,
			Description: toolDescription,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query describing the desired accommodation",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Retrieve searches the index and reshapes hits into listing results. A
// failing backend yields an empty sequence, logged but never raised: "no
// results" is a valid outcome for the caller either way.
func (t *Tool) Retrieve(ctx context.Context, query string) []domain.ListingResult {
	hits, err := t.index.Query(ctx, query, t.opts.TopK)
	if err != nil {
		t.logger.Warn("retrieval: index query failed", "err", err)
		return []domain.ListingResult{}
	}

	results := make([]domain.ListingResult, len(hits))
	for i, h := range hits {
		results[i] = t.resultFromHit(h)
	}
	return results
}

func (t *Tool) resultFromHit(h semantic.Hit) domain.ListingResult {
	return domain.ListingResult{
		Title:       valueOr(h.Meta.Title, domain.SentinelUnknown),
		Type:        classify(h.Summary),
		Description: h.Summary,
		Price:       valueOr(h.Meta.MinPrice, domain.SentinelUnknown),
		City:        valueOr(h.Meta.City, domain.SentinelUnknown),
		// The index payload does not carry these three fields, so they
		// always fall back; kept for schema compatibility with the front end.
		Rating:          domain.SentinelUnknown,
		ReviewsCount:    domain.SentinelUnknown,
		ImageURL:        domain.SentinelUnknown,
		WebURL:          t.opts.SiteOrigin + valueOr(h.Meta.URL, domain.SentinelUnknown),
		SimilarityScore: h.Score,
	}
}

// classify is a crude keyword heuristic on the (possibly non-English)
// summary text, inherited from the data. Everything without "lodge" in it
// is a villa.
func classify(summary string) string {
	if strings.Contains(strings.ToLower(summary), "lodge") {
		return "lodge"
	}
	return "villa"
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
