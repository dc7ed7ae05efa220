// Package ingest turns the raw listing corpus into vector index entries:
// validate, summarize, build metadata, upsert. Records are processed one at
// a time with a fixed inter-record pause because the summarization and
// embedding providers are rate limited, and ordered processing keeps
// position-derived ids deterministic.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/pkg/fn"
	"github.com/stayscout/stayscout/pkg/resilience"
)

// Indexer is the slice of the vector store the pipeline writes to.
type Indexer interface {
	Add(ctx context.Context, id, text string, meta domain.Metadata) error
}

// Summarizer produces the synopsis for one record.
type Summarizer interface {
	Summarize(ctx context.Context, l domain.RawListing) fn.Result[string]
}

// ListingSaver optionally mirrors listings into the city graph. Graph
// failures never fail the record; the index is the source of truth.
type ListingSaver interface {
	SaveListing(ctx context.Context, l domain.RawListing) error
}

// Deps holds the external dependencies for the pipeline.
type Deps struct {
	Summarizer Summarizer
	Index      Indexer
	Graph      ListingSaver        // optional
	Breaker    *resilience.Breaker // optional, guards summarizer calls
	Limiter    *resilience.Limiter // optional, paces records
	Logger     *slog.Logger
}

// Pipeline ingests raw listings sequentially.
type Pipeline struct {
	deps  Deps
	log   *slog.Logger
	stage fn.Stage[positioned, Entry]
}

// positioned carries a record with its corpus position for id assignment.
type positioned struct {
	idx     int
	listing domain.RawListing
}

// New wires the per-record stage chain: validate → summarize → store.
func New(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{deps: deps, log: log}

	summarize := deps.Summarizer.Summarize
	sumStage := fn.Stage[domain.RawListing, string](summarize)
	if deps.Breaker != nil {
		sumStage = resilience.BreakerStage(deps.Breaker, sumStage)
	}

	validate := func(_ context.Context, in positioned) fn.Result[positioned] {
		if err := domain.ValidateRawListing(in.listing); err != nil {
			return fn.Err[positioned](err)
		}
		return fn.Ok(in)
	}

	build := func(ctx context.Context, in positioned) fn.Result[Entry] {
		r := sumStage(ctx, in.listing)
		if r.IsErr() {
			_, err := r.Unwrap()
			return fn.Err[Entry](err)
		}
		summary, _ := r.Unwrap()
		fallback := "room_" + strconv.Itoa(in.idx)
		return fn.Ok(Entry{
			ID:      StableID(in.idx, in.listing),
			Listing: in.listing,
			Summary: summary,
			Meta:    domain.MetadataFromListing(in.listing, fallback),
		})
	}

	store := func(ctx context.Context, e Entry) fn.Result[Entry] {
		if err := deps.Index.Add(ctx, e.ID, e.Summary, e.Meta); err != nil {
			return fn.Err[Entry](fmt.Errorf("index %s: %w", e.ID, err))
		}
		if deps.Graph != nil {
			if err := deps.Graph.SaveListing(ctx, e.Listing); err != nil {
				log.Warn("graph save failed", "id", e.ID, "err", err)
			}
		}
		return fn.Ok(e)
	}

	p.stage = fn.Then(
		fn.TracedStage("ingest.prepare", fn.Then(fn.Stage[positioned, positioned](validate), fn.Stage[positioned, Entry](build))),
		fn.TracedStage("ingest.store", fn.Stage[Entry, Entry](store)),
	)
	return p
}

// StableID derives the index id for a record: the original identifier when
// the record carries one, otherwise its corpus position. Re-running the same
// corpus under this rule reproduces the same ids.
func StableID(idx int, l domain.RawListing) string {
	if l.ID != 0 {
		return "room_" + strconv.FormatInt(l.ID, 10)
	}
	return "room_" + strconv.Itoa(idx)
}

// IngestOne runs one record through the pipeline.
func (p *Pipeline) IngestOne(ctx context.Context, idx int, l domain.RawListing) fn.Result[Entry] {
	return p.stage(ctx, positioned{idx: idx, listing: l})
}

// RunBatch ingests the corpus in order. A failing record is logged and
// skipped, never aborting the batch; the report counts both outcomes.
// The optional limiter enforces the inter-record pause.
func (p *Pipeline) RunBatch(ctx context.Context, listings []domain.RawListing) (Report, []ProcessedItem, error) {
	report := Report{Total: len(listings)}
	processed := make([]ProcessedItem, 0, len(listings))

	for idx, l := range listings {
		if err := ctx.Err(); err != nil {
			return report, processed, err
		}
		if p.deps.Limiter != nil {
			if err := p.deps.Limiter.Wait(ctx); err != nil {
				return report, processed, err
			}
		}

		r := p.IngestOne(ctx, idx, l)
		if r.IsErr() {
			_, err := r.Unwrap()
			p.log.Error("ingest: record skipped", "position", idx, "listing_id", l.ID, "err", err)
			report.Skipped++
			continue
		}

		e, _ := r.Unwrap()
		report.Ingested++
		processed = append(processed, ProcessedItem{Original: l, Summary: e.Summary, Metadata: e.Meta})
		p.log.Info("ingest: record indexed", "id", e.ID, "city", e.Meta.City)
	}
	return report, processed, nil
}
