package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/pkg/fn"
)

type fakeSummarizer struct {
	failFor map[int64]bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, l domain.RawListing) fn.Result[string] {
	if f.failFor[l.ID] {
		return fn.Err[string](domain.ErrNoSummary)
	}
	return fn.Ok("summary of " + l.Title)
}

type fakeIndex struct {
	added  map[string]domain.Metadata
	texts  map[string]string
	failID string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{added: map[string]domain.Metadata{}, texts: map[string]string{}}
}

func (f *fakeIndex) Add(_ context.Context, id, text string, meta domain.Metadata) error {
	if id == f.failID {
		return errors.New("backend unreachable")
	}
	f.added[id] = meta
	f.texts[id] = text
	return nil
}

func corpus() []domain.RawListing {
	return []domain.RawListing{
		{ID: 10, Title: "Forest lodge", City: domain.City{Name: "Ramsar"}, URL: "/room/10"},
		{ID: 11, Title: "Sea villa", City: domain.City{Name: "Babolsar"}, URL: "/room/11"},
		{Title: "No-id cottage"},
	}
}

func TestRunBatchHappyPath(t *testing.T) {
	idx := newFakeIndex()
	p := New(Deps{Summarizer: &fakeSummarizer{}, Index: idx})

	report, processed, err := p.RunBatch(context.Background(), corpus())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if report.Ingested != 3 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	if len(processed) != 3 {
		t.Fatalf("processed = %d", len(processed))
	}
	if _, ok := idx.added["room_10"]; !ok {
		t.Error("record id should drive the index id")
	}
	if _, ok := idx.added["room_2"]; !ok {
		t.Error("id-less record should use its corpus position")
	}
	if idx.texts["room_10"] != "summary of Forest lodge" {
		t.Errorf("indexed text = %q", idx.texts["room_10"])
	}
}

func TestRunBatchSkipsFailedSummaries(t *testing.T) {
	idx := newFakeIndex()
	p := New(Deps{Summarizer: &fakeSummarizer{failFor: map[int64]bool{10: true}}, Index: idx})

	report, _, err := p.RunBatch(context.Background(), corpus())
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if report.Ingested != 2 || report.Skipped != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, ok := idx.added["room_10"]; ok {
		t.Error("failed record must not produce a partial index entry")
	}
}

func TestRunBatchSkipsIndexFailures(t *testing.T) {
	idx := newFakeIndex()
	idx.failID = "room_11"
	p := New(Deps{Summarizer: &fakeSummarizer{}, Index: idx})

	report, _, err := p.RunBatch(context.Background(), corpus())
	if err != nil {
		t.Fatalf("one bad record must not abort the batch: %v", err)
	}
	if report.Skipped != 1 || report.Ingested != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestRunBatchSkipsInvalidRecords(t *testing.T) {
	idx := newFakeIndex()
	p := New(Deps{Summarizer: &fakeSummarizer{}, Index: idx})

	report, _, err := p.RunBatch(context.Background(), []domain.RawListing{{ID: 5}})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if report.Skipped != 1 || len(idx.added) != 0 {
		t.Errorf("invalid record should be skipped: %+v", report)
	}
}

func TestRunBatchIdempotentIDs(t *testing.T) {
	first := newFakeIndex()
	p1 := New(Deps{Summarizer: &fakeSummarizer{}, Index: first})
	p1.RunBatch(context.Background(), corpus())

	second := newFakeIndex()
	p2 := New(Deps{Summarizer: &fakeSummarizer{}, Index: second})
	p2.RunBatch(context.Background(), corpus())

	if len(first.added) != len(second.added) {
		t.Fatalf("entry counts differ: %d vs %d", len(first.added), len(second.added))
	}
	for id, meta := range first.added {
		got, ok := second.added[id]
		if !ok {
			t.Errorf("second run missing id %s", id)
			continue
		}
		if got != meta {
			t.Errorf("metadata differs for %s:\n%+v\n%+v", id, meta, got)
		}
	}
}

func TestRunBatchRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := New(Deps{Summarizer: &fakeSummarizer{}, Index: newFakeIndex()})
	_, _, err := p.RunBatch(ctx, corpus())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestStableID(t *testing.T) {
	if got := StableID(4, domain.RawListing{ID: 99}); got != "room_99" {
		t.Errorf("got %q", got)
	}
	if got := StableID(4, domain.RawListing{}); got != "room_4" {
		t.Errorf("got %q", got)
	}
}
