package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nats-io/nats.go"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/pkg/natsutil"
)

// CollectorSink buffers crawled records in memory for a corpus file dump.
type CollectorSink struct {
	listings []domain.RawListing
}

func (s *CollectorSink) Emit(_ context.Context, l domain.RawListing) error {
	s.listings = append(s.listings, l)
	return nil
}

// Listings returns everything emitted so far.
func (s *CollectorSink) Listings() []domain.RawListing {
	return s.listings
}

// WriteFile dumps the collected records as a JSON array, the corpus format
// the batch ingester reads.
func (s *CollectorSink) WriteFile(path string) error {
	data, err := json.MarshalIndent(s.listings, "", "  ")
	if err != nil {
		return fmt.Errorf("crawler: marshal corpus: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("crawler: write corpus: %w", err)
	}
	return nil
}

// NATSSink publishes each record to a subject for streamed ingestion.
type NATSSink struct {
	Conn    *nats.Conn
	Subject string
}

func (s *NATSSink) Emit(ctx context.Context, l domain.RawListing) error {
	return natsutil.Publish(ctx, s.Conn, s.Subject, l)
}

// TeeSink fans each record out to several sinks, stopping on the first error.
type TeeSink []Sink

func (t TeeSink) Emit(ctx context.Context, l domain.RawListing) error {
	for _, s := range t {
		if err := s.Emit(ctx, l); err != nil {
			return err
		}
	}
	return nil
}
