package ingest

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/pkg/fn"
	"github.com/stayscout/stayscout/pkg/natsutil"
)

const (
	// SubjectRawListings is the NATS subject the crawler publishes records to.
	SubjectRawListings = "listings.raw"
	// SubjectDLQ receives records the pipeline could not ingest.
	SubjectDLQ = "listings.raw.dlq"
)

// consumerRetry bounds retries for one streamed record; the batch path has
// no retries because re-running ingestion is the supported correction.
var consumerRetry = fn.RetryOpts{MaxAttempts: 3, InitialWait: time.Second, MaxWait: 10 * time.Second, Jitter: true}

// dlqMessage is published to the DLQ on final failure.
type dlqMessage struct {
	Listing domain.RawListing `json:"listing"`
	Error   string            `json:"error"`
}

// StartConsumer subscribes the pipeline to the crawler's subject. Streamed
// records have no corpus position, so only records carrying their own
// identifier are accepted; the rest go straight to the DLQ.
func (p *Pipeline) StartConsumer(nc *nats.Conn) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, SubjectRawListings, func(ctx context.Context, l domain.RawListing) {
		if l.ID == 0 {
			p.log.Warn("consumer: record without id", "title", l.Title)
			p.toDLQ(ctx, nc, l, "record has no identifier")
			return
		}

		r := fn.Retry(ctx, consumerRetry, func(ctx context.Context) fn.Result[Entry] {
			return p.IngestOne(ctx, 0, l)
		})
		if r.IsErr() {
			_, err := r.Unwrap()
			p.log.Error("consumer: record failed", "listing_id", l.ID, "err", err)
			p.toDLQ(ctx, nc, l, err.Error())
			return
		}

		e, _ := r.Unwrap()
		p.log.Info("consumer: record indexed", "id", e.ID)
	})
}

func (p *Pipeline) toDLQ(ctx context.Context, nc *nats.Conn, l domain.RawListing, reason string) {
	if err := natsutil.Publish(ctx, nc, SubjectDLQ, dlqMessage{Listing: l, Error: reason}); err != nil {
		p.log.Error("consumer: DLQ publish failed", "listing_id", l.ID, "err", err)
	}
}
