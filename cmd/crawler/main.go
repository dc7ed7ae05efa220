// Command crawler pulls listing records from the booking site's search and
// detail APIs. Output goes to a corpus file for batch ingestion, to NATS for
// streamed ingestion, or both.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/stayscout/stayscout/engine/crawler"
	"github.com/stayscout/stayscout/engine/ingest"
)

func main() {
	var (
		locations = flag.String("locations", "", "comma-separated location ids to crawl")
		pages     = flag.Int("pages", 5, "search pages per location")
		perPage   = flag.Int("per-page", 18, "rooms per search page")
		pause     = flag.Duration("pause", 500*time.Millisecond, "pause between requests")
		baseURL   = flag.String("base-url", crawler.DefaultBaseURL, "booking site API origin")
		outPath   = flag.String("out", "room_details.json", "corpus output file (empty disables)")
		publish   = flag.Bool("publish", false, "publish records to NATS for streamed ingestion")
		natsURL   = flag.String("nats", nats.DefaultURL, "NATS server URL")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	locs := splitLocations(*locations)
	if len(locs) == 0 {
		logger.Error("at least one location id is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sinks crawler.TeeSink
	collector := &crawler.CollectorSink{}
	if *outPath != "" {
		sinks = append(sinks, collector)
	}
	if *publish {
		nc, err := nats.Connect(*natsURL, nats.Name("stayscout-crawler"))
		if err != nil {
			logger.Error("nats connect failed", "url", *natsURL, "err", err)
			os.Exit(1)
		}
		defer nc.Drain()
		sinks = append(sinks, &crawler.NATSSink{Conn: nc, Subject: ingest.SubjectRawListings})
	}
	if len(sinks) == 0 {
		logger.Error("no output configured: set -out or -publish")
		os.Exit(1)
	}

	c := crawler.New(crawler.Options{
		BaseURL: *baseURL,
		PerPage: *perPage,
		Pages:   *pages,
		Pause:   *pause,
	}, logger)

	start := time.Now()
	n, err := c.Run(ctx, locs, sinks)
	if err != nil {
		logger.Error("crawl aborted", "err", err, "emitted", n)
	}
	logger.Info("crawl finished", "locations", len(locs), "records", n,
		"elapsed", time.Since(start).Round(time.Second))

	if *outPath != "" && len(collector.Listings()) > 0 {
		if err := collector.WriteFile(*outPath); err != nil {
			logger.Error("corpus write failed", "path", *outPath, "err", err)
			os.Exit(1)
		}
		logger.Info("corpus written", "path", *outPath, "records", len(collector.Listings()))
	}
	if err != nil {
		os.Exit(1)
	}
}

func splitLocations(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
