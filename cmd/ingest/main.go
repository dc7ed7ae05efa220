// Command ingest runs crawled listing records through the summarization
// pipeline into Qdrant (and optionally Neo4j). It runs in two modes: batch,
// which reads a corpus file and exits, and consume, which subscribes to the
// crawler's NATS subject and ingests records as they arrive.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	openai "github.com/sashabaranov/go-openai"

	"github.com/stayscout/stayscout/engine/graph"
	"github.com/stayscout/stayscout/engine/ingest"
	"github.com/stayscout/stayscout/engine/semantic"
	"github.com/stayscout/stayscout/engine/summarize"
	"github.com/stayscout/stayscout/pkg/metrics"
	"github.com/stayscout/stayscout/pkg/resilience"
)

var met = metrics.New()

var (
	mRecordsTotal = func(outcome string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("stayscout_ingest_records_total", "outcome", outcome), "Records processed by outcome")
	}
	mBatchDur = met.Histogram("stayscout_ingest_batch_duration_seconds", "Whole-corpus batch time", []float64{1, 10, 60, 300, 900, 1800, 3600})
)

func main() {
	var (
		corpusPath = flag.String("corpus", "room_details.json", "corpus file of raw listing records")
		outPath    = flag.String("out", "processed_data.json", "processed records output file (batch mode)")
		consume    = flag.Bool("consume", false, "subscribe to NATS instead of reading a corpus file")
		natsURL    = flag.String("nats", nats.DefaultURL, "NATS server URL (consume mode)")
		qdrantAddr = flag.String("qdrant", "localhost:6334", "Qdrant gRPC address")
		collection = flag.String("collection", "room_summaries", "Qdrant collection name")
		neo4jURL   = flag.String("neo4j", "", "Neo4j bolt URL (empty disables the graph mirror)")
		neo4jUser  = flag.String("neo4j-user", "neo4j", "Neo4j username")
		neo4jPass  = flag.String("neo4j-pass", "password", "Neo4j password")
		reset      = flag.Bool("reset", false, "drop and recreate the collection before ingesting")
		pause      = flag.Duration("pause", 500*time.Millisecond, "pause between records")
	)
	flag.Parse()

	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	met.ServeAsync(9091)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		logger.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	oai := openai.NewClient(apiKey)

	// Connect Qdrant
	embedder := semantic.NewOpenAIEmbedder(oai, "")
	index, err := semantic.New(*qdrantAddr, *collection, embedder, logger)
	if err != nil {
		logger.Error("qdrant connect failed", "err", err)
		os.Exit(1)
	}
	defer index.Close()

	if *reset {
		if err := index.DeleteCollection(ctx); err != nil {
			logger.Warn("collection drop failed", "err", err)
		}
	}
	if err := index.EnsureCollection(ctx, semantic.EmbedDims); err != nil {
		logger.Error("ensure collection failed", "err", err)
		os.Exit(1)
	}
	logger.Info("connected to Qdrant", "collection", *collection, "dims", semantic.EmbedDims)

	// Optional Neo4j mirror
	var saver ingest.ListingSaver
	if *neo4jURL != "" {
		driver, err := neo4j.NewDriverWithContext(*neo4jURL, neo4j.BasicAuth(*neo4jUser, *neo4jPass, ""))
		if err != nil {
			logger.Error("neo4j driver failed", "err", err)
			os.Exit(1)
		}
		defer driver.Close(ctx)
		saver = graph.New(driver)
		logger.Info("mirroring listings to Neo4j", "url", *neo4jURL)
	}

	pipeline := ingest.New(ingest.Deps{
		Summarizer: summarize.New(oai, summarize.DefaultOptions(), logger),
		Index:      index,
		Graph:      saver,
		Breaker:    resilience.NewBreaker(resilience.DefaultBreakerOpts),
		Limiter:    resilience.NewLimiter(resilience.LimiterOpts{Rate: float64(time.Second) / float64(*pause), Burst: 1}),
		Logger:     logger,
	})

	if *consume {
		runConsumer(ctx, pipeline, *natsURL, logger)
		return
	}
	runBatch(ctx, pipeline, *corpusPath, *outPath, logger)
}

func runBatch(ctx context.Context, pipeline *ingest.Pipeline, corpusPath, outPath string, logger *slog.Logger) {
	listings, err := ingest.LoadCorpus(corpusPath)
	if err != nil {
		logger.Error("corpus load failed", "path", corpusPath, "err", err)
		os.Exit(1)
	}
	logger.Info("corpus loaded", "path", corpusPath, "records", len(listings))

	start := time.Now()
	report, items, err := pipeline.RunBatch(ctx, listings)
	mBatchDur.Since(start)
	mRecordsTotal("ingested").Add(int64(report.Ingested))
	mRecordsTotal("skipped").Add(int64(report.Skipped))
	if err != nil {
		logger.Error("batch aborted", "err", err, "ingested", report.Ingested)
		os.Exit(1)
	}

	logger.Info("batch complete",
		"total", report.Total, "ingested", report.Ingested, "skipped", report.Skipped,
		"elapsed", time.Since(start).Round(time.Second))

	if err := ingest.WriteProcessed(outPath, items); err != nil {
		logger.Error("processed file write failed", "path", outPath, "err", err)
		os.Exit(1)
	}
	logger.Info("processed records written", "path", outPath, "records", len(items))
}

func runConsumer(ctx context.Context, pipeline *ingest.Pipeline, natsURL string, logger *slog.Logger) {
	nc, err := nats.Connect(natsURL, nats.Name("stayscout-ingest"))
	if err != nil {
		logger.Error("nats connect failed", "url", natsURL, "err", err)
		os.Exit(1)
	}
	defer nc.Drain()

	sub, err := pipeline.StartConsumer(nc)
	if err != nil {
		logger.Error("subscribe failed", "err", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	logger.Info("consuming listings", "subject", ingest.SubjectRawListings)
	<-ctx.Done()
	logger.Info("shutting down")
}
