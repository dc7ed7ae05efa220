// Command api serves the accommodation QA agent over HTTP: the legacy
// GET /chat endpoint the original front end calls, a JSON POST variant,
// and city browse endpoints backed by the listing graph.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	openai "github.com/sashabaranov/go-openai"

	"github.com/stayscout/stayscout/engine/agent"
	"github.com/stayscout/stayscout/engine/domain"
	"github.com/stayscout/stayscout/engine/graph"
	"github.com/stayscout/stayscout/engine/retrieval"
	"github.com/stayscout/stayscout/engine/semantic"
	"github.com/stayscout/stayscout/pkg/metrics"
	"github.com/stayscout/stayscout/pkg/mid"
)

var met = metrics.New()

var (
	mChatTotal = func(outcome string) *metrics.Counter {
		return met.Counter(metrics.WithLabels("stayscout_chat_requests_total", "outcome", outcome), "Chat requests by outcome")
	}
	mToolUsed = met.Counter("stayscout_chat_tool_used_total", "Chat requests that triggered retrieval")
	mChatDur  = met.Histogram("stayscout_chat_duration_seconds", "End-to-end chat latency", nil)
)

// Config holds all environment-based configuration.
type Config struct {
	Port       string
	OpenAIKey  string
	QdrantURL  string
	Collection string
	Neo4jURL   string
	Neo4jUser  string
	Neo4jPass  string
	CORSOrigin string
	SiteOrigin string
	Synthesize bool
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8080"),
		OpenAIKey:  os.Getenv("OPENAI_API_KEY"),
		QdrantURL:  envOr("QDRANT_URL", "localhost:6334"),
		Collection: envOr("QDRANT_COLLECTION", "room_summaries"),
		Neo4jURL:   envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:  envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:  envOr("NEO4J_PASS", "password"),
		CORSOrigin: envOr("CORS_ORIGIN", "http://localhost:3000"),
		SiteOrigin: envOr("SITE_ORIGIN", retrieval.DefaultSiteOrigin),
		Synthesize: os.Getenv("SYNTHESIZE_ANSWERS") == "true",
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	oai := openai.NewClient(cfg.OpenAIKey)

	// --- Connect to Qdrant ---
	embedder := semantic.NewOpenAIEmbedder(oai, "")
	index, err := semantic.New(cfg.QdrantURL, cfg.Collection, embedder, logger)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer index.Close()

	// --- Connect to Neo4j (browse endpoints only) ---
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer driver.Close(ctx)
	listings := graph.New(driver)

	// --- Build the agent ---
	tool := retrieval.New(index, retrieval.Options{SiteOrigin: cfg.SiteOrigin}, logger)

	agentOpts := agent.DefaultOptions()
	agentOpts.Synthesize = cfg.Synthesize
	orchestrator := agent.New(oai, tool, agentOpts, logger)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chat", handleChatQuery(orchestrator, logger))
	mux.HandleFunc("POST /api/chat", handleChatJSON(orchestrator, logger))
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/cities", handleCities(listings, logger))
	mux.HandleFunc("GET /api/cities/{city}/listings", handleCityListings(listings, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChatQuery is the legacy endpoint: GET /chat?query=... with a
// status/response envelope. The front end depends on this exact shape.
func handleChatQuery(orch *agent.Orchestrator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			mChatTotal("bad_request").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "error",
				"message": "No query provided",
			})
			return
		}
		respondChat(w, r, orch, logger, query)
	}
}

// ChatRequest is the JSON body for POST /api/chat.
type ChatRequest struct {
	Query string `json:"query"`
}

func handleChatJSON(orch *agent.Orchestrator, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mChatTotal("bad_request").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "error",
				"message": "invalid request body",
			})
			return
		}
		if req.Query == "" {
			mChatTotal("bad_request").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "error",
				"message": "No query provided",
			})
			return
		}
		respondChat(w, r, orch, logger, req.Query)
	}
}

func respondChat(w http.ResponseWriter, r *http.Request, orch *agent.Orchestrator, logger *slog.Logger, query string) {
	start := time.Now()
	answer, err := orch.Process(r.Context(), query)
	mChatDur.Since(start)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			mChatTotal("bad_request").Inc()
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"status":  "error",
				"message": "No query provided",
			})
			return
		}
		mChatTotal("error").Inc()
		logger.Error("chat failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
		return
	}

	mChatTotal("success").Inc()
	if answer.ToolUsed {
		mToolUsed.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"response": answer.Payload(),
	})
}

func handleCities(listings *graph.ListingGraph, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cities, err := listings.Cities(r.Context())
		if err != nil {
			logger.Error("cities query failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status":  "error",
				"message": "internal server error",
			})
			return
		}
		if cities == nil {
			cities = []graph.CityStat{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "cities": cities})
	}
}

func handleCityListings(listings *graph.ListingGraph, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := r.PathValue("city")
		nodes, err := listings.ListingsInCity(r.Context(), city)
		if err != nil {
			logger.Error("city listings query failed", "city", city, "err", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status":  "error",
				"message": "internal server error",
			})
			return
		}
		if nodes == nil {
			nodes = []graph.ListingNode{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "listings": nodes})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
