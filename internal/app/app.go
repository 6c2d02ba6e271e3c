package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"textlens/features/analysis"
	"textlens/features/job"
	"textlens/features/search"
	"textlens/features/stats"
	"textlens/internal/adapter/blobstore"
	"textlens/internal/adapter/gemini"
	"textlens/internal/adapter/reranker"
	"textlens/internal/adapter/textapi"
	"textlens/internal/config"
	"textlens/internal/middleware"
	"textlens/internal/retrieval"
	"textlens/internal/settings"
	"textlens/internal/worker"
)

// Database is satisfied by *sql.DB. Repositories need the concrete type, so
// New casts it back; the interface keeps the signature mockable.
type Database interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// VectorStore is the full surface the app wires: schema bootstrap, index
// writes from the worker, hybrid search for retrieval and the stats count.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	StoreDoc(ctx context.Context, doc worker.AnalyzedDoc) error
	DeleteDocs(ctx context.Context, analysisID string) error
	Search(ctx context.Context, query string, vector []float32, alpha float32, limit int, filters map[string]interface{}) ([]retrieval.SearchResult, error)
	CountDocs(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Options carries test seams. Nil fields keep the production wiring.
type Options struct {
	Analytics worker.AnalyticsClient
	Embedder  worker.Embedder
}

type App struct {
	Handler          http.Handler
	AnalysisService  *analysis.Service
	AnalysisConsumer *worker.AnalysisConsumer
	IndexConsumer    *worker.IndexConsumer

	addr string
}

func New(
	cfg *config.Config,
	db Database,
	vecStore VectorStore,
	taskPub TaskPublisher,
	logger *slog.Logger,
	opts *Options,
) (*App, error) {
	// Repositories need *sql.DB for pq.CopyIn and transactions.
	sqlDB := db.(*sql.DB)

	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(sqlDB)
	settingsService := settings.NewService(settingsRepo)
	seedSettings(cfg, settingsService)
	settingsHandler := settings.NewHandler(settingsService)

	// Remote analytics client. The key source prefers the settings row so a
	// key rotated at runtime takes effect without a restart.
	schedule, err := cfg.BackoffSchedule()
	if err != nil {
		return nil, fmt.Errorf("invalid backoff schedule: %w", err)
	}
	analyticsClient := textapi.NewClient(textapi.Config{
		Endpoint:        cfg.AnalyticsEndpoint,
		Keys:            &settingsKeySource{svc: settingsService, fallback: cfg.AnalyticsAPIKey},
		Language:        cfg.AnalyticsLanguage,
		MaxPollTries:    cfg.MaxPollTries,
		PollDelay:       cfg.PollDelay(),
		BackoffSchedule: schedule,
	})
	var analytics worker.AnalyticsClient = analyticsClient
	if opts != nil && opts.Analytics != nil {
		analytics = opts.Analytics
	}

	// Feature: Analysis
	var blobs analysis.BlobStore
	if cfg.BlobGatewayURL != "" {
		blobs = blobstore.NewClient(cfg.BlobGatewayURL, cfg.BlobGatewayKey)
	}
	analysisRepo := analysis.NewPostgresRepo(sqlDB)
	analysisService := analysis.NewService(analysisRepo, taskPub, blobs, cfg.MaxBatchSize, cfg.MaxDocumentChars)
	analysisHandler := analysis.NewHandler(analysisService, int(cfg.MaxUploadSizeMB))

	// Feature: Job
	jobRepo := job.NewPostgresRepo(sqlDB)
	jobService := job.NewService(jobRepo, taskPub)
	jobHandler := job.NewHandler(jobService)

	// Feature: Stats
	statsHandler := stats.NewHandler(analysisRepo, jobRepo, vecStore)

	// Adapters: Dynamic
	var embedder worker.Embedder = gemini.NewDynamicEmbedder(settingsService)
	if opts != nil && opts.Embedder != nil {
		embedder = opts.Embedder
	}
	rerankerClient := reranker.NewDynamicClient(settingsService)

	// Feature: Search
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, rerankerClient, settingsService, queryLogger)
	searchHandler := search.NewHandler(retrievalService)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /analyses", middleware.CorrelationID(enableCORS(analysisHandler.Create)))
	mux.Handle("POST /analyses/upload", middleware.CorrelationID(enableCORS(analysisHandler.Upload)))
	mux.Handle("GET /analyses", middleware.CorrelationID(enableCORS(analysisHandler.List)))
	mux.Handle("GET /analyses/{id}", middleware.CorrelationID(enableCORS(analysisHandler.Get)))
	mux.Handle("GET /analyses/{id}/rows", middleware.CorrelationID(enableCORS(analysisHandler.GetRows)))

	mux.Handle("GET /search", middleware.CorrelationID(enableCORS(searchHandler.Search)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("GET /jobs/failed", middleware.CorrelationID(enableCORS(jobHandler.List)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(enableCORS(jobHandler.Retry)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Workers
	analysisConsumer := worker.NewAnalysisConsumer(analytics, analysisRepo, jobService, taskPub)
	indexConsumer := worker.NewIndexConsumer(embedder, vecStore)

	port := cfg.ServerPort
	if port == 0 {
		port = 8081
	}

	return &App{
		Handler:          mux,
		AnalysisService:  analysisService,
		AnalysisConsumer: analysisConsumer,
		IndexConsumer:    indexConsumer,
		addr:             fmt.Sprintf(":%d", port),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.addr,
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "addr", a.addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// seedSettings copies API keys from the environment into an empty settings
// row, so a fresh deployment works before anyone touches the settings UI.
func seedSettings(cfg *config.Config, svc *settings.Service) {
	if cfg.AnalyticsAPIKey == "" && cfg.GeminiAPIKey == "" && cfg.RerankAPIKey == "" {
		return
	}
	ctx := context.Background()
	set, err := svc.Get(ctx)
	if err != nil {
		slog.Warn("failed to fetch settings for seeding", "error", err)
		return
	}
	changed := false
	if set.AnalyticsAPIKey == "" && cfg.AnalyticsAPIKey != "" {
		set.AnalyticsAPIKey = cfg.AnalyticsAPIKey
		changed = true
	}
	if set.GeminiAPIKey == "" && cfg.GeminiAPIKey != "" {
		set.GeminiAPIKey = cfg.GeminiAPIKey
		changed = true
	}
	if set.RerankAPIKey == "" && cfg.RerankAPIKey != "" {
		set.RerankAPIKey = cfg.RerankAPIKey
		changed = true
	}
	if !changed {
		return
	}
	if err := svc.Update(ctx, set); err != nil {
		slog.Warn("failed to seed api keys", "error", err)
		return
	}
	slog.Info("seeded api keys from environment")
}

// settingsKeySource resolves the analytics API key from the settings row,
// falling back to the environment value when the row has none.
type settingsKeySource struct {
	svc      *settings.Service
	fallback string
}

func (k *settingsKeySource) AnalyticsKey(ctx context.Context) (string, error) {
	set, err := k.svc.Get(ctx)
	if err != nil || set == nil || set.AnalyticsAPIKey == "" {
		return k.fallback, nil
	}
	return set.AnalyticsAPIKey, nil
}
