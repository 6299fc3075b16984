package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"peerprep/interview/internal/config"
	"peerprep/interview/internal/conversation"
	"peerprep/interview/internal/evaluation"
	"peerprep/interview/internal/handlers"
	"peerprep/interview/internal/interviewapi"
	"peerprep/interview/internal/jobs"
	"peerprep/interview/internal/live"
	"peerprep/interview/internal/llm"
	_ "peerprep/interview/internal/llm/gemini"
	"peerprep/interview/internal/metrics"
	"peerprep/interview/internal/models"
	"peerprep/interview/internal/prompts"
	"peerprep/interview/internal/routers"
	"peerprep/interview/internal/sessions"
	"peerprep/interview/internal/store"
	"peerprep/interview/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const redisKeyPrefix = "interview:session:"

func registerRoutes(router *chi.Mux, cfg *config.Config, healthHandler *handlers.HealthHandler, interviewHandler *handlers.InterviewHandler, liveHandler *handlers.LiveHandler, transcriptHandler *handlers.TranscriptHandler) {
	routers.HealthRoutes(router, healthHandler)
	routers.InterviewRoutes(router, cfg.JWTSecret, interviewHandler)
	routers.LiveRoutes(router, cfg.JWTSecret, liveHandler, transcriptHandler)
}

// openDatabase connects to postgres when it backs the session store and to a
// local sqlite file otherwise. The transcript archive always lives here.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.StoreBackend == config.StorePostgres {
		dialector = postgres.Open(cfg.PostgresDSN())
	} else {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.SQLitePath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// newSessionStore returns the configured backend and a function releasing it.
func newSessionStore(cfg *config.Config, db *gorm.DB) (store.Backend, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		return store.NewRedisStore(rdb, redisKeyPrefix, cfg.SessionTTL), func() { _ = rdb.Close() }, nil
	case config.StorePostgres, config.StoreSQLite:
		if db == nil {
			return nil, nil, fmt.Errorf("%s session store requires a database", cfg.StoreBackend)
		}
		return store.NewGormStore(db), func() {}, nil
	default:
		fs, err := store.NewFileStore(cfg.StoreDir)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

func liveConfig(cfg *config.Config) models.LiveConfig {
	lc := models.DefaultLiveConfig()
	lc.Model = cfg.LiveModel
	lc.GenerationConfig.VoiceName = cfg.LiveVoice
	return lc
}

func newConversationFactory(cfg *config.Config, pm conversation.PromptBuilder, evaluator conversation.Evaluator, archive conversation.Archive, logger *zap.Logger) handlers.ConversationFactory {
	return func(candidateID string, observer conversation.Observer) *conversation.Conversation {
		client := live.NewClient(live.Config{
			URL:          cfg.LiveURL,
			APIKey:       cfg.GeminiAPIKey,
			SetupTimeout: cfg.LiveSetupTimeout,
		}, logger)
		return conversation.New(conversation.Config{
			CandidateID:     candidateID,
			Live:            liveConfig(cfg),
			SilenceFallback: cfg.SilenceFallback,
		}, client, pm, evaluator, archive, observer, logger)
	}
}

func main() {
	logger, err := utils.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("live_model", cfg.LiveModel))

	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	// live interviews still run without a provider; evaluations then report unavailable
	evalProvider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Warn("Failed to initialize evaluation provider, evaluations will be unavailable", zap.Error(err))
		evalProvider = nil
	}
	evaluator := evaluation.NewEvaluator(evalProvider, promptManager, cfg.EvaluationTimeout, logger)

	db, err := openDatabase(cfg)
	if err != nil {
		if cfg.UsesSQL() {
			logger.Fatal("Failed to initialize database", zap.Error(err))
		}
		logger.Error("Failed to initialize database, transcript archive will be disabled", zap.Error(err))
	}

	sessionStore, closeStore, err := newSessionStore(cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize session store", zap.Error(err))
	}
	defer closeStore()

	backend := interviewapi.NewClient(cfg.InterviewAPIURL, &http.Client{Timeout: cfg.InterviewAPITimeout}, logger)
	machines := sessions.NewMachines(backend, sessionStore, cfg.SessionIdleTTL, logger)
	defer machines.Close()

	var archive *store.TranscriptArchive
	var transcriptHandler *handlers.TranscriptHandler
	var exporterJob *jobs.TranscriptExporterJob
	var conversationArchive conversation.Archive
	var archiveStats handlers.ArchiveStats

	if db != nil {
		archive = store.NewTranscriptArchive(db, logger)
		conversationArchive = archive
		archiveStats = archive
		transcriptHandler = handlers.NewTranscriptHandler(archive, logger)

		exporterConfig := &jobs.ExporterConfig{
			Schedule:      cfg.ExportSchedule,
			ExportDir:     cfg.ExportDir,
			ExportEnabled: cfg.ExportEnabled,
			BatchSize:     cfg.ExportBatchSize,
		}
		exporterJob = jobs.NewTranscriptExporterJob(archive, exporterConfig, logger)
		if exporterConfig.ExportEnabled {
			if err := exporterJob.Start(); err != nil {
				logger.Error("Failed to start transcript exporter job", zap.Error(err))
			} else {
				logger.Info("Transcript exporter job started", zap.String("schedule", exporterConfig.Schedule))
			}
		}
	}

	healthHandler := handlers.NewHealthHandler(sessionStore, archiveStats, evalProvider, promptManager, cfg)
	interviewHandler := handlers.NewInterviewHandler(machines, logger)
	liveHandler := handlers.NewLiveHandler(
		newConversationFactory(cfg, promptManager, evaluator, conversationArchive, logger),
		cfg.SessionIdleTTL, logger)

	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization", "X-Candidate-ID"},
		AllowCredentials: true,
	}))

	// no request timeout: live sockets stay open for the whole interview
	router.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer, metrics.Middleware("interview"))

	registerRoutes(router, cfg, healthHandler, interviewHandler, liveHandler, transcriptHandler)

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Interview service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Interview service shutting down...")

	if exporterJob != nil {
		exporterJob.Stop()
		logger.Info("Transcript exporter job stopped")
	}

	liveHandler.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("Interview service exited")
}
