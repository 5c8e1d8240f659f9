package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/Ecenturetech/ScriptTranscipt/internal/api/handler"
	"github.com/Ecenturetech/ScriptTranscipt/internal/api/router"
	"github.com/Ecenturetech/ScriptTranscipt/internal/caption"
	"github.com/Ecenturetech/ScriptTranscipt/internal/config"
	"github.com/Ecenturetech/ScriptTranscipt/internal/enrich"
	"github.com/Ecenturetech/ScriptTranscipt/internal/jobs"
	"github.com/Ecenturetech/ScriptTranscipt/internal/media"
	"github.com/Ecenturetech/ScriptTranscipt/internal/openai"
	"github.com/Ecenturetech/ScriptTranscipt/internal/pdfextract"
	"github.com/Ecenturetech/ScriptTranscipt/internal/queue"
	"github.com/Ecenturetech/ScriptTranscipt/internal/scorm"
	"github.com/Ecenturetech/ScriptTranscipt/internal/storage"
	"github.com/Ecenturetech/ScriptTranscipt/internal/transcribe"
	"github.com/Ecenturetech/ScriptTranscipt/shared/logger"
	"github.com/Ecenturetech/ScriptTranscipt/shared/postgresql"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		TimeFormat: time.RFC3339,
	})

	appLogger.Info("Starting transcript service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	if err := os.MkdirAll(cfg.Media.StorageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize LLM provider client
	aiClient := openai.NewClient(openai.Config{
		BaseURL:            cfg.OpenAI.BaseURL,
		APIKey:             cfg.OpenAI.APIKey,
		ChatModel:          cfg.OpenAI.ChatModel,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		RequestTimeout:     cfg.OpenAI.RequestTimeout,
	})

	// Stores
	videoStore := storage.NewVideoStore(dbClient)
	pdfStore := storage.NewPDFStore(dbClient)
	scormStore := storage.NewScormStore(dbClient)
	settingsStore := storage.NewSettingsStore(dbClient)
	dictionaryStore := storage.NewDictionaryStore(dbClient)
	catalogStore := storage.NewCatalogStore(dbClient)

	// Enrichment pipeline
	pipeline := enrich.NewPipeline(
		enrich.NewCatalogCorrector(catalogStore, appLogger.Logger),
		enrich.NewDictionaryReplacer(dictionaryStore, appLogger.Logger),
		enrich.NewReadabilityImprover(aiClient, appLogger.Logger),
		enrich.NewStructuredSummarizer(aiClient, settingsStore, appLogger.Logger),
		enrich.NewQAGenerator(aiClient, settingsStore, appLogger.Logger),
		enrich.NewMetadataGenerator(aiClient, appLogger.Logger),
		appLogger.Logger,
	)

	// Job dispatcher and queue
	dispatcher := jobs.NewDispatcher(jobs.Deps{
		StorageDir:  cfg.Media.StorageDir,
		Language:    cfg.OpenAI.Language,
		Keys:        aiClient,
		Splitter:    media.NewSplitter(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, appLogger.Logger),
		Transcriber: transcribe.New(aiClient, cfg.OpenAI.Language, appLogger.Logger),
		Pipeline:    pipeline,
		PDF:         pdfextract.New(aiClient, appLogger.Logger),
		Vimeo:       caption.NewVimeoClient(os.Getenv("VIMEO_ACCESS_TOKEN"), appLogger.Logger),
		YouTube:     caption.NewYouTubeClient(appLogger.Logger),
		Scorm:       scorm.NewClient(cfg.Scorm.BaseURL, appLogger.Logger),
		Videos:      videoStore,
		PDFs:        pdfStore,
		Scorms:      scormStore,
		Logger:      appLogger.Logger,
	})

	jobQueue := queue.New(dispatcher, appLogger.Logger, queue.Options{
		Cooldown: cfg.Queue.JobCooldown,
	})

	// Periodic removal of old terminal jobs. Pending and processing jobs
	// are never touched.
	cleanupDone := make(chan struct{})
	go runCleanup(jobQueue, cfg.Queue, appLogger.Logger, cleanupDone)

	// Initialize router
	r := initRouter(cfg, appLogger.Logger, dbClient, jobQueue, videoStore)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Transcript service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	close(cleanupDone)

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// runCleanup removes terminal jobs older than the configured age on a ticker
// until done is closed.
func runCleanup(q *queue.Queue, cfg config.QueueConfig, logger *slog.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := q.Cleanup(cfg.CleanupMaxAge); removed > 0 {
				logger.Info("Removed old jobs",
					slog.Int("count", removed),
				)
			}
		case <-done:
			return
		}
	}
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, dbClient *postgresql.Client, jobQueue *queue.Queue, videos *storage.VideoStore) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:    logger,
		DBClient:  dbClient,
		Queue:     jobQueue,
		Videos:    videos,
		UploadDir: cfg.Media.StorageDir,
	}

	return router.SetupRouter(handlerDeps)
}
