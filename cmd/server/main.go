package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloudfiles/internal/auth"
	"cloudfiles/internal/changefeed"
	"cloudfiles/internal/config"
	"cloudfiles/internal/domain/repositories"
	driveRepo "cloudfiles/internal/domain/repositories/drive"
	driveSvc "cloudfiles/internal/domain/services/drive"
	"cloudfiles/internal/handler"
	"cloudfiles/internal/handler/sse"
	"cloudfiles/internal/middleware"
	"cloudfiles/internal/repository/memory"
	"cloudfiles/internal/repository/postgres"
	postgresDrive "cloudfiles/internal/repository/postgres/drive"
	driveService "cloudfiles/internal/service/drive"
	"cloudfiles/internal/storage/blob"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// repos bundles the persistence layer chosen by configuration
type repos struct {
	folders   driveRepo.FolderRepository
	files     driveRepo.FileRepository
	txManager repositories.TransactionManager
	close     func()
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"store", cfg.Store,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create repositories
	r, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer r.close()

	// Change feed
	feed, err := changefeed.FromConfig(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create change feed: %v", err)
	}
	defer feed.Close()

	// Object storage
	blobs, err := blob.FromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	// Create services
	driveSvcImpl := driveService.NewDriveService(r.folders, r.files, blobs, feed, r.txManager, logger)
	watcher := driveService.NewWatcher(r.folders, r.files, feed, logger,
		driveService.WithFirstSnapshotTimeout(cfg.FirstSnapshotTimeout),
	)

	if cfg.OrphanSweepSchedule != "" {
		sweeper := driveService.NewOrphanSweeper(r.files, blobs, logger,
			driveService.WithGracePeriod(cfg.OrphanGracePeriod),
		)
		if err := sweeper.Start(cfg.OrphanSweepSchedule); err != nil {
			log.Fatalf("Failed to schedule orphan sweep: %v", err)
		}
		defer sweeper.Stop()
	}

	logger.Info("services initialized")

	// Create handlers
	handlers := &handler.Handlers{
		Drive: handler.NewDriveHandler(driveSvcImpl, cfg.MaxUploadBytes, logger),
		Watch: handler.NewWatchHandler(watcher, sse.DefaultConfig(), logger),
	}
	if reader, ok := blobs.(driveSvc.BlobReader); ok {
		handlers.Blob = handler.NewBlobHandler(reader, logger)
	}

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handlers)

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	if cfg.DevUserID != "" {
		logger.Warn("DEBUG MODE: authentication bypassed", "user_id", cfg.DevUserID)
		h = middleware.DevAuthMiddleware(cfg.DevUserID)(h)
	} else {
		// Create JWT verifier for Supabase authentication
		jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
		h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	}
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repos, error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &repos{
			folders:   memory.NewFolderRepository(store),
			files:     memory.NewFileRepository(store),
			txManager: memory.NewTransactionManager(),
			close:     func() {},
		}, nil
	}

	// Create pgx connection pool
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		return nil, err
	}

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if cfg.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info("database connected", "folders_table", tables.Folders, "files_table", tables.Files)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	return &repos{
		folders:   postgresDrive.NewFolderRepository(repoConfig),
		files:     postgresDrive.NewFileRepository(repoConfig),
		txManager: postgres.NewTransactionManager(pool, logger),
		close:     pool.Close,
	}, nil
}
