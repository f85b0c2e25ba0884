package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"supportkb/internal/app"
	"supportkb/internal/auth"
	"supportkb/internal/config"
	"supportkb/internal/handler"
	"supportkb/internal/locales"
	"supportkb/internal/middleware"
	"supportkb/internal/service/llm"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging, optionally teeing into a rotated log file
	var logger *slog.Logger
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, "server", cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logger = config.NewLogger(cfg.Debug, logFile)
	} else {
		logger = config.NewLogger(cfg.Debug, nil)
	}
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := locales.Load()
	if err != nil {
		log.Fatalf("Failed to load locale rules: %v", err)
	}

	storage, err := app.OpenStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()

	if err := storage.EnsureSchema(ctx, logger); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	translation, err := llm.SetupTranslation(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup translation: %v", err)
	}

	services := app.NewServices(storage, translation, rules, cfg, logger)
	logger.Info("services initialized",
		"origin_locale", rules.Origin(),
		"translation_locales", rules.TranslationLocales(),
	)

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, &handler.Handlers{
		Documents:    handler.NewDocumentHandler(services.Graph, services.State, logger),
		Revisions:    handler.NewRevisionHandler(services.Graph, logger),
		Drafts:       handler.NewDraftHandler(services.Drafts, logger),
		Translations: handler.NewTranslationHandler(services.Translator, logger),
		Import:       handler.NewImportHandler(services.Importer, logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	if cfg.AuthDisabled {
		if cfg.Environment == "prod" {
			log.Fatal("AUTH_DISABLED cannot be used in production")
		}
		logger.Warn("authentication disabled, every request runs as the dev user", "user_id", cfg.DevUserID)
		h = middleware.DevAuth(cfg.DevUserID)(h)
	} else {
		verifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
		h = middleware.Auth(verifier, logger, "/health")(h)
	}
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     h,
		ReadTimeout: 15 * time.Second,
		// Machine translation requests wait on the provider
		WriteTimeout: cfg.TranslationTimeout*time.Duration(max(cfg.TranslationRetries, 1)) + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}
