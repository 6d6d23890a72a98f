// Command server runs the DermaCare backend: account and preference storage
// on SQLite, scan history on Firestore (or in memory for local development),
// and HTTP relays to the disease-detection model, the streaming assistant,
// and the clinic search API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dermacare/go-derma-backend/internal/config"
	"github.com/dermacare/go-derma-backend/internal/faq"
	"github.com/dermacare/go-derma-backend/internal/history"
	httpapi "github.com/dermacare/go-derma-backend/internal/http"
	"github.com/dermacare/go-derma-backend/internal/observability"
	"github.com/dermacare/go-derma-backend/internal/repo"
	"github.com/dermacare/go-derma-backend/internal/sysutil"
)

const version = "1.0.0"

const shutdownGrace = 10 * time.Second

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("tracing setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	store, err := openHistoryStore(ctx, cfg.History)
	if err != nil {
		log.Fatal().Err(err).Str("project", cfg.History.ProjectID).Msg("open scan history store")
	}

	faqIdx, err := faq.NewIndexFromMarkdown(cfg.FAQPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.FAQPath).Msg("load FAQ corpus")
	}
	log.Info().Int("entries", len(faqIdx.Entries())).Msg("FAQ corpus loaded")

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, store, faqIdx, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", cfg.GinMode).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("history store close")
		}
	}
	log.Info().Msg("server stopped")
}

// openHistoryStore selects Firestore when a project is configured and the
// in-memory store otherwise. The in-memory store is for local development
// only; its contents vanish on restart.
func openHistoryStore(ctx context.Context, cfg config.HistoryConfig) (history.Store, error) {
	if cfg.ProjectID == "" {
		log.Warn().Msg("FIRESTORE_PROJECT_ID unset, using in-memory scan history")
		return history.NewMemoryStore(), nil
	}
	return history.NewFirestoreStore(ctx, cfg.ProjectID, cfg.Collection)
}
