// Package app initializes and runs the summarizer service.
// It configures logging, the quota store, the upstream clients,
// authentication and routing, and handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/ytsummarizer/internal/auth"
	"github.com/patric-chuzhbe/ytsummarizer/internal/captions"
	"github.com/patric-chuzhbe/ytsummarizer/internal/config"
	"github.com/patric-chuzhbe/ytsummarizer/internal/db/jsondb"
	"github.com/patric-chuzhbe/ytsummarizer/internal/db/memorystorage"
	"github.com/patric-chuzhbe/ytsummarizer/internal/db/postgresdb"
	"github.com/patric-chuzhbe/ytsummarizer/internal/db/storage"
	"github.com/patric-chuzhbe/ytsummarizer/internal/gemini"
	"github.com/patric-chuzhbe/ytsummarizer/internal/ipchecker"
	"github.com/patric-chuzhbe/ytsummarizer/internal/logger"
	"github.com/patric-chuzhbe/ytsummarizer/internal/models"
	"github.com/patric-chuzhbe/ytsummarizer/internal/quota"
	"github.com/patric-chuzhbe/ytsummarizer/internal/router"
	"github.com/patric-chuzhbe/ytsummarizer/internal/service"
	"github.com/patric-chuzhbe/ytsummarizer/internal/summarizer"
	"github.com/patric-chuzhbe/ytsummarizer/internal/supabase"
	"github.com/patric-chuzhbe/ytsummarizer/internal/throttle"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the configuration, the HTTP handler and the quota store
// needed to run the summarizer service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up the quota store
// - building the captions, generation and account clients
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel, logger.WithFile(app.cfg.LogFile))
	if err != nil {
		return nil, err
	}

	if app.cfg.RapidAPIKey == "" {
		logger.Log.Warnln("RAPIDAPI_KEY is not set, transcript requests will be rejected upstream")
	}
	if app.cfg.GeminiAPIKey == "" {
		logger.Log.Warnln("GEMINI_API_KEY is not set, summary generation will fail")
	}
	if app.cfg.SupabaseURL == "" {
		logger.Log.Warnln("SUPABASE_URL is not set, account operations and /ping will fail")
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	authCookieSigningSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, err
	}

	checker, err := ipchecker.New(
		app.cfg.TrustedSubnet,
		ipchecker.WithProxyHeaders(app.cfg.TrustProxyHeaders),
	)
	if err != nil {
		return nil, err
	}

	pipeline := summarizer.New(
		captions.New(
			app.cfg.RapidAPIKey,
			captions.WithBaseURL(app.cfg.CaptionsBaseURL),
			captions.WithHost(app.cfg.RapidAPIHost),
			captions.WithTimeout(app.cfg.CaptionsTimeout),
		),
		gemini.New(
			app.cfg.GeminiAPIKey,
			gemini.WithBaseURL(app.cfg.GeminiBaseURL),
			gemini.WithModel(app.cfg.GeminiModel),
			gemini.WithTimeout(app.cfg.GenerationTimeout),
		),
	)

	accounts := supabase.New(
		app.cfg.SupabaseURL,
		app.cfg.SupabaseAnonKey,
		supabase.WithServiceRoleKey(app.cfg.SupabaseServiceRoleKey),
		supabase.WithTimeout(app.cfg.AccountTimeout),
	)

	app.httpHandler = router.New(
		service.New(
			app.db,
			pipeline,
			quota.New(app.db, app.cfg.QuotaLimit, app.cfg.QuotaExemptIdentity),
			accounts,
			app.cfg.RequireAuth,
		),
		auth.New(
			app.cfg.AuthCookieName,
			authCookieSigningSecretKey,
			app.cfg.AuthTokenTTL,
		),
		checker,
		throttle.New(checker, app.cfg.SummarizeRatePerMinute, app.cfg.SummarizeRateBurst),
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr, "requireAuth", a.cfg.RequireAuth)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving the quota store and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Errorln("Quota store close error:", closeErr)
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
