// Package main is the entry point for the caldora server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyp0633/caldora/internal/api"
	"github.com/cyp0633/caldora/internal/api/middleware"
	"github.com/cyp0633/caldora/internal/calendar"
	"github.com/cyp0633/caldora/internal/config"
	"github.com/cyp0633/caldora/internal/guard"
	"github.com/cyp0633/caldora/internal/locks"
	"github.com/cyp0633/caldora/internal/purge"
	"github.com/cyp0633/caldora/server"
	"github.com/cyp0633/caldora/server/auth"
	"github.com/cyp0633/caldora/server/storage"
	"github.com/cyp0633/caldora/server/storage/memory"
	"github.com/cyp0633/caldora/server/storage/sqlstore"
	"github.com/gorilla/mux"
)

const caldavPrefix = "/calendars/"

func main() {
	healthCheck := flag.Bool("health-check", false, "Run health check against a running server and exit")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *healthCheck {
		if err := runHealthCheck(cfg.Port); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []calendar.Option{calendar.WithLogger(logger)}
	if cfg.RedisEnabled {
		rdb, err := locks.NewRedisClient(locks.RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		opts = append(opts, calendar.WithLocker(locks.NewRedisLocker(rdb, cfg.LockTTL, logger)))
		logger.Info("using redis resource locks", "addr", cfg.RedisAddr)
	}

	svc := calendar.New(store, guard.New(cfg.Mode()), opts...)
	accounts := auth.NewAccounts(store, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), auth.WithLogger(logger))

	router := mux.NewRouter()
	server.Mount(router, server.NewCaldavHandler(caldavPrefix, cfg.Realm, svc, accounts, nil, logger))
	api.Register(router, svc, accounts)
	router.HandleFunc("/", handleRoot).Methods(http.MethodGet)

	handler := middleware.Chain(router,
		middleware.CORS(cfg.CORSOrigins),
		middleware.ErrorRecovery(logger),
		middleware.Logging(logger),
	)

	scheduler := purge.NewScheduler(store, cfg.TombstoneRetention, logger)
	if err := scheduler.Start(cfg.PurgeSchedule); err != nil {
		return fmt.Errorf("starting tombstone purge: %w", err)
	}
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", srv.Addr,
			"caldav", caldavPrefix,
			"concurrency_mode", cfg.Mode().String(),
			"database", cfg.DatabaseType)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore returns the configured store and a function releasing it.
func openStore(cfg *config.Config, logger *slog.Logger) (storage.Storage, func(), error) {
	sqlOpts := []sqlstore.Option{
		sqlstore.WithTimeout(cfg.StoreTimeout),
		sqlstore.WithLogger(logger),
	}

	var (
		store *sqlstore.Store
		err   error
	)
	switch cfg.DatabaseType {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil
	case "postgres", "postgresql":
		store, err = sqlstore.OpenPostgres(cfg.DatabaseURL, sqlOpts...)
	default:
		store, err = sqlstore.OpenSQLite(cfg.DatabasePath, sqlOpts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", cfg.DatabaseType, err)
	}
	logger.Info("database ready", "type", cfg.DatabaseType)
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// handleRoot provides a basic landing page with connection instructions.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	page := `<!DOCTYPE html>
<html>
<head>
    <title>caldora</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; }
        code { background: #f4f4f4; padding: 2px 4px; border-radius: 4px; }
    </style>
</head>
<body>
    <h1>caldora</h1>
    <p>Register an account with <code>POST /api/auth/register</code>, then point a CalDAV client at:</p>
    <p><code>http://%s%s</code></p>
    <p>Sign in with your username and password, or with a token from <code>POST /api/auth/login</code>.</p>
</body>
</html>
`
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, page, html.EscapeString(r.Host), caldavPrefix)
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(port string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://localhost:" + port + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
