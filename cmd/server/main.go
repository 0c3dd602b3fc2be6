package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/iudanet/puzzlesync/internal/completion"
	"github.com/iudanet/puzzlesync/internal/conflict"
	"github.com/iudanet/puzzlesync/internal/server/handlers"
	"github.com/iudanet/puzzlesync/internal/server/middleware"
	"github.com/iudanet/puzzlesync/internal/server/presence"
	"github.com/iudanet/puzzlesync/internal/server/room"
	"github.com/iudanet/puzzlesync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", defaultAddr(), "Listen address")
	dbPath := flag.String("db", "puzzlesync.db", "Path to SQLite database")
	windowMS := flag.Int64("conflict-window-ms", conflict.DefaultConfig().WindowMS, "Conflict time window in milliseconds")
	proximity := flag.Int("conflict-proximity", conflict.DefaultConfig().Proximity, "Conflict proximity in cells")
	tokens := flag.String("tokens", os.Getenv("PUZZLESYNC_TOKENS"), "Static sessions as token=user pairs, comma separated")
	rateLimit := flag.Int("rate-limit", 600, "Max requests per user per minute, 0 disables")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger, *addr, *dbPath, *tokens, *rateLimit, conflict.Config{
		WindowMS:  *windowMS,
		Proximity: *proximity,
	}); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath, tokens string, rateLimit int, cfg conflict.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sessions, err := parseSessions(tokens)
	if err != nil {
		return err
	}

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	rooms := room.NewManager(cfg, store, logger)
	tracker := completion.NewTracker(logger)
	hub := presence.NewHub(logger)
	go hub.Run(ctx)

	var limiter *middleware.UserRateLimiter
	if rateLimit > 0 {
		limiter = middleware.NewUserRateLimiter(rateLimit, time.Minute, logger)
		defer limiter.Stop()
	}

	router := newRouter(logger, sessions, rooms, tracker, hub, limiter)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			"addr", addr,
			"db", dbPath,
			"conflict_window_ms", cfg.WindowMS,
			"conflict_proximity", cfg.Proximity,
			"version", Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// newRouter собирает маршруты и цепочку middleware.
// Сборка живет в main: middleware зависит от handlers (context ключи),
// поэтому handlers не может импортировать middleware.
func newRouter(
	logger *slog.Logger,
	sessions middleware.SessionLookup,
	rooms *room.Manager,
	tracker *completion.Tracker,
	hub *presence.Hub,
	limiter *middleware.UserRateLimiter,
) *mux.Router {
	syncHandler := handlers.NewSyncHandler(logger, rooms)
	completionHandler := handlers.NewCompletionHandler(logger, tracker)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	router := mux.NewRouter()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)

	protected := apiRouter.PathPrefix("/rooms/{roomID}").Subrouter()
	protected.Use(middleware.AuthMiddleware(logger, sessions))
	if limiter != nil {
		protected.Use(middleware.RateLimitMiddleware(limiter, logger))
	}
	protected.HandleFunc("/sync", syncHandler.HandleGet).Methods(http.MethodGet)
	protected.HandleFunc("/sync", syncHandler.HandlePost).Methods(http.MethodPost)
	protected.HandleFunc("/sync", syncHandler.HandlePut).Methods(http.MethodPut)
	protected.HandleFunc("/completion", completionHandler.HandleEvent).Methods(http.MethodPost)
	protected.HandleFunc("/completion", completionHandler.HandleSummary).Methods(http.MethodGet)
	protected.HandleFunc("/completion/stats", completionHandler.HandleStats).Methods(http.MethodGet)
	protected.HandleFunc("/presence", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := handlers.GetUserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		hub.ServeWS(w, r, mux.Vars(r)["roomID"], userID)
	}).Methods(http.MethodGet)

	return router
}

// staticSessions разрешает bearer-токены по статической таблице из флага.
// Реальное хранилище сессий — внешний коллаборатор за интерфейсом SessionLookup.
type staticSessions map[string]string

func (s staticSessions) Lookup(_ context.Context, token string) (string, error) {
	userID, ok := s[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return userID, nil
}

// parseSessions разбирает флаг вида "token1=alice,token2=bob"
func parseSessions(raw string) (staticSessions, error) {
	sessions := make(staticSessions)
	if raw == "" {
		return sessions, nil
	}

	for _, pair := range strings.Split(raw, ",") {
		token, userID, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || token == "" || userID == "" {
			return nil, fmt.Errorf("invalid token pair %q, want token=user", pair)
		}
		sessions[token] = userID
	}

	return sessions, nil
}

func printVersion() {
	fmt.Printf("PuzzleSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}

func defaultAddr() string {
	if addr := os.Getenv("PUZZLESYNC_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}
