package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/mindseye/internal/config"
	dbRedis "github.com/kailas-cloud/mindseye/internal/db/redis"
	logpkg "github.com/kailas-cloud/mindseye/internal/logger"
	"github.com/kailas-cloud/mindseye/internal/metrics"
	"github.com/kailas-cloud/mindseye/internal/repository/eventfile"
	"github.com/kailas-cloud/mindseye/internal/repository/eventlist"
	chiTransport "github.com/kailas-cloud/mindseye/internal/transport/chi"
	healthuc "github.com/kailas-cloud/mindseye/internal/usecase/health"
	"github.com/kailas-cloud/mindseye/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/mindseye/internal/usecase/search"
	"github.com/kailas-cloud/mindseye/internal/version"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search service",
		Long: "Load configuration (config/<ENV>.yaml, ENV defaults to local), connect the event source, " +
			"and serve the search API until SIGINT or SIGTERM.",
		RunE: runServe,
	}
	cmd.Flags().StringP("config", "c", "", "explicit config file (overrides ENV lookup)")
	return cmd
}

// eventSource bundles what the composition root needs from a configured source.
type eventSource struct {
	loader  ingest.Loader[any]
	pinger  healthuc.SourcePinger
	watcher *eventfile.Watcher
	close   func()
}

func runServe(cmd *cobra.Command, _ []string) error {
	loadDotEnv()

	env := config.GetEnv()
	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}

	logger, closeLog, err := buildLogger(env, cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	logger.Info("Starting mindseye search service",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("source_driver", cfg.Source.Driver),
		zap.Bool("trigram_default", cfg.Search.TrigramDefault()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterSearchMetrics()
	store := searchuc.NewStore[any](logger).WithRecorder(metrics.SearchRecorder{})

	src, err := openSource(ctx, cfg.Source, logger)
	if err != nil {
		return err
	}
	defer src.close()

	var ingestSvc *ingest.Service[any]
	if src.loader != nil {
		ingestSvc = ingest.New(src.loader, store, logger)
		info, err := ingestSvc.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("initial load: %w", err)
		}
		logger.Info("Initial collection loaded", zap.Int("events", info.Events))
	}

	// Pass nil interface (not typed nil pointer) when no source can be pinged.
	healthSvc := healthuc.New(store, src.pinger)
	server := chiTransport.NewServer(store, healthSvc, chiTransport.Options{
		UseTrigram:   cfg.Search.TrigramDefault(),
		MaxBodyBytes: int64(cfg.HTTP.MaxBodyMB) << 20,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           buildRouter(server, cfg, logger),
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if src.watcher != nil {
		g.Go(func() error {
			return src.watcher.Run(gctx, func(ctx context.Context) error {
				_, err := ingestSvc.Refresh(ctx)
				return err
			})
		})
	}

	if ingestSvc != nil && cfg.Source.RefreshInterval() > 0 {
		g.Go(func() error {
			return ingestSvc.Run(gctx, cfg.Source.RefreshInterval())
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// loadDotEnv loads .env from the working directory if present.
func loadDotEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	if err := godotenv.Load(filepath.Join(wd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}
}

func loadConfig(cmd *cobra.Command, env string) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func buildLogger(env string, cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	logger, err := logpkg.NewLogger(env, cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	if cfg.File == "" {
		return logger, func() { _ = logger.Sync() }, nil
	}

	teed, closeFile, err := logpkg.WithFile(logger, logpkg.FileConfig{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("log file: %w", err)
	}
	return teed, func() { _ = closeFile() }, nil
}

// openSource builds the configured event source. DriverNone yields an empty
// source: events only arrive through POST /events/load.
func openSource(ctx context.Context, cfg config.SourceConfig, logger *zap.Logger) (eventSource, error) {
	switch cfg.Driver {
	case config.DriverFile:
		src := eventSource{
			loader: eventfile.NewSource[any](cfg.Path),
			close:  func() {},
		}
		if cfg.Watch {
			src.watcher = eventfile.NewWatcher(cfg.Path, cfg.Debounce(), logger)
		}
		return src, nil

	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return eventSource{}, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(cfg.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return eventSource{}, fmt.Errorf("redis not ready: %w", err)
		}
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Addrs), zap.String("key", cfg.Key))
		return eventSource{
			loader: eventlist.New[any](store, cfg.Key),
			pinger: store,
			close:  store.Close,
		}, nil

	default:
		return eventSource{close: func() {}}, nil
	}
}

// buildRouter assembles the middleware chain around the API routes.
func buildRouter(server *chiTransport.Server, cfg config.Config, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORSMiddleware(cfg.HTTP.CORSOrigins))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(chiTransport.RateLimitMiddleware(chiTransport.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RPS,
		Burst:             cfg.RateLimit.Burst,
	}))
	r.Use(metrics.Middleware())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"not_found","message":"route not found"}` + "\n"))
	})
	server.Register(r)
	return r
}
