package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/ahmad-alkadri/image-depot/internal/config"
	"github.com/ahmad-alkadri/image-depot/internal/logging"
	"github.com/ahmad-alkadri/image-depot/internal/services"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("image-depot", pflag.ContinueOnError)
	envFile := flags.String("env-file", config.GetEnv("ENV_FILE", ".env"), "dotenv file loaded before reading the environment")
	storageDir := flags.String("storage-dir", "", "directory used by the fs backend (overrides STORAGE_DIR)")
	port := flags.Int("port", 0, "listen port (overrides SERVER_PORT)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Overload so the file wins over whatever the shell exported.
	if err := godotenv.Overload(*envFile); err != nil {
		slog.Info("no .env file loaded, using environment variables", "file", *envFile)
	} else {
		slog.Info("loaded .env file", "file", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if flags.Changed("storage-dir") {
		cfg.Storage.Dir = *storageDir
	}
	if flags.Changed("port") {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"backend", cfg.Storage.Backend,
		"upload_max_body_size", cfg.Upload.MaxBodySize,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
	)

	ctx := context.Background()
	detector := services.NewDefaultContentTypeDetector()

	store, err := newImageStore(ctx, cfg, detector)
	if err != nil {
		return err
	}
	slog.Info("storage ready", "location", store.Location())

	limiter := services.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	imageService := services.NewDefaultImageService(store, detector, services.NewUUIDGenerator(), services.Options{
		Extension:    cfg.Storage.Extension,
		PublicPrefix: cfg.Storage.PublicPrefix,
		MaxBodySize:  cfg.Upload.MaxBodySize,
		Limiter:      limiter,
	})

	handler := NewHTTPHandler(imageService, NewDefaultResponseFormatter(), cfg.Upload.MaxBodySize)

	server := &http.Server{
		Addr:        cfg.Server.Addr(),
		Handler:     NewRouter(handler, cfg.Server.RequestTimeout),
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("shutting down...", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for uploads to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	<-done
	slog.Info("server stopped")
	return nil
}

// newImageStore builds the backend selected by STORAGE_BACKEND.
func newImageStore(ctx context.Context, cfg *config.Config, detector services.ContentTypeDetector) (services.ImageStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMinio:
		store, err := services.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("initialize MinIO store: %w", err)
		}
		return store, nil
	default:
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		store, err := services.NewFileStore(cfg.Storage.Dir, detector)
		if err != nil {
			return nil, fmt.Errorf("initialize file store: %w", err)
		}
		return store, nil
	}
}
