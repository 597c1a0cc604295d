// Package app wires configuration, storage, use cases and the HTTP server together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/url-registry/internal/config"
	"github.com/vadimbarashkov/url-registry/internal/usecase"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/url-registry/internal/adapter/delivery/http"
)

const shutdownTimeout = 10 * time.Second

// NewLogger builds the structured logger shared by request logging and lifecycle events.
func NewLogger(cfg *config.Config) *httplog.Logger {
	return httplog.NewLogger("url-registry", httplog.Options{
		LogLevel:        cfg.Log.SlogLevel(),
		JSON:            cfg.Log.JSON,
		Concise:         !cfg.Log.JSON,
		RequestHeaders:  cfg.Env != config.EnvProd,
		QuietDownRoutes: []string{"/ping", "/metrics"},
		QuietDownPeriod: 10 * time.Second,
		Tags: map[string]string{
			"env": cfg.Env,
		},
	})
}

// Run serves the HTTP API until ctx is cancelled, then shuts the server down
// and releases the storage connection.
func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: failed to open storage: %w", op, err)
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			logger.Error("failed to close storage", slog.String("op", op), slog.Any("err", err))
		}
	}()

	urlUseCase := usecase.New(cfg.ShortCodeLength, st.urlRepo)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, urlUseCase),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", server.Addr),
			slog.String("storage", cfg.Storage.Driver),
		)

		var err error

		if cfg.HTTPServer.CertFile != "" && cfg.HTTPServer.KeyFile != "" {
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

// Migrate prepares the configured storage schema: SQL migrations for postgres,
// indexes for mongo.
func Migrate(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Migrate"

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: failed to prepare storage: %w", op, err)
	}

	if err := st.close(ctx); err != nil {
		return fmt.Errorf("%s: failed to close storage: %w", op, err)
	}

	return nil
}
