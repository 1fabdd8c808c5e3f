// Package app composes the store, service, and HTTP server into one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"todoapi/pkg/config"
	"todoapi/pkg/httpapi"
	"todoapi/pkg/storage/memstore"
	"todoapi/pkg/todo"
)

// Run starts the service and blocks until the listener fails or ctx is
// canceled, in which case the server drains in-flight requests before
// returning.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if logger == nil {
		// The logger is optional so tests can stay quiet while production
		// still reports activity.
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}

	store := memstore.New(memstore.Config{
		Limits: todo.Limits{
			MaxTitleLen:       cfg.Store.MaxTitleLength,
			MaxDescriptionLen: cfg.Store.MaxDescriptionLength,
		},
		DefaultLimit: cfg.Store.DefaultPageLimit,
		MaxLimit:     cfg.Store.MaxPageLimit,
	})

	service := todo.NewService(store)
	defer service.Close()

	srv, err := httpapi.New(service, logger, httpapi.Options{
		AllowedOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return fmt.Errorf("unable to build http server: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout.Std(),
		WriteTimeout: cfg.WriteTimeout.Std(),
		IdleTimeout:  cfg.IdleTimeout.Std(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("todo service listening", "addr", cfg.Listen, "tls", cfg.TLSCert != "")
		var err error
		if cfg.TLSCert != "" {
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server stopped unexpectedly: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "grace", cfg.ShutdownGrace.Std())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace.Std())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-serveErr
	return nil
}
