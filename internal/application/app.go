// Package application wires configuration, the workbook reader, the audit
// log and the HTTP server into a runnable lookup service.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/nthmin/internal/audit"
	"github.com/JonMunkholm/nthmin/internal/config"
	"github.com/JonMunkholm/nthmin/internal/core"
	"github.com/JonMunkholm/nthmin/internal/web"
	"github.com/JonMunkholm/nthmin/internal/xlsx"
	"golang.org/x/sync/errgroup"
)

// App is a fully wired lookup service.
type App struct {
	cfg     *config.Config
	service *core.Service
	server  *web.Server
	store   *audit.Store
}

// NewService builds the lookup service described by cfg. The recorder
// receives one record per lookup; nil disables auditing.
func NewService(cfg *config.Config, recorder core.AuditRecorder) *core.Service {
	return core.NewService(
		xlsx.NewReader(cfg.Query.MaxRows),
		core.WithLimiter(core.NewQueryLimiter(cfg.Query.MaxConcurrent, cfg.Query.MaxWaitTime)),
		core.WithRecorder(recorder),
		core.WithTimeout(cfg.Query.Timeout),
	)
}

// New connects to the audit database when one is configured and builds the
// service and HTTP server. Without a database, audit records go to the log.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{cfg: cfg}

	var recorder core.AuditRecorder = core.LogRecorder{}
	var opts []web.ServerOption

	if cfg.Database.Enabled() {
		store, err := audit.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		slog.Info("audit database connected")

		app.store = store
		recorder = store
		opts = append(opts, web.WithAuditLog(store))
	} else {
		slog.Info("no database configured, audit records go to the log")
	}

	app.service = NewService(cfg, recorder)
	app.server = web.NewServer(app.service, cfg, opts...)
	return app, nil
}

// Service returns the lookup service.
func (a *App) Service() *core.Service {
	return a.service
}

// Run serves HTTP until ctx is cancelled, then drains in-flight lookups and
// shuts the server down within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	slog.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Wait for active lookups to complete (with timeout)
	if status := a.service.LimiterStatus(); status.Active > 0 {
		slog.Info("waiting for lookups to complete", "active", status.Active)
		if err := a.service.WaitForQueries(ctx); err != nil {
			slog.Warn("lookups did not complete in time", "error", err)
		} else {
			slog.Info("all lookups completed")
		}
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the audit database pool, if any.
func (a *App) Close() {
	if a.store != nil {
		a.store.Close()
	}
}
