package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/infra/config"
	apperrors "github.com/tharunkamalesh/crop-yield-platform-devops/pkg/errors"
)

// App encapsulates the HTTP server lifecycle and the background sync loop.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	svc    advisor.Service
	queue  *syncqueue.Queue
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, svc advisor.Service, queue *syncqueue.Queue) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With("component", "bootstrap"),
		server: server,
		svc:    svc,
		queue:  queue,
	}
}

// Run starts the HTTP server and the periodic sync loop, and blocks until
// shutdown. On shutdown the queue snapshot is flushed one last time.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	syncCtx, stopSync := context.WithCancel(ctx)
	defer stopSync()
	go a.autoSync(syncCtx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := a.queue.Flush(shutdownCtx); err != nil {
			a.logger.Error("queue flush on shutdown failed", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// autoSync periodically drains the queue when connectivity returns. Expected
// conditions like an outage or an already running pass are not errors here.
func (a *App) autoSync(ctx context.Context) {
	interval := a.cfg.Queue.AutoSyncInterval
	if interval <= 0 {
		a.logger.Info("automatic sync disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := a.svc.SyncNow(ctx)
			if err != nil {
				if apperrors.IsCode(err, "sync_unavailable") || apperrors.IsCode(err, "sync_in_flight") {
					continue
				}
				a.logger.Error("automatic sync failed", "error", err)
				continue
			}
			if report.Succeeded > 0 || report.Failed > 0 {
				a.logger.Info("automatic sync pass", "succeeded", report.Succeeded, "failed", report.Failed)
			}
		}
	}
}
