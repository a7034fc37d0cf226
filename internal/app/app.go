package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"contract-collab-service/internal/config"
	"contract-collab-service/internal/health"
	"contract-collab-service/internal/observability"
	"contract-collab-service/internal/repository"
)

// App is the fully assembled service and the handles its lifecycle needs.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Tokens        repository.TokenRepository
	Observability *observability.Runtime
	Readiness     *health.ProbeRunner
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	tokens repository.TokenRepository,
	runtime *observability.Runtime,
	readiness *health.ProbeRunner,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Tokens:        tokens,
		Observability: runtime,
		Readiness:     readiness,
	}
}

// Run serves HTTP and runs background maintenance until ctx is cancelled,
// then drains in-flight requests within the configured grace period.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		a.runTokenSweep(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownGracePeriod)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.Logger.Error("http server shutdown", "error", err)
		}
		if a.Observability != nil {
			if err := a.Observability.Shutdown(shutdownCtx); err != nil {
				a.Logger.Error("observability shutdown", "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}

// runTokenSweep deletes expired portal access tokens on an interval.
// A missed sweep is harmless; expired rows are already unredeemable.
func (a *App) runTokenSweep(ctx context.Context) {
	if a.Config.TokenSweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.Config.TokenSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.Tokens.DeleteExpired(time.Now().UTC())
			if err != nil {
				a.Logger.Error("token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				a.Logger.Info("token sweep removed expired tokens", "count", removed)
			}
		}
	}
}
