package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/luftkuhl/ninethree-backend/internal/observability"
	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
)

// App owns the fully wired server and its shutdown sequence.
type App struct {
	Log      *logger.Logger
	Config   Config
	Clients  *Clients
	Services *Services

	httpServer   *http.Server
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.Mode)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	otelShutdown, err := observability.Setup(ctx, log)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}

	clients, err := wireClients(ctx, log)
	if err != nil {
		return nil, err
	}
	svcs, err := wireServices(log, cfg, clients)
	if err != nil {
		return nil, err
	}
	mw := wireMiddleware(log, svcs)
	h := wireHandlers(log, svcs)
	router := wireRouter(cfg, mw, h)

	return &App{
		Log:      log,
		Config:   cfg,
		Clients:  clients,
		Services: svcs,
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", "addr", a.httpServer.Addr, "mode", a.Config.Mode)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if otelErr := a.otelShutdown(shutdownCtx); otelErr != nil {
		a.Log.Warn("tracer shutdown failed", "error", otelErr.Error())
	}
	a.Log.Sync()
	return err
}
