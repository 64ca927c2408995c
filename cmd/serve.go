package cmd

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"furnishop-backend/internal/api"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP API",
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	rt, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openObjectStore(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	defer closeStore()

	cache, closeCache := openCache(ctx, rt.cfg, rt.logger)
	defer closeCache()

	svc := api.NewServices(rt.cfg, rt.db, store, cache, rt.logger)
	defer svc.Events.Close()

	server := &http.Server{
		Addr:              ":" + rt.cfg.Port,
		Handler:           api.NewRouter(rt.cfg, rt.db, svc, rt.logger),
		ReadHeaderTimeout: 10 * time.Second,
		// Model uploads are large
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.WithField("port", rt.cfg.Port).Info("FurniShop API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "server failed")
		}
		return nil
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	rt.logger.Info("server shutdown complete")
	return nil
}
