package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tinoosan/mika/internal/cache"
	"github.com/tinoosan/mika/internal/events"
	"github.com/tinoosan/mika/internal/maintenance"
	"github.com/tinoosan/mika/internal/metrics"
	"github.com/tinoosan/mika/internal/repo"
	"github.com/tinoosan/mika/internal/router"
	"github.com/tinoosan/mika/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the tracker API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	store := a.store()
	defer func() { _ = store.Close() }()
	if err := store.Ping(ctx); err != nil {
		a.log.Warn("cache store not reachable yet", "addr", a.cfg.Redis.Addr, "err", err)
	}

	if a.cfg.Warmup.OnStart {
		if _, err := a.warmup(ctx, store); err != nil {
			return err
		}
	}

	if sched := a.cfg.Maintenance.Schedule; sched != "" {
		s := maintenance.NewScheduler(a.log, maintenance.New(a.log, store).Cleanup, sched, maintenance.Options{
			Delete: a.cfg.Maintenance.Delete,
			Update: a.cfg.Maintenance.Update,
		})
		if err := s.Run(); err != nil {
			return fmt.Errorf("maintenance.schedule: %w", err)
		}
		defer s.Stop()
	}

	metrics.Register()
	server := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.handler(store),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(a.log.Handler(), slog.LevelError),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting mika api", "addr", server.Addr, "version", a.version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.log.Info("received terminate, graceful shutdown")

	sctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *app) handler(store cache.Store) http.Handler {
	hub := events.NewHub(64)
	return router.New(a.log, router.Services{
		Torrents:  service.NewTorrent(repo.NewCacheTorrentRepo(store), hub),
		Users:     service.NewUser(repo.NewCacheUserRepo(store), hub),
		Whitelist: service.NewWhitelist(repo.NewCacheWhitelistRepo(store), hub),
		Stats:     repo.NewCacheStatsRepo(store),
		Events:    hub,
		Version:   a.version,
		Started:   time.Now(),
	}, router.Options{
		APIRoot:  a.cfg.Server.APIRoot,
		APIToken: a.cfg.Server.APIToken,
		Ping:     store.Ping,
	})
}
