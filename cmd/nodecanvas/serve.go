package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nodecanvas/internal/config"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/handler"
	"nodecanvas/internal/hub"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/repository"
	"nodecanvas/internal/service"
	"nodecanvas/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var (
		addr   string
		dbPath string
		seed   string
		watch  bool
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the surface over HTTP, SSE and websocket",
		Long: "Serve the REST API under /api, frames and input over /ws, change\n" +
			"events over /events and Prometheus metrics over /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if flags.Changed("db") {
				cfg.Database.Path = dbPath
			}
			if flags.Changed("seed") {
				cfg.Graph.Seed = seed
			}
			if flags.Changed("watch") {
				cfg.Graph.Watch = watch
			}
			return runServer(cmd.Context(), cfg, reset)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path, empty for memory only (overrides database.path)")
	cmd.Flags().StringVar(&seed, "seed", "", "graph document loaded when the database is empty (overrides graph.seed)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the seed document when it changes (overrides graph.watch)")
	cmd.Flags().BoolVar(&reset, "reset", false, "discard the stored graph and load the seed again")
	return cmd
}

func runServer(parent context.Context, cfg *config.Config, reset bool) error {
	log := logging.Named("server")
	log.Infow("starting", "addr", cfg.Server.Addr, "database", cfg.Database.Path, "seed", cfg.Graph.Seed)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := service.NewEventBus()
	svc, closeStore, err := openService(ctx, cfg, bus, reset)
	if err != nil {
		return err
	}
	defer closeStore()

	events := hub.New(hub.WithKeepAlive(cfg.Server.KeepAlive.Duration()))
	go events.Run(ctx)
	go handler.Relay(ctx, bus, events)

	if cfg.Graph.Watch && cfg.Graph.Seed != "" {
		w := watcher.New(cfg.Graph.Seed, func(path string) {
			counts, err := svc.LoadFile(ctx, path, repository.StrategyReplace)
			if err != nil {
				log.Warnw("seed reload failed", "path", path, "error", err)
				return
			}
			log.Infow("seed reloaded", "path", path, "nodes", counts["nodes_created"], "edges", counts["edges_created"])
		}, watcher.WithDebounce(cfg.Graph.Debounce.Duration()))
		go func() {
			if err := w.Watch(ctx); err != nil {
				log.Errorw("watcher stopped", "error", err)
			}
		}()
	}

	router := handler.NewRouter(
		handler.NewSurfaceHandler(svc),
		handler.NewSocketHandler(svc, events),
		events,
		logging.Named("http"),
	)

	// No write timeout: /events and /ws stay open for the life of the client.
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Wrap(err, "server error")
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("shutdown error", "error", err)
	}

	log.Info("server stopped")
	return nil
}
