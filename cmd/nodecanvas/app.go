package main

import (
	"context"

	"go.uber.org/zap"

	"nodecanvas/internal/config"
	"nodecanvas/internal/errors"
	"nodecanvas/internal/logging"
	"nodecanvas/internal/metrics"
	"nodecanvas/internal/repository"
	"nodecanvas/internal/repository/sqlite"
	"nodecanvas/internal/service"
	"nodecanvas/internal/surface"
)

// seedKey is the metadata key recording which document seeded the database.
const seedKey = "seed"

// openService builds the surface and its service from cfg. The graph is
// restored from the database when one is configured and not empty, otherwise
// the seed document is loaded. With reset the stored graph is discarded first.
// The returned func closes the store.
func openService(ctx context.Context, cfg *config.Config, bus *service.EventBus, reset bool) (*service.SurfaceService, func(), error) {
	log := logging.Named("app")

	palette, err := cfg.Palette()
	if err != nil {
		return nil, nil, err
	}

	sf := surface.New(
		surface.WithSizing(cfg.Sizing()),
		surface.WithRouter(cfg.Router()),
		surface.WithObserver(metrics.Observer{}),
		surface.WithLogger(logging.Named("surface")),
	)

	svcOpts := []service.Option{
		service.WithTheme(palette),
		service.WithZoomClamp(cfg.ClampZoom),
	}
	var repo *sqlite.Repository
	closeStore := func() {}
	if cfg.Database.Path != "" {
		repo, err = sqlite.New(cfg.Database.Path)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to open database %s", cfg.Database.Path)
		}
		log.Infow("database opened", "path", cfg.Database.Path)
		svcOpts = append(svcOpts, service.WithRepository(repo))
		closeStore = func() {
			if err := repo.Close(); err != nil {
				log.Warnw("failed to close database", "error", err)
			}
		}
		if reset {
			if err := repo.ClearGraph(ctx); err != nil {
				closeStore()
				return nil, nil, errors.Wrap(err, "failed to reset database")
			}
			log.Infow("stored graph discarded", "path", cfg.Database.Path)
		}
	}

	svc := service.NewSurfaceService(sf, bus, svcOpts...)

	restored, err := svc.Restore(ctx)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if restored {
		warnSeedMismatch(ctx, log, repo, cfg.Graph.Seed)
		return svc, closeStore, nil
	}
	if cfg.Graph.Seed != "" {
		counts, err := svc.LoadFile(ctx, cfg.Graph.Seed, repository.StrategyReplace)
		if err != nil {
			closeStore()
			return nil, nil, errors.Wrapf(err, "failed to load seed %s", cfg.Graph.Seed)
		}
		log.Infow("seed loaded", "path", cfg.Graph.Seed, "nodes", counts["nodes_created"], "edges", counts["edges_created"])
		if repo != nil {
			if err := repo.SetMetadata(ctx, seedKey, cfg.Graph.Seed); err != nil {
				log.Warnw("failed to record seed", "error", err)
			}
		}
	}
	return svc, closeStore, nil
}

// warnSeedMismatch logs when the restored graph came from a different seed
// than the one configured, since the configured seed is then ignored.
func warnSeedMismatch(ctx context.Context, log *zap.SugaredLogger, repo *sqlite.Repository, seed string) {
	if repo == nil || seed == "" {
		return
	}
	var stored string
	ok, err := repo.GetMetadata(ctx, seedKey, &stored)
	if err != nil {
		log.Warnw("failed to read seed metadata", "error", err)
		return
	}
	if ok && stored != seed {
		log.Warnw("database was seeded from a different document; pass --reset to reload", "stored", stored, "configured", seed)
	}
}
