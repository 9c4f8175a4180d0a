package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inkwell-app/inkwell-sync/internal/config"
	"github.com/inkwell-app/inkwell-sync/internal/filestore"
	"github.com/inkwell-app/inkwell-sync/internal/journal"
	"github.com/inkwell-app/inkwell-sync/internal/logging"
	"github.com/inkwell-app/inkwell-sync/internal/manifest"
	"github.com/inkwell-app/inkwell-sync/internal/state"
	"github.com/inkwell-app/inkwell-sync/internal/sync"
	"github.com/inkwell-app/inkwell-sync/internal/webdav"
)

var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return fmt.Errorf("loading targets: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && os.Args[1] == "test-connection" {
		return testConnections(ctx, targets, logger)
	}

	logger.Info("inkwell-sync starting",
		slog.String("version", Version),
		slog.Int("targets", len(targets)),
		slog.Duration("interval", cfg.SyncInterval),
	)

	store, err := journal.Open(cfg.JournalDB)
	if err != nil {
		return fmt.Errorf("opening journal database: %w", err)
	}
	defer store.Close()

	runs, err := state.LoadAt(cfg.StateDB())
	if err != nil {
		return fmt.Errorf("loading run state: %w", err)
	}
	defer runs.Close()

	files := filestore.NewStore(cfg.FilesDir)
	manifests := manifest.NewStore(cfg.ManifestDir())

	engines := buildEngines(targets, store, files, manifests, runs, logger)
	if len(engines) == 0 {
		return fmt.Errorf("no enabled targets in %s", cfg.TargetsFile)
	}

	for {
		if err := syncAll(ctx, engines, logger); err != nil {
			// One failed target should not stop the others or the loop;
			// errors per target were already logged and recorded.
			logger.Warn("sync cycle finished with errors", slog.String("error", err.Error()))
		}

		if cfg.SyncInterval == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-time.After(cfg.SyncInterval):
		}
	}
}

// buildEngines wires one engine per enabled target. Each engine owns its
// own transport; the stores are shared and safe for concurrent use.
func buildEngines(targets []config.Target, store journal.Store, files *filestore.Store, manifests *manifest.Store, runs *state.State, logger *slog.Logger) []*sync.Engine {
	var engines []*sync.Engine

	for _, t := range targets {
		if !t.Enabled {
			logger.Debug("skipping disabled target", slog.String("id", t.ID))
			continue
		}

		remote := webdav.NewClient(t.ServerURL, t.Username, t.Password)
		layout := webdav.NewLayout(t.BasePath)

		engines = append(engines, sync.NewEngine(sync.EngineConfig{
			ConfigID:        t.ID,
			JournalIDs:      t.Journals,
			SyncAttachments: t.SyncAttachments,
		}, store, files, remote, layout, manifests, runs, logger))
	}

	return engines
}

// syncAll runs every engine concurrently and waits for all of them.
// Targets are independent servers, so one slow or failing target must
// not delay or abort the rest.
func syncAll(ctx context.Context, engines []*sync.Engine, logger *slog.Logger) error {
	// A plain group, not WithContext: one target's failure must not
	// cancel the other targets' runs.
	var g errgroup.Group

	for _, e := range engines {
		e := e
		g.Go(func() error {
			_, err := e.PerformSync(ctx, func(st sync.Status) {
				logger.Debug("progress",
					slog.String("state", string(st.State)),
					slog.String("item", st.CurrentItem),
					slog.Int("completed", st.CompletedItems),
					slog.Int("total", st.TotalItems),
				)
			})

			return err
		})
	}

	return g.Wait()
}

// testConnections probes every enabled target and reports per-target
// results, failing if any probe failed.
func testConnections(ctx context.Context, targets []config.Target, logger *slog.Logger) error {
	var failed int

	for _, t := range targets {
		if !t.Enabled {
			continue
		}

		remote := webdav.NewClient(t.ServerURL, t.Username, t.Password)
		layout := webdav.NewLayout(t.BasePath)

		if err := webdav.CheckConnection(ctx, remote, layout); err != nil {
			logger.Error("connection check failed",
				slog.String("id", t.ID),
				slog.String("server", t.ServerURL),
				slog.String("error", err.Error()),
			)

			failed++

			continue
		}

		logger.Info("connection ok",
			slog.String("id", t.ID),
			slog.String("server", t.ServerURL),
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d target(s) failed connection check", failed)
	}

	return nil
}
