package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/inkwell-app/inkwell-sync/internal/errors"
	"github.com/inkwell-app/inkwell-sync/internal/filestore"
	"github.com/inkwell-app/inkwell-sync/internal/journal"
	"github.com/inkwell-app/inkwell-sync/internal/manifest"
	"github.com/inkwell-app/inkwell-sync/internal/state"
	"github.com/inkwell-app/inkwell-sync/internal/webdav"
)

// EngineConfig selects what one engine syncs.
type EngineConfig struct {
	// ConfigID identifies the sync configuration; it keys the local
	// manifest file, the remote manifest's configId field and the run
	// state record.
	ConfigID string

	// JournalIDs are the journals enabled for sync.
	JournalIDs []string

	// SyncAttachments controls whether attachment files are tracked and
	// transferred.
	SyncAttachments bool
}

// Engine orchestrates one sync configuration end to end. It is an
// explicitly constructed session object: one engine per configuration,
// no shared globals, so independent configurations can run concurrently
// as long as each owns its transport and manifest file.
//
// A run is strictly sequential: manifests are loaded, a plan is
// computed, then uploads, downloads and conflict resolutions execute one
// item at a time. Cancellation is observed between items, never
// mid-transfer, to avoid half-written remote files.
type Engine struct {
	cfg       EngineConfig
	builder   *Builder
	transfer  *Transfer
	resolver  *Resolver
	manifests *manifest.Store
	remote    webdav.Transport
	layout    webdav.Layout
	runs      *state.State
	logger    *slog.Logger

	now func() int64
}

// NewEngine wires an engine from its collaborators.
func NewEngine(cfg EngineConfig, store journal.Store, files *filestore.Store, remote webdav.Transport, layout webdav.Layout, manifests *manifest.Store, runs *state.State, logger *slog.Logger) *Engine {
	logger = logger.With(slog.String("config", cfg.ConfigID))
	transfer := NewTransfer(store, files, remote, layout, logger)

	return &Engine{
		cfg:       cfg,
		builder:   NewBuilder(store, files, manifests, logger),
		transfer:  transfer,
		resolver:  NewResolver(transfer, logger),
		manifests: manifests,
		remote:    remote,
		layout:    layout,
		runs:      runs,
		logger:    logger,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// PerformSync runs one full sync cycle and returns the final status.
// Partial transfers are not rolled back on failure: a retry re-plans
// from fresh manifests and resumes, giving at-least-once semantics.
func (e *Engine) PerformSync(ctx context.Context, progress ProgressFunc) (Status, error) {
	locker := e.manifests.Locker(e.cfg.ConfigID)
	locker.Lock()
	defer locker.Unlock()

	rs, err := e.runs.Run(e.cfg.ConfigID)
	if err != nil {
		return Status{State: StateFailed, ErrorMessage: err.Error()}, err
	}

	st := Status{State: StateIdle, LastSuccessAt: rs.LastSuccessAt}

	report := func() {
		if progress != nil {
			progress(st)
		}
	}

	fail := func(err error) (Status, error) {
		st.State = StateFailed
		st.ErrorMessage = err.Error()
		report()

		rs.LastError = err.Error()
		if serr := e.runs.SetRun(e.cfg.ConfigID, rs); serr != nil {
			e.logger.Warn("persisting run state", slog.String("error", serr.Error()))
		}

		e.logger.Error("sync failed", slog.String("error", err.Error()))

		return st, err
	}

	e.logger.Info("sync starting", slog.Int("journals", len(e.cfg.JournalIDs)))

	st.State = StateChecking
	report()

	e.ensureRemoteDirs(ctx)

	existing, err := e.manifests.Load(e.cfg.ConfigID)
	if err != nil {
		return fail(fmt.Errorf("loading local manifest: %w", err))
	}

	local, err := e.builder.Build(ctx, existing, e.cfg.ConfigID, e.cfg.JournalIDs, e.cfg.SyncAttachments)
	if err != nil {
		return fail(fmt.Errorf("building local manifest: %w", err))
	}

	remote, ok, err := e.fetchRemoteManifest(ctx)
	if err != nil {
		return fail(err)
	}

	if !ok {
		e.logger.Info("no remote manifest, treating as first sync")
	}

	plan := BuildPlan(local, remote)
	st.TotalItems = plan.TotalItems()

	e.logger.Info("plan computed",
		slog.Int("uploads", len(plan.Uploads)),
		slog.Int("downloads", len(plan.Downloads)),
		slog.Int("conflicts", len(plan.Conflicts)),
	)

	st.State = StateSyncing
	report()

	merged := local

	for _, it := range plan.Uploads {
		if ctx.Err() != nil {
			return e.cancelled(&st, merged, report)
		}

		st.State = StateUploading
		st.CurrentItem = it.ID
		report()

		if err := e.applyTransfer(merged, it, true, e.transfer.Upload(ctx, it), &st); err != nil {
			return fail(err)
		}

		report()
	}

	for _, it := range plan.Downloads {
		if ctx.Err() != nil {
			return e.cancelled(&st, merged, report)
		}

		st.State = StateDownloading
		st.CurrentItem = it.ID
		report()

		if err := e.applyTransfer(merged, it, false, e.transfer.Download(ctx, it), &st); err != nil {
			return fail(err)
		}

		report()
	}

	if len(plan.Conflicts) > 0 {
		st.State = StateResolving
		st.CurrentItem = ""
		report()

		for _, c := range plan.Conflicts {
			if ctx.Err() != nil {
				return e.cancelled(&st, merged, report)
			}

			st.CurrentItem = c.Local.ID
			report()

			winner, uploaded, err := e.resolver.Resolve(ctx, c)
			if err := e.applyTransfer(merged, pickConflictItem(c, winner, err), uploaded, err, &st); err != nil {
				return fail(err)
			}

			report()
		}
	}

	now := e.now()
	merged.LastUpdated = now

	data, err := merged.Encode()
	if err != nil {
		return fail(fmt.Errorf("encoding merged manifest: %w", err))
	}

	if err := e.remote.Write(ctx, e.layout.ManifestPath(), data); err != nil {
		return fail(apperrors.Transport("upload manifest", err))
	}

	if err := e.manifests.Save(merged); err != nil {
		return fail(fmt.Errorf("persisting merged manifest: %w", err))
	}

	rs.LastSuccessAt = now
	rs.LastError = ""
	rs.CompletedRuns++

	if err := e.runs.SetRun(e.cfg.ConfigID, rs); err != nil {
		e.logger.Warn("persisting run state", slog.String("error", err.Error()))
	}

	st.State = StateCompleted
	st.CurrentItem = ""
	st.LastSuccessAt = now
	report()

	e.logger.Info("sync complete",
		slog.Int("completed", st.CompletedItems),
		slog.Int("failed", st.FailedItems),
		slog.Int("total", st.TotalItems),
	)

	return st, nil
}

// applyTransfer folds one transfer result into the merged manifest and
// the running status. Missing-file and serialization failures are
// isolated: the item is marked errored and the batch continues.
// Transport and store failures abort the run.
func (e *Engine) applyTransfer(merged *manifest.Manifest, it manifest.Item, uploaded bool, err error, st *Status) error {
	if err != nil {
		switch apperrors.KindOf(err) {
		case apperrors.KindMissingFile, apperrors.KindSerialization:
			e.logger.Warn("item failed, continuing",
				slog.String("id", it.ID),
				slog.String("error", err.Error()),
			)

			it.SyncStatus = manifest.StatusError
			merged.Add(it)

			st.FailedItems++
			st.CompletedItems++

			return nil
		default:
			return err
		}
	}

	now := e.now()

	if uploaded {
		it.SetRemote(it.LocalHash, it.LocalModified)
	} else {
		// Local content now matches the remote side.
		h := remoteHash(it)
		it.LocalHash = h

		if it.RemoteModified != nil {
			it.LocalModified = *it.RemoteModified
		}

		it.SetRemote(h, it.LocalModified)
	}

	it.SyncStatus = manifest.StatusSynced
	it.LastSynced = now
	merged.Add(it)

	st.CompletedItems++

	return nil
}

// pickConflictItem chooses which side of a conflict to record in the
// merged manifest. On resolver failure the local view is recorded as
// errored so the item is retried next run.
func pickConflictItem(c Conflict, winner manifest.Item, err error) manifest.Item {
	if err != nil {
		return c.Local
	}

	return winner
}

// cancelled finalizes a run aborted by the caller between items. The
// manifest is persisted locally so completed transfers are not
// re-planned from scratch next run.
func (e *Engine) cancelled(st *Status, merged *manifest.Manifest, report func()) (Status, error) {
	if err := e.manifests.Save(merged); err != nil {
		e.logger.Warn("persisting manifest after cancel", slog.String("error", err.Error()))
	}

	st.State = StateCancelled
	st.CurrentItem = ""
	report()

	e.logger.Info("sync cancelled",
		slog.Int("completed", st.CompletedItems),
		slog.Int("total", st.TotalItems),
	)

	return *st, context.Canceled
}

// fetchRemoteManifest reads the remote manifest.json. Absence and
// malformed content both report (nil, false, nil): not an error, just
// the first-sync path. A manifest written by a newer schema version
// fails the run rather than being clobbered with this build's format.
func (e *Engine) fetchRemoteManifest(ctx context.Context) (*manifest.Manifest, bool, error) {
	data, err := e.remote.Read(ctx, e.layout.ManifestPath())
	if err != nil {
		if webdav.IsNotFound(err) {
			return nil, false, nil
		}

		return nil, false, apperrors.Transport("fetch remote manifest", err)
	}

	if !gjson.ValidBytes(data) {
		e.logger.Warn("remote manifest is not valid JSON, treating as absent")
		return nil, false, nil
	}

	if v := gjson.GetBytes(data, "version"); v.Exists() && v.Int() > manifest.CurrentVersion {
		return nil, false, apperrors.Serialization("fetch remote manifest",
			fmt.Errorf("%w: remote version %d", apperrors.ErrManifestVersion, v.Int()))
	}

	m, err := manifest.Decode(data)
	if err != nil {
		e.logger.Warn("remote manifest malformed, treating as absent",
			slog.String("error", err.Error()))

		return nil, false, nil
	}

	return m, true, nil
}

// ensureRemoteDirs creates the fixed remote directory set. Errors are
// tolerated: "already exists" is indistinguishable from failure without
// a stat, and a real connectivity problem surfaces on the first write.
func (e *Engine) ensureRemoteDirs(ctx context.Context) {
	for _, dir := range e.layout.RequiredDirs() {
		if err := e.remote.Mkdir(ctx, dir); err != nil {
			e.logger.Debug("mkdir tolerated failure",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
		}
	}
}
