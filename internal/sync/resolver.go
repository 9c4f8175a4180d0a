package sync

import (
	"context"
	"log/slog"

	"github.com/inkwell-app/inkwell-sync/internal/manifest"
)

// transferrer is the slice of Transfer the resolver needs.
type transferrer interface {
	Upload(ctx context.Context, it manifest.Item) error
	Download(ctx context.Context, it manifest.Item) error
}

// lastWriterWins decides a conflict: true means the local side uploads,
// false means the remote side downloads. Remote wins only when strictly
// newer; ties go to local. The loser's edits are discarded with no
// tombstone or version history — this policy is deliberately simple and
// lossy.
func lastWriterWins(c Conflict) bool {
	if c.Remote.RemoteModified == nil {
		return true
	}

	return *c.Remote.RemoteModified <= c.Local.LocalModified
}

// Resolver applies the last-writer-wins policy to conflicting items.
type Resolver struct {
	transfer transferrer
	logger   *slog.Logger
}

// NewResolver creates a resolver executing through the given transfer.
func NewResolver(transfer transferrer, logger *slog.Logger) *Resolver {
	return &Resolver{transfer: transfer, logger: logger}
}

// Resolve performs exactly one of upload(local) or download(remote) and
// returns the winning item along with whether it was uploaded.
func (r *Resolver) Resolve(ctx context.Context, c Conflict) (manifest.Item, bool, error) {
	if lastWriterWins(c) {
		r.logger.Info("conflict: local wins",
			slog.String("id", c.Local.ID),
			slog.Int64("local_modified", c.Local.LocalModified),
		)

		if err := r.transfer.Upload(ctx, c.Local); err != nil {
			return manifest.Item{}, false, err
		}

		return c.Local, true, nil
	}

	r.logger.Info("conflict: remote wins",
		slog.String("id", c.Remote.ID),
		slog.Int64("remote_modified", *c.Remote.RemoteModified),
	)

	if err := r.transfer.Download(ctx, c.Remote); err != nil {
		return manifest.Item{}, false, err
	}

	return c.Remote, false, nil
}
