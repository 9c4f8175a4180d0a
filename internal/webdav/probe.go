package webdav

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CheckConnection runs the interactive connectivity and auth pre-flight:
// a ping, then a write/read/remove round trip of a probe file in the
// scratch area. It is a separate operation from a sync run; a run never
// requires it.
func CheckConnection(ctx context.Context, t Transport, layout Layout) error {
	if err := t.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	if err := t.Mkdir(ctx, layout.ScratchPath("")); err != nil {
		// Tolerated: already-exists is indistinguishable from failure
		// without a stat, and the write below will surface real problems.
		_ = err
	}

	probe := layout.ScratchPath("probe-" + uuid.NewString() + ".txt")
	payload := []byte("inkwell-sync connection probe")

	if err := t.Write(ctx, probe, payload); err != nil {
		return fmt.Errorf("probe write failed: %w", err)
	}

	got, err := t.Read(ctx, probe)
	if err != nil {
		return fmt.Errorf("probe read failed: %w", err)
	}

	if !bytes.Equal(got, payload) {
		return fmt.Errorf("probe content mismatch: wrote %d bytes, read %d", len(payload), len(got))
	}

	if err := t.Remove(ctx, probe); err != nil {
		return fmt.Errorf("probe cleanup failed: %w", err)
	}

	return nil
}
