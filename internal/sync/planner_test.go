package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell-sync/internal/manifest"
)

// li builds a local-side item as the manifest builder produces it.
func li(id string, modified, lastSynced int64, hash string) manifest.Item {
	return manifest.Item{
		ID:            id,
		Type:          manifest.TypeEntry,
		Path:          "entries/2024/03/" + id + ".json",
		LocalModified: modified,
		LocalHash:     hash,
		SyncStatus:    manifest.StatusNeedsSync,
		LastSynced:    lastSynced,
	}
}

// ri builds a remote-manifest item as another device uploads it: remote
// fields stamped after its own transfer.
func ri(id string, modified int64, hash string) manifest.Item {
	it := li(id, modified, modified, hash)
	it.SyncStatus = manifest.StatusSynced
	it.SetRemote(hash, modified)
	return it
}

func localManifest(items ...manifest.Item) *manifest.Manifest {
	m := manifest.New("cfg-1")
	for _, it := range items {
		m.Add(it)
	}
	return m
}

func planIDs(items []manifest.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

// --- scenario rules ---

func TestBuildPlan_NilRemoteUploadsEverything(t *testing.T) {
	local := localManifest(li("a", 100, 0, "h1"), li("b", 200, 0, "h2"))

	plan := BuildPlan(local, nil)

	assert.Equal(t, []string{"a", "b"}, planIDs(plan.Uploads))
	assert.Empty(t, plan.Downloads)
	assert.Empty(t, plan.Conflicts)
}

func TestBuildPlan_LocalOnlyItemUploads(t *testing.T) {
	local := localManifest(li("new", 100, 0, "h1"))
	remote := localManifest(ri("other", 100, "h9"))

	plan := BuildPlan(local, remote)

	assert.Equal(t, []string{"new"}, planIDs(plan.Uploads))
	assert.Equal(t, []string{"other"}, planIDs(plan.Downloads))
}

func TestBuildPlan_UnstampedRemoteEntryUploads(t *testing.T) {
	// A remote manifest entry that was never stamped after a transfer
	// carries no fetchable content.
	unstamped := li("a", 100, 0, "h1")
	local := localManifest(li("a", 300, 200, "h2"))
	remote := localManifest(unstamped)

	plan := BuildPlan(local, remote)

	assert.Equal(t, []string{"a"}, planIDs(plan.Uploads))
	assert.Empty(t, plan.Downloads)
	assert.Empty(t, plan.Conflicts)
}

func TestBuildPlan_LocalNewerUploads(t *testing.T) {
	// Remote hasn't moved since last reconcile (rm == lastSynced).
	local := localManifest(li("a", 300, 200, "h2"))
	remote := localManifest(ri("a", 200, "h1"))

	plan := BuildPlan(local, remote)

	assert.Equal(t, []string{"a"}, planIDs(plan.Uploads))
	assert.Empty(t, plan.Conflicts)
}

func TestBuildPlan_RemoteNewerDownloads(t *testing.T) {
	local := localManifest(li("a", 100, 100, "h1"))
	remote := localManifest(ri("a", 300, "h2"))

	plan := BuildPlan(local, remote)

	assert.Empty(t, plan.Uploads)
	require.Len(t, plan.Downloads, 1)
	// The download carries the remote view, not the stale local one.
	assert.Equal(t, "h2", plan.Downloads[0].LocalHash)
}

func TestBuildPlan_BothModifiedIsConflict(t *testing.T) {
	// Local moved past remote, and remote moved past the last reconcile.
	local := localManifest(li("a", 400, 100, "h2"))
	remote := localManifest(ri("a", 300, "h3"))

	plan := BuildPlan(local, remote)

	assert.Empty(t, plan.Uploads)
	assert.Empty(t, plan.Downloads)
	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, ConflictBothModified, plan.Conflicts[0].Type)
	assert.Equal(t, "h2", plan.Conflicts[0].Local.LocalHash)
	assert.Equal(t, "h3", plan.Conflicts[0].Remote.LocalHash)
}

func TestBuildPlan_TieEqualHashNoAction(t *testing.T) {
	local := localManifest(li("a", 200, 200, "h1"))
	remote := localManifest(ri("a", 200, "h1"))

	plan := BuildPlan(local, remote)

	assert.Zero(t, plan.TotalItems())
}

func TestBuildPlan_TieDifferingHashUploads(t *testing.T) {
	local := localManifest(li("a", 200, 200, "h-local"))
	remote := localManifest(ri("a", 200, "h-remote"))

	plan := BuildPlan(local, remote)

	assert.Equal(t, []string{"a"}, planIDs(plan.Uploads))
}

func TestBuildPlan_RemoteOnlyDownloads(t *testing.T) {
	local := localManifest()
	remote := localManifest(ri("a", 100, "h1"), ri("b", 200, "h2"))

	plan := BuildPlan(local, remote)

	assert.Empty(t, plan.Uploads)
	assert.Equal(t, []string{"a", "b"}, planIDs(plan.Downloads))
}

func TestBuildPlan_UnstampedRemoteOnlySkipped(t *testing.T) {
	local := localManifest()
	remote := localManifest(li("ghost", 100, 0, "h1"))

	plan := BuildPlan(local, remote)

	assert.Zero(t, plan.TotalItems())
}

// --- properties ---

func TestBuildPlan_SetsAreDisjoint(t *testing.T) {
	local := localManifest(
		li("up-new", 100, 0, "h1"),
		li("up-newer", 300, 200, "h2"),
		li("conflict", 400, 100, "h3"),
		li("down-stale", 100, 100, "h4"),
		li("unchanged", 200, 200, "h5"),
	)
	remote := localManifest(
		ri("up-newer", 200, "r2"),
		ri("conflict", 300, "r3"),
		ri("down-stale", 300, "r4"),
		ri("unchanged", 200, "h5"),
		ri("down-only", 150, "r6"),
	)

	plan := BuildPlan(local, remote)

	seen := make(map[string]int)
	for _, id := range planIDs(plan.Uploads) {
		seen[id]++
	}
	for _, id := range planIDs(plan.Downloads) {
		seen[id]++
	}
	for _, c := range plan.Conflicts {
		seen[c.Local.ID]++
	}

	for id, n := range seen {
		assert.Equal(t, 1, n, "item %s appears in more than one set", id)
	}

	assert.Equal(t, []string{"up-new", "up-newer"}, planIDs(plan.Uploads))
	assert.ElementsMatch(t, []string{"down-only", "down-stale"}, planIDs(plan.Downloads))
	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, "conflict", plan.Conflicts[0].Local.ID)
	assert.NotContains(t, seen, "unchanged")
}

func TestBuildPlan_Deterministic(t *testing.T) {
	local := localManifest(
		li("a", 100, 0, "h1"),
		li("b", 300, 200, "h2"),
		li("c", 400, 100, "h3"),
	)
	remote := localManifest(
		ri("b", 200, "r2"),
		ri("c", 300, "r3"),
		ri("d", 150, "r4"),
	)

	first := BuildPlan(local, remote)
	second := BuildPlan(local, remote)

	assert.Equal(t, first, second)
}
