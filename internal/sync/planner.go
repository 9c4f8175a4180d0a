package sync

import (
	"github.com/inkwell-app/inkwell-sync/internal/manifest"
)

// ConflictType names how a conflicting pair diverged. Only bothModified
// is currently produced; the deletion types exist in the model but no
// planner rule emits them — deletion propagation is an open design
// question, not an inferred behavior.
type ConflictType string

const (
	ConflictBothModified    ConflictType = "bothModified"
	ConflictDeletedLocally  ConflictType = "deletedLocally"
	ConflictDeletedRemotely ConflictType = "deletedRemotely"
)

// Conflict pairs the local and remote views of one diverged item.
type Conflict struct {
	Local  manifest.Item
	Remote manifest.Item
	Type   ConflictType
}

// Plan is the computed work for one sync run. The three lists are
// pairwise disjoint by item id.
type Plan struct {
	Uploads   []manifest.Item
	Downloads []manifest.Item
	Conflicts []Conflict
}

// TotalItems returns the number of items the plan touches.
func (p Plan) TotalItems() int {
	return len(p.Uploads) + len(p.Downloads) + len(p.Conflicts)
}

// BuildPlan diffs a local manifest against an optional remote manifest
// and computes the disjoint upload, download and conflict sets. Pure
// function, no I/O; planning the same pair twice yields the same plan.
//
// Equal timestamps with equal hashes need no action. Equal timestamps
// with differing hashes upload (local wins): there is no sub-second
// ordering signal, so this is a deliberate simplification.
func BuildPlan(local, remote *manifest.Manifest) Plan {
	var plan Plan

	for _, id := range local.SortedIDs() {
		li := local.Items[id]

		ri, ok := remoteItem(remote, id)
		if !ok || ri.RemoteModified == nil {
			// Never seen remotely, or the remote entry was never
			// stamped: treat as a fresh upload.
			plan.Uploads = append(plan.Uploads, li)
			continue
		}

		rm := *ri.RemoteModified

		switch {
		case li.LocalModified > rm && rm > li.LastSynced:
			// Both sides moved since this item last reconciled.
			plan.Conflicts = append(plan.Conflicts, Conflict{
				Local:  li,
				Remote: ri,
				Type:   ConflictBothModified,
			})

		case li.LocalModified > rm:
			plan.Uploads = append(plan.Uploads, li)

		case rm > li.LocalModified:
			plan.Downloads = append(plan.Downloads, ri)

		case li.LocalHash != remoteHash(ri):
			// Timestamps tied, content differs: local wins.
			plan.Uploads = append(plan.Uploads, li)
		}
	}

	if remote == nil {
		return plan
	}

	for _, id := range remote.SortedIDs() {
		if _, ok := local.Get(id); ok {
			continue
		}

		ri := remote.Items[id]
		if ri.RemoteModified == nil {
			// An unstamped remote-only entry has nothing fetchable.
			continue
		}

		plan.Downloads = append(plan.Downloads, ri)
	}

	return plan
}

func remoteItem(remote *manifest.Manifest, id string) (manifest.Item, bool) {
	if remote == nil {
		return manifest.Item{}, false
	}

	return remote.Get(id)
}

// remoteHash returns the content hash the remote side last recorded for
// an item. Manifests written after a transfer stamp RemoteHash; a
// manifest freshly built on another device only has LocalHash.
func remoteHash(it manifest.Item) string {
	if it.RemoteHash != nil {
		return *it.RemoteHash
	}

	return it.LocalHash
}
