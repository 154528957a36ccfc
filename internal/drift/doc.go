// Package drift defines the shared data model for repository
// synchronization state.
//
// A RepoStatus describes how far a single project's local history has
// drifted from its hosted counterpart, expressed as three percentages
// plus raw commit/line deltas. A SyncJob tracks the live progress of a
// bulk import (clone) or export (push) operation for one project.
//
// The package also owns the percentage policy itself (ComputeSync):
// sync is a measure of history overlap, not freshness. The more commits
// exist only on one side, the less in-sync that side is judged relative
// to the other.
//
// Everything here is plain data and pure functions; concurrency-safe
// ownership of the current state lives in internal/registry.
package drift
