// Package reconcile compares the working copies under a base path with
// the projects a GitHub account hosts and keeps the registry's picture
// of the drift current.
//
// Refresh builds the sorted union of local directory names and hosted
// project names, probes git divergence wherever both sides exist, and
// atomically replaces the registry's statuses. ImportMissing and
// ExportLocal are the two bulk jobs: clone what exists only remotely,
// push what exists locally. Both walk fixed progress checkpoints
// through registry job records so the dashboard can animate them, and
// both end with a refresh.
package reconcile
