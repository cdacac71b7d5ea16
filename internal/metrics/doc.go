// Package metrics provides Prometheus instrumentation for the winamp-block
// editor service. All metrics are prefixed with "winamp_block_".
//
// # Metric Categories
//
// HTTP: request counts, durations and in-flight requests, recorded by the
// middleware package.
//
// Database: query counts and durations per operation, open connections.
//
// Content: stored and saved player blocks, child audio blocks (and those
// still waiting for an upload), library files and bytes, refreshed by a
// Collector from the database.
//
// Library: scans, scan errors and duration, files added, updated and
// removed.
//
// Memory: heap usage ratio, pause state and pauses, rejected uploads.
//
// Reconciliation: reconciliations per selection kind and the number of
// items kept, created and dropped.
//
// Player lifecycle: instances created, construction and render failures,
// disposals, live instances and skin update outcomes. A healthy editor keeps
// winamp_block_player_instances_created_total close to the number of page
// loads even while skins change, since skin updates never recreate players.
//
// Uploads: jobs by status, duration, stored bytes and blob URLs not yet
// revoked. Player streams closed because the page stopped reading are
// counted as stalls.
package metrics
