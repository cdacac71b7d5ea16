// Package logging provides a small leveled logging interface for the
// winamp-block editor service.
//
// Levels, lowest to highest:
//   - DEBUG: controller state transitions, per-item reconciliation detail
//   - INFO: one-line summaries (reconciliations, uploads, mounts)
//   - WARN: recoverable conditions (ignored skins, failed renders)
//   - ERROR: failures that abort an operation
//
// The level is read once from DEBUG or LOG_LEVEL. Components that want a
// fixed prefix on every line use For:
//
//	log := logging.For("player")
//	log.Debug("block %s: %s -> %s", id, from, to)
package logging
