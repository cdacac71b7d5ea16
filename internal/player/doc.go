// Package player owns the live player instance of a block.
//
// A Controller drives one instance through these states:
//
//	Unmounted -> Initializing -> Ready -> Disposed
//
// Attach is called when a mount point becomes available. It snapshots the
// playlist URLs and the resolved skin, builds one instance through the
// Factory and starts rendering it into the mount asynchronously. The
// instance is Ready once rendering settles.
//
// The track list is a one-time snapshot: later playlist edits do not reach
// the live instance. Only the skin is updated in place, through SetSkin.
//
// Detach releases the instance. It is idempotent, and when called before
// rendering settles the instance is released as soon as it does.
//
// SkinResolver turns the free-text skin identifier into a skin file URL.
package player
