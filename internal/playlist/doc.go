// Package playlist computes the ordered track list of a player block.
//
// A playlist is the ordered sequence of AudioItem values derived from the
// block's child audio blocks. Every media-selection event produces a new
// playlist through Reconciler.Reconcile; the previous one is never mutated.
//
// Two selection kinds are handled as separate variants:
//   - UploadBatch: raw files that were just dropped or uploaded. Nothing
//     already in the playlist is removed; every file becomes a new item with
//     a temporary blob: URL until the upload finishes.
//   - LibrarySet: the full set returned by the media library picker. Items
//     whose identity is not in the set are removed, and the result follows
//     the picker's order.
//
// The package also reads WPL (Windows Media Player) playlists so an existing
// playlist file can be imported as an upload batch.
package playlist
