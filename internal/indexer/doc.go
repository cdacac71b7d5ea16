// Package indexer keeps the media library in step with the media directory.
//
// A scan walks MEDIA_DIR, registers every audio file (by extension, see
// package mediatypes) in the media table under a /files/ URL, and removes
// library entries below MEDIA_DIR whose files no longer exist. Files whose
// size is unchanged since the last scan are not rewritten. Uploaded files
// live in MEDIA_DIR/uploads and are picked up under the same path the
// uploader registered them with.
//
// The indexer runs in three ways:
//   - Initial scan: in the background on Start
//   - Periodic scan: every SCAN_INTERVAL, when positive
//   - Manual trigger: POST /api/media/scan
//
// Hidden files and directories (prefixed with '.') are skipped, which also
// keeps half-written uploads out of the library.
package indexer
