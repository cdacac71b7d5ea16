// Package database provides SQLite storage for the winamp-block editor.
//
// It stores:
//   - Blocks: player blocks and their ordered child audio blocks, with a
//     JSON attribute bag per block and the saved markup (original content)
//   - Media: the audio library that uploads are registered in
//   - Metadata: schema version and other key/value settings
//
// Child blocks are never edited one by one by the editor; ReplaceInnerBlocks
// swaps the complete ordered list in a single transaction. Attribute updates
// (used when an upload finishes) merge into the existing bag.
//
// The database uses WAL mode for concurrent readers.
package database
