// Package editor applies editor events to player blocks.
//
// A player block stores its playlist as child audio blocks. The Service
// turns media selections into one ordered replacement of those children,
// keeps the upload error notices of each block, and owns one player
// lifecycle controller per block so the live player follows mount and skin
// changes.
//
// Playlist edits made after a player is mounted are not pushed to it; the
// player picks them up the next time it is mounted.
package editor
