// Package uploads tracks files that were picked but not yet stored and moves
// them into the media library in the background.
//
// A Registry mints the temporary blob: URLs that stand in for pending files
// in the playlist. An Uploader stores each pending file under the media
// directory, registers it in the library and reports the permanent URL back
// so the owning audio block can swap its temporary URL out.
package uploads
