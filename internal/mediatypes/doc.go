// Package mediatypes holds the file type tables shared by the upload,
// import and library code.
//
// A player block accepts audio only (Accept is "audio/*"). Extension checks
// expect lowercase extensions with the leading dot:
//
//	ext := strings.ToLower(filepath.Ext(filename))
//	mediatypes.GetFileType(ext) // FileTypeAudio, FileTypePlaylist or FileTypeOther
//
// IsAllowed combines the declared content type of an upload with its
// extension and is what the upload endpoint uses to reject other media.
package mediatypes
