package mediatypes

import (
	"mime"
	"path/filepath"
	"strings"
)

// FileType represents the type of a media file.
type FileType string

const (
	// FileTypeAudio represents a playable audio file.
	FileTypeAudio FileType = "audio"
	// FileTypePlaylist represents a playlist file that can be imported.
	FileTypePlaylist FileType = "playlist"
	// FileTypeOther represents an unknown or unsupported file type.
	FileTypeOther FileType = "other"
)

// AllowedTypes are the media categories a player block accepts.
var AllowedTypes = []FileType{FileTypeAudio}

// Accept is the value of the upload input's accept attribute.
const Accept = "audio/*"

// AudioExtensions maps file extensions to whether they are supported audio formats.
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".oga":  true,
	".flac": true,
	".m4a":  true,
	".aac":  true,
	".opus": true,
	".weba": true,
}

// PlaylistExtensions maps file extensions to whether they are supported playlist formats.
var PlaylistExtensions = map[string]bool{
	".wpl": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".opus": "audio/opus",
	".weba": "audio/webm",

	".wpl": "application/vnd.ms-wpl",
}

// GetFileType returns the FileType for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".mp3").
func GetFileType(ext string) FileType {
	if AudioExtensions[ext] {
		return FileTypeAudio
	}
	if PlaylistExtensions[ext] {
		return FileTypePlaylist
	}
	return FileTypeOther
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if m, ok := MimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}

// IsAudioFile reports whether name has a supported audio extension.
func IsAudioFile(name string) bool {
	return GetFileType(strings.ToLower(filepath.Ext(name))) == FileTypeAudio
}

// IsAllowed reports whether an uploaded file may be added to a player block.
// The declared content type wins when present; otherwise the extension decides.
func IsAllowed(name, contentType string) bool {
	if contentType != "" && contentType != "application/octet-stream" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			return strings.HasPrefix(mediaType, "audio/")
		}
	}
	return IsAudioFile(name)
}
