package playlist

import (
	"fmt"
	"strings"
)

// SelectionKind tells the reconciler how a selection relates to the
// existing playlist.
type SelectionKind int

const (
	// UploadBatch is a batch of raw files with no prior identity.
	UploadBatch SelectionKind = iota + 1
	// LibrarySet is the complete desired set picked from the media library.
	LibrarySet
	// Append adds entries after the existing playlist, leaving it as is.
	Append
)

// String returns the wire name of the kind.
func (k SelectionKind) String() string {
	switch k {
	case UploadBatch:
		return "upload"
	case LibrarySet:
		return "library"
	case Append:
		return "append"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseSelectionKind parses "upload", "library" or "append".
func ParseSelectionKind(s string) (SelectionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upload", "files":
		return UploadBatch, nil
	case "library":
		return LibrarySet, nil
	case "append":
		return Append, nil
	default:
		return 0, fmt.Errorf("unknown selection kind %q", s)
	}
}

// FileRef is a file payload that has not been uploaded yet.
type FileRef struct {
	Name        string
	ContentType string
	Data        []byte
}

// MediaEntry is one element of a selection. ID is empty for pending uploads.
type MediaEntry struct {
	ID   string   `json:"id,omitempty"`
	URL  string   `json:"url,omitempty"`
	File *FileRef `json:"-"`
}

// Selection is a single media-selection event.
type Selection struct {
	Kind    SelectionKind `json:"kind"`
	Entries []MediaEntry  `json:"entries"`
}

// AudioItem is one playlist entry backed by a child audio block.
//
// ClientID is the child block's own identity and is the only way to tell
// apart items that have no ID yet.
type AudioItem struct {
	ClientID   string                 `json:"clientId"`
	ID         string                 `json:"id,omitempty"`
	URL        string                 `json:"url"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	Persisted  bool                   `json:"fromSavedContent"`
}

// Playlist is an ordered list of audio items.
type Playlist []AudioItem

// URLs returns the item URLs in playlist order.
func (p Playlist) URLs() []string {
	urls := make([]string, len(p))
	for i, item := range p {
		urls[i] = item.URL
	}
	return urls
}

// HasIDs reports whether any item has a persisted identity.
func (p Playlist) HasIDs() bool {
	for _, item := range p {
		if item.ID != "" {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or maps with p.
func (p Playlist) Clone() Playlist {
	if p == nil {
		return nil
	}
	out := make(Playlist, len(p))
	for i, item := range p {
		out[i] = item
		if item.Attributes != nil {
			attrs := make(map[string]interface{}, len(item.Attributes))
			for k, v := range item.Attributes {
				attrs[k] = v
			}
			out[i].Attributes = attrs
		}
	}
	return out
}
