package database

import (
	"errors"
	"time"
)

// Block names.
const (
	BlockNamePlayer = "winamp-block/player"
	BlockNameAudio  = "core/audio"
)

var (
	// ErrBlockNotFound is returned when a block does not exist.
	ErrBlockNotFound = errors.New("block not found")
	// ErrMediaNotFound is returned when a library item does not exist.
	ErrMediaNotFound = errors.New("media not found")
)

// Attributes is the attribute bag of a block.
type Attributes map[string]interface{}

// String returns the attribute as a string, or "" when absent or not a string.
func (a Attributes) String(key string) string {
	if s, ok := a[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the attribute as a bool.
func (a Attributes) Bool(key string) bool {
	b, _ := a[key].(bool)
	return b
}

// Block is a stored content block. InnerBlocks is populated by GetBlock and
// ListBlocks in position order.
type Block struct {
	ClientID        string     `json:"clientId"`
	ParentID        string     `json:"parentId,omitempty"`
	Name            string     `json:"name"`
	Position        int        `json:"position"`
	Attributes      Attributes `json:"attributes"`
	OriginalContent string     `json:"originalContent,omitempty"`
	InnerBlocks     []Block    `json:"innerBlocks,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Media is an audio file in the library.
type Media struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
