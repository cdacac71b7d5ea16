package playlist

import (
	"sort"
)

// BlobMinter hands out temporary URLs for files whose upload has not
// finished yet.
type BlobMinter interface {
	CreateBlobURL(file *FileRef) string
}

// Reconciler merges media selections into an existing playlist.
type Reconciler struct {
	blobs       BlobMinter
	newClientID func() string
}

// NewReconciler returns a Reconciler. blobs may be nil, in which case
// entries without a URL are dropped instead of receiving a temporary one.
func NewReconciler(blobs BlobMinter, newClientID func() string) *Reconciler {
	return &Reconciler{blobs: blobs, newClientID: newClientID}
}

// Reconcile computes the playlist that follows previous once sel is applied.
// An Append selection keeps previous in its order and adds the entries whose
// ID is not already there at the end.
//
// previous is not modified. Kept items are returned as they were; only
// their position changes. Items created for the selection carry a fresh
// ClientID and the attributes "id" (when known) and "src".
func (r *Reconciler) Reconcile(previous Playlist, sel Selection) Playlist {
	entries := r.normalize(sel.Entries)

	// Reusing existing items loses any reordering done in the picker, so
	// the selection order is reapplied after the merge.
	order := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.ID != "" {
			order[e.ID] = i
		}
	}

	var kept Playlist
	switch sel.Kind {
	case LibrarySet:
		for _, item := range previous {
			if item.ID == "" {
				continue
			}
			if _, ok := order[item.ID]; ok {
				kept = append(kept, item)
			}
		}
	default:
		kept = append(kept, previous...)
	}

	keptIDs := make(map[string]bool, len(kept))
	for _, item := range kept {
		if item.ID != "" {
			keptIDs[item.ID] = true
		}
	}

	next := make(Playlist, 0, len(kept)+len(entries))
	next = append(next, kept...)
	for _, e := range entries {
		if e.ID != "" && keptIDs[e.ID] {
			continue
		}
		next = append(next, r.newItem(e))
	}
	if sel.Kind == Append {
		return next
	}

	sort.SliceStable(next, func(i, j int) bool {
		pi, iok := position(order, next[i])
		pj, jok := position(order, next[j])
		switch {
		case iok && jok:
			return pi < pj
		case iok:
			return true
		default:
			return false
		}
	})

	return next
}

// normalize resolves URLs for pending files, drops unusable entries and
// collapses repeated identities to their first occurrence.
func (r *Reconciler) normalize(in []MediaEntry) []MediaEntry {
	out := make([]MediaEntry, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		if e.URL == "" && e.File != nil && r.blobs != nil {
			e.URL = r.blobs.CreateBlobURL(e.File)
		}
		if e.URL == "" {
			continue
		}
		if e.ID != "" {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
		}
		out = append(out, e)
	}
	return out
}

func (r *Reconciler) newItem(e MediaEntry) AudioItem {
	attrs := map[string]interface{}{"src": e.URL}
	if e.ID != "" {
		attrs["id"] = e.ID
	}
	var clientID string
	if r.newClientID != nil {
		clientID = r.newClientID()
	}
	return AudioItem{
		ClientID:   clientID,
		ID:         e.ID,
		URL:        e.URL,
		Attributes: attrs,
	}
}

func position(order map[string]int, item AudioItem) (int, bool) {
	if item.ID == "" {
		return 0, false
	}
	p, ok := order[item.ID]
	return p, ok
}

// Changes describes how a reconciliation changed a playlist.
type Changes struct {
	Kept    Playlist
	Created Playlist
	Dropped Playlist
}

// Diff compares two playlists by ClientID.
func Diff(previous, next Playlist) Changes {
	before := make(map[string]bool, len(previous))
	for _, item := range previous {
		before[item.ClientID] = true
	}
	after := make(map[string]bool, len(next))

	var c Changes
	for _, item := range next {
		after[item.ClientID] = true
		if before[item.ClientID] {
			c.Kept = append(c.Kept, item)
		} else {
			c.Created = append(c.Created, item)
		}
	}
	for _, item := range previous {
		if !after[item.ClientID] {
			c.Dropped = append(c.Dropped, item)
		}
	}
	return c
}
