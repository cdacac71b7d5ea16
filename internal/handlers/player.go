package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"winamp-block/internal/streaming"
	"winamp-block/internal/webamp"

	"github.com/google/uuid"
)

const (
	playerFrameBuffer = 32
	playerKeepalive   = 15 * time.Second
)

// PlayerEvents mounts the player of a block on the requesting page and
// streams its frames as server-sent events until the page disconnects or
// the player is replaced.
func (h *Handlers) PlayerEvents(w http.ResponseWriter, r *http.Request) {
	id := blockID(r)
	surface := webamp.NewSurface(uuid.NewString(), playerFrameBuffer)
	defer surface.Close()

	if err := h.editor.MountPlayer(r.Context(), id, surface); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer h.editor.UnmountPlayer(id, surface)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sw := streaming.NewWriter(r.Context(), w, streaming.DefaultConfig())
	defer sw.Close()
	sw.Flush()

	h.log.Debug("Block %s: player mounted on %s", id, surface.MountID())
	err := surface.Stream(sw.Context(), sw, sw.Flush, playerKeepalive)
	if err != nil && sw.Err() != nil {
		err = sw.Err()
	}
	switch {
	case err == nil:
		h.log.Debug("Block %s: player on %s released", id, surface.MountID())
	case errors.Is(err, context.Canceled), errors.Is(err, streaming.ErrClientGone):
		h.log.Debug("Block %s: page for %s disconnected", id, surface.MountID())
	default:
		h.log.Warn("Block %s: player stream on %s failed: %v", id, surface.MountID(), err)
	}
}

// GetPlayerStatus returns the lifecycle status of the player of a block.
func (h *Handlers) GetPlayerStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.editor.Audio(r.Context(), blockID(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, h.editor.PlayerStatus(blockID(r)), http.StatusOK)
}
