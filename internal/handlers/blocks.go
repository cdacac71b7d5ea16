package handlers

import (
	"net/http"
	"strconv"

	"winamp-block/internal/database"
)

// ListBlocks returns all player blocks with their audio blocks.
func (h *Handlers) ListBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.db.ListBlocks(r.Context(), database.BlockNamePlayer)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if blocks == nil {
		blocks = []database.Block{}
	}
	writeJSONStatusCode(w, blocks, http.StatusOK)
}

type createBlockRequest struct {
	Attributes database.Attributes `json:"attributes"`
}

// CreateBlock stores a new, empty player block.
func (h *Handlers) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req createBlockRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.editor.CreatePlayerBlock(r.Context(), req.Attributes)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/blocks/"+b.ClientID)
	writeJSONStatusCode(w, b, http.StatusCreated)
}

// GetBlock returns one block with its inner blocks.
func (h *Handlers) GetBlock(w http.ResponseWriter, r *http.Request) {
	b, err := h.db.GetBlock(r.Context(), blockID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, b, http.StatusOK)
}

// DeleteBlock removes a player block and its audio blocks.
func (h *Handlers) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.DeleteBlock(r.Context(), blockID(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetState returns the derived editor state of a player block. The
// selected query parameter tells whether the block has the editor's focus.
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	selected, _ := strconv.ParseBool(r.URL.Query().Get("selected"))

	st, err := h.editor.State(r.Context(), blockID(r), selected)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, st, http.StatusOK)
}

// SaveBlock renders and stores the saved markup of a player block.
func (h *Handlers) SaveBlock(w http.ResponseWriter, r *http.Request) {
	b, err := h.editor.SaveBlock(r.Context(), blockID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, b, http.StatusOK)
}

type skinRequest struct {
	Skin string `json:"currentSkin"`
}

type skinResponse struct {
	Skin    string `json:"currentSkin"`
	SkinURL string `json:"skinUrl,omitempty"`
	Valid   bool   `json:"valid"`
	Applied bool   `json:"applied"`
}

// SetSkin stores the skin identifier of a block and applies it to its
// live player.
func (h *Handlers) SetSkin(w http.ResponseWriter, r *http.Request) {
	var req skinRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	applied, err := h.editor.SetSkin(r.Context(), blockID(r), req.Skin)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	url, ok := h.skins.Resolve(req.Skin)
	writeJSONStatusCode(w, skinResponse{Skin: req.Skin, SkinURL: url, Valid: ok, Applied: applied}, http.StatusOK)
}

// ResolveSkin maps a skin identifier to its skin file URL without storing it.
func (h *Handlers) ResolveSkin(w http.ResponseWriter, r *http.Request) {
	skin := r.URL.Query().Get("skin")
	url, ok := h.skins.Resolve(skin)
	writeJSONStatusCode(w, skinResponse{Skin: skin, SkinURL: url, Valid: ok}, http.StatusOK)
}

type noticeRequest struct {
	Message string `json:"message"`
}

// ReportUploadError replaces the notices of a block with one error notice.
func (h *Handlers) ReportUploadError(w http.ResponseWriter, r *http.Request) {
	var req noticeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.editor.UploadError(r.Context(), blockID(r), req.Message)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, n, http.StatusCreated)
}

// ClearNotices removes all notices of a block.
func (h *Handlers) ClearNotices(w http.ResponseWriter, r *http.Request) {
	if _, err := h.editor.Audio(r.Context(), blockID(r)); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.editor.ClearNotices(blockID(r))
	w.WriteHeader(http.StatusNoContent)
}

// ListMedia returns the media library.
func (h *Handlers) ListMedia(w http.ResponseWriter, r *http.Request) {
	items, err := h.db.ListMedia(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, items, http.StatusOK)
}

// ScanLibrary starts a rescan of the media directory.
func (h *Handlers) ScanLibrary(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		writeJSONError(w, "Library scanning is not enabled", http.StatusNotImplemented)
		return
	}
	if h.scanner.IsIndexing() {
		writeJSONStatusCode(w, map[string]string{"status": "running"}, http.StatusAccepted)
		return
	}
	h.scanner.TriggerIndex()
	writeJSONStatusCode(w, map[string]string{"status": "started"}, http.StatusAccepted)
}
