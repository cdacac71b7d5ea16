package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"winamp-block/internal/metrics"
	"winamp-block/internal/playlist"
)

// maxPlaylistBody bounds uploaded WPL documents.
const maxPlaylistBody = 4 << 20

type selectRequest struct {
	Kind    string                `json:"kind"`
	Entries []playlist.MediaEntry `json:"entries"`
}

type playlistResponse struct {
	Audio   playlist.Playlist `json:"audio"`
	Missing []string          `json:"missing,omitempty"`
}

// SelectAudio applies a media selection from the library to a block.
// Entries without a url are left out of the playlist.
func (h *Handlers) SelectAudio(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, err := playlist.ParseSelectionKind(req.Kind)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	pl, err := h.editor.SelectAudio(r.Context(), blockID(r), playlist.Selection{Kind: kind, Entries: req.Entries})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, playlistResponse{Audio: pl}, http.StatusOK)
}

// UploadAudio adds the files of a multipart form to a block as one upload
// batch. Files arrive in the "files" field in selection order.
func (h *Handlers) UploadAudio(w http.ResponseWriter, r *http.Request) {
	if h.pressure != nil && h.pressure.IsPaused() {
		metrics.UploadsRejectedTotal.Inc()
		w.Header().Set("Retry-After", "30")
		writeJSONError(w, "server is low on memory, try the upload again shortly", http.StatusServiceUnavailable)
		return
	}

	limit := h.maxUploadBytes
	if limit <= 0 {
		limit = 64 << 20
	}
	// Room for several files plus form overhead.
	r.Body = http.MaxBytesReader(w, r.Body, 8*limit+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, fmt.Sprintf("invalid upload: %v", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSONError(w, "no files in upload", http.StatusBadRequest)
		return
	}

	entries := make([]playlist.MediaEntry, 0, len(headers))
	for _, fh := range headers {
		ref, err := readFileRef(fh, limit)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		entries = append(entries, playlist.MediaEntry{File: ref})
	}

	pl, err := h.editor.SelectAudio(r.Context(), blockID(r), playlist.Selection{Kind: playlist.UploadBatch, Entries: entries})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.log.Debug("Block %s: received %d files", blockID(r), len(entries))
	writeJSONStatusCode(w, playlistResponse{Audio: pl}, http.StatusAccepted)
}

// readFileRef reads at most limit+1 bytes so the uploader can reject
// oversized files with its own notice.
func readFileRef(fh *multipart.FileHeader, limit int64) (*playlist.FileRef, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return &playlist.FileRef{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// ImportPlaylist appends the tracks of a WPL document in the request body
// that are found in the media library.
func (h *Handlers) ImportPlaylist(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxPlaylistBody)

	pl, missing, err := h.editor.ImportWPL(r.Context(), blockID(r), body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatusCode(w, playlistResponse{Audio: pl, Missing: missing}, http.StatusOK)
}
