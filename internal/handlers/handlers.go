package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"winamp-block/internal/database"
	"winamp-block/internal/editor"
	"winamp-block/internal/logging"
	"winamp-block/internal/player"
	"winamp-block/internal/playlist"
	"winamp-block/internal/startup"

	"github.com/gorilla/mux"
)

// Handlers serves the block editor API.
type Handlers struct {
	db             *database.Database
	editor         *editor.Service
	skins          *player.SkinResolver
	maxUploadBytes int64
	pressure       Pressure
	scanner        Scanner
	log            *logging.Logger
	started        time.Time
}

// Pressure reports whether the server is too close to its memory limit to
// accept uploads.
type Pressure interface {
	IsPaused() bool
}

// UsePressure makes UploadAudio refuse batches while p is paused.
func (h *Handlers) UsePressure(p Pressure) {
	h.pressure = p
}

// Scanner rescans the media library.
type Scanner interface {
	TriggerIndex()
	IsIndexing() bool
	IsReady() bool
}

// UseScanner enables ScanLibrary and reports scan state in health checks.
func (h *Handlers) UseScanner(s Scanner) {
	h.scanner = s
}

// New returns Handlers for the editor service svc.
func New(db *database.Database, svc *editor.Service, skins *player.SkinResolver, config *startup.Config) *Handlers {
	h := &Handlers{
		db:      db,
		editor:  svc,
		skins:   skins,
		log:     logging.For("http"),
		started: time.Now(),
	}
	if config != nil {
		h.maxUploadBytes = config.MaxUploadBytes()
	}
	if h.skins == nil {
		h.skins = player.NewSkinResolver("", "", "")
	}
	return h
}

func blockID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// writeServiceError maps editor and storage errors to HTTP responses.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrBlockNotFound), errors.Is(err, database.ErrMediaNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, editor.ErrNotPlayerBlock),
		errors.Is(err, editor.ErrEmptyNotice),
		errors.Is(err, playlist.ErrInvalidWPL):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled):
		h.log.Debug("%s %s: client went away", r.Method, r.URL.Path)
	default:
		h.log.Error("%s %s: %v", r.Method, r.URL.Path, err)
		writeJSONError(w, "Internal server error", http.StatusInternalServerError)
	}
}
