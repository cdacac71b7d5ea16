package handlers

import (
	"net/http"

	"winamp-block/internal/startup"
)

// VersionResponse is the build information plus the skin the player falls
// back to.
type VersionResponse struct {
	startup.BuildInfo
	DefaultSkin string `json:"defaultSkin"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	resp := VersionResponse{BuildInfo: startup.GetBuildInfo()}
	if h.skins != nil {
		resp.DefaultSkin = h.skins.DefaultURL()
	}
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, resp, http.StatusOK)
}
