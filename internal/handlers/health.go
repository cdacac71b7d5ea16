package handlers

import (
	"net/http"
	"runtime"
	"time"

	"winamp-block/internal/startup"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Ready    bool   `json:"ready"`
	Version  string `json:"version"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Content summary
	PlayerBlocks int  `json:"playerBlocks"`
	AudioBlocks  int  `json:"audioBlocks"`
	LibraryMedia int  `json:"libraryMedia"`
	Scanning     bool `json:"scanning"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        true,
		Version:      startup.Version,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Database:     "ok",
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if err := h.db.Ping(r.Context()); err != nil {
		response.Status = statusUnhealthy
		response.Ready = false
		response.Database = "unavailable"
		response.Error = err.Error()
		writeJSONStatusCode(w, response, http.StatusServiceUnavailable)
		return
	}

	if h.scanner != nil {
		response.Ready = h.scanner.IsReady()
		response.Scanning = h.scanner.IsIndexing()
	}

	stats := h.db.GetStats()
	response.PlayerBlocks = stats.PlayerBlocks
	response.AudioBlocks = stats.AudioBlocks
	response.LibraryMedia = stats.LibraryMedia

	writeJSONStatusCode(w, response, http.StatusOK)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the database answers
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Warn("Readiness check failed: %v", err)
		writeJSONStatusCode(w, map[string]string{"status": "not_ready"}, http.StatusServiceUnavailable)
		return
	}
	writeJSONStatus(w, "ready")
}
