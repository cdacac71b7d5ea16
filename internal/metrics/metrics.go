package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "winamp_block_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "winamp_block_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Content metrics
var (
	PlayerBlocksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_player_blocks_total",
			Help: "Number of stored player blocks",
		},
	)

	AudioBlocksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_audio_blocks_total",
			Help: "Number of stored child audio blocks",
		},
	)

	LibraryMediaTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_library_media_total",
			Help: "Number of audio files in the media library",
		},
	)

	SavedBlocksTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_saved_blocks_total",
			Help: "Number of player blocks with saved content",
		},
	)

	PendingAudioTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_pending_audio_total",
			Help: "Number of audio blocks still pointing at a temporary blob URL",
		},
	)

	LibraryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_library_bytes",
			Help: "Total size of the audio files in the media library",
		},
	)
)

// Library scan metrics
var (
	LibraryScansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_library_scans_total",
			Help: "Total number of media library scans",
		},
	)

	LibraryScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_library_scan_errors_total",
			Help: "Total number of failed media library scans",
		},
	)

	LibraryScanRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_library_scan_running",
			Help: "Whether a media library scan is running (1 = running)",
		},
	)

	LibraryScanDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_library_scan_duration_seconds",
			Help: "Duration of the last media library scan",
		},
	)

	LibraryScanLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_library_scan_last_timestamp",
			Help: "Unix time of the last completed media library scan",
		},
	)

	LibraryFilesChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_library_files_changed_total",
			Help: "Library entries changed by scans",
		},
		[]string{"change"}, // "added", "updated", "removed"
	)
)

// Reconciliation metrics
var (
	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_reconcile_total",
			Help: "Total number of playlist reconciliations by selection kind",
		},
		[]string{"kind"},
	)

	ReconcileItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_reconcile_items_total",
			Help: "Playlist items by reconciliation outcome",
		},
		[]string{"outcome"}, // "kept", "created", "dropped"
	)

	SelectionErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_selection_errors_total",
			Help: "Total number of media selection errors reported",
		},
	)
)

// Player lifecycle metrics
var (
	PlayerInstancesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_player_instances_created_total",
			Help: "Total number of live player instances created",
		},
	)

	PlayerConstructionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_player_construction_failures_total",
			Help: "Total number of failed player constructions",
		},
	)

	PlayerRenderFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_player_render_failures_total",
			Help: "Total number of player renders that failed",
		},
	)

	PlayerDisposals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_player_disposals_total",
			Help: "Total number of disposed player instances",
		},
	)

	PlayerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_player_active",
			Help: "Number of live player instances",
		},
	)

	PlayerSkinUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_player_skin_updates_total",
			Help: "Skin update requests by result",
		},
		[]string{"result"}, // "applied", "ignored", "unchanged", "no_instance"
	)
)

// Upload metrics
var (
	UploadJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_upload_jobs_total",
			Help: "Total number of upload jobs by status",
		},
		[]string{"status"},
	)

	UploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "winamp_block_upload_duration_seconds",
			Help:    "Time from enqueue to completed upload in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_upload_bytes_total",
			Help: "Total number of uploaded bytes stored",
		},
	)

	PendingBlobURLs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_pending_blob_urls",
			Help: "Number of temporary blob URLs not yet revoked",
		},
	)
)

// Memory backpressure metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_memory_usage_ratio",
			Help: "Heap usage as a fraction of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "winamp_block_memory_paused",
			Help: "Whether uploads are paused for memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_memory_gc_pauses_total",
			Help: "Total number of times uploads were paused for memory pressure",
		},
	)

	UploadsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_uploads_rejected_total",
			Help: "Upload batches refused while memory was critical",
		},
	)
)

// Player stream metrics
var (
	PlayerStreamStalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_player_stream_stalls_total",
			Help: "Player event streams closed because the page stopped reading",
		},
	)
)

// Editor notice metrics
var (
	UploadErrorNotices = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "winamp_block_upload_error_notices_total",
			Help: "Total number of upload error notices shown",
		},
	)
)

// Filesystem metrics
var (
	FilesystemRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "winamp_block_filesystem_retries_total",
			Help: "Filesystem retry events by operation and result",
		},
		[]string{"operation", "result"}, // result: "attempt", "success", "failure"
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "winamp_block_filesystem_operation_duration_seconds",
			Help:    "Duration of retried filesystem operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "winamp_block_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// InitializeMetrics pre-populates label combinations so every series is
// exported from the first scrape.
func InitializeMetrics() {
	for _, kind := range []string{"upload", "library"} {
		ReconcileTotal.WithLabelValues(kind)
	}
	for _, outcome := range []string{"kept", "created", "dropped"} {
		ReconcileItems.WithLabelValues(outcome)
	}
	for _, result := range []string{"applied", "ignored", "unchanged", "no_instance"} {
		PlayerSkinUpdates.WithLabelValues(result)
	}
	for _, status := range []string{"completed", "failed", "cancelled"} {
		UploadJobsTotal.WithLabelValues(status)
	}
	for _, change := range []string{"added", "updated", "removed"} {
		LibraryFilesChanged.WithLabelValues(change)
	}
}
