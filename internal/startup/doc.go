// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// Configuration comes from environment variables via [LoadConfig], optionally
// overlaid on a TOML file named by CONFIG_FILE. Environment variables win.
//
//   - CONFIG_FILE: TOML file with the keys below (optional)
//   - MEDIA_DIR: Media library root; uploads are stored under uploads/ (default: /media)
//   - DATABASE_DIR: Path to database directory (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - PUBLIC_URL: Origin used for temporary blob URLs (default: http://localhost:PORT)
//   - METRICS_ENABLED: Serve /metrics (default: true)
//   - SKIN_HOST, SKIN_CDN_HOST, DEFAULT_SKIN_URL: Skin identifier resolution
//   - UPLOAD_WORKERS: Upload worker count (default: sized for I/O)
//   - MAX_UPLOAD_MB: Largest accepted upload (default: 64)
//   - SCAN_INTERVAL: Time between media library scans, 0 for startup only (default: 30m)
//   - MEMORY_LIMIT, MEMORY_RATIO: Heap sizing, see package memory
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_STATIC_FILES: Log static file requests (default: false)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//
// [ReadConfig] resolves the same values without the banner or directory
// setup, for command line tools.
//
// # Instance lock
//
// [AcquireLock] takes a file lock in the database directory so two servers
// never share one database.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
