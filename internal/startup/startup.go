package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"winamp-block/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	MediaDir        string
	DatabaseDir     string
	Port            string
	PublicURL       string
	LogStaticFiles  bool
	LogHealthChecks bool
	MetricsEnabled  bool

	SkinHost       string
	SkinCDNHost    string
	DefaultSkinURL string

	UploadWorkers int
	MaxUploadMB   int

	// ScanInterval is the time between media library scans (0 = startup only)
	ScanInterval time.Duration

	// File is the TOML file the values were overlaid on, if any.
	File string

	// Derived paths
	DatabasePath string
	UploadDir    string
}

// MaxUploadBytes returns the upload size limit in bytes, 0 meaning no limit.
func (c *Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return int64(c.MaxUploadMB) << 20
}

// ReadConfig resolves configuration from CONFIG_FILE and the environment
// without touching the filesystem beyond reading the file. Environment
// variables win over file values.
func ReadConfig() (*Config, error) {
	configFile := os.Getenv("CONFIG_FILE")
	file, err := loadFile(configFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		MediaDir:        getEnv("MEDIA_DIR", file.string(file.MediaDir, "/media")),
		DatabaseDir:     getEnv("DATABASE_DIR", file.string(file.DatabaseDir, "/database")),
		Port:            getEnv("PORT", file.string(file.Port, "8080")),
		PublicURL:       getEnv("PUBLIC_URL", file.PublicURL),
		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", file.bool(file.LogStaticFiles, false)),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", file.bool(file.LogHealthChecks, true)),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", file.bool(file.MetricsEnabled, true)),
		SkinHost:        getEnv("SKIN_HOST", file.Skins.Host),
		SkinCDNHost:     getEnv("SKIN_CDN_HOST", file.Skins.CDNHost),
		DefaultSkinURL:  getEnv("DEFAULT_SKIN_URL", file.Skins.DefaultURL),
		UploadWorkers:   getEnvInt("UPLOAD_WORKERS", file.Uploads.Workers),
		MaxUploadMB:     getEnvInt("MAX_UPLOAD_MB", file.int(file.Uploads.MaxMB, 64)),
		ScanInterval:    getEnvDuration("SCAN_INTERVAL", file.string(file.Library.ScanInterval, "30m")),
		File:            configFile,
	}

	if cfg.MediaDir, err = filepath.Abs(cfg.MediaDir); err != nil {
		return nil, fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	if cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + cfg.Port
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "blocks.db")
	cfg.UploadDir = filepath.Join(cfg.MediaDir, "uploads")

	return cfg, nil
}

// LoadConfig loads and validates configuration and prepares the directories
// the server writes to.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	config, err := ReadConfig()
	if err != nil {
		return nil, err
	}

	if config.File != "" {
		logging.Info("  CONFIG_FILE:         %s", config.File)
	}
	logging.Info("  MEDIA_DIR:           %s", config.MediaDir)
	logging.Info("  DATABASE_DIR:        %s", config.DatabaseDir)
	logging.Info("  PORT:                %s", config.Port)
	logging.Info("  PUBLIC_URL:          %s", config.PublicURL)
	logging.Info("  METRICS_ENABLED:     %v", config.MetricsEnabled)
	logging.Info("  SKIN_HOST:           %s", valueOrDefault(config.SkinHost))
	logging.Info("  SKIN_CDN_HOST:       %s", valueOrDefault(config.SkinCDNHost))
	logging.Info("  DEFAULT_SKIN_URL:    %s", valueOrDefault(config.DefaultSkinURL))
	logging.Info("  UPLOAD_WORKERS:      %s", valueOrDefault(intString(config.UploadWorkers)))
	logging.Info("  MAX_UPLOAD_MB:       %s", valueOrDefault(intString(config.MaxUploadMB)))
	logging.Info("  SCAN_INTERVAL:       %v", config.ScanInterval)
	logging.Info("  LOG_STATIC_FILES:    %v", config.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", config.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	// Ensure base database directory exists (required for database)
	if err := ensureDirectory(config.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(config.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(config.MediaDir, "media"); err != nil {
		return nil, fmt.Errorf("media directory error: %w", err)
	}
	if err := ensureDirectory(config.UploadDir, "uploads"); err != nil {
		return nil, fmt.Errorf("upload directory error: %w", err)
	}
	if err := testWriteAccess(config.UploadDir); err != nil {
		return nil, fmt.Errorf("upload directory is not writable: %w", err)
	}
	logging.Info("  [OK] Upload directory is writable")

	return config, nil
}

func valueOrDefault(v string) string {
	if v == "" {
		return "(default)"
	}
	return v
}

func intString(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogUploaderInit logs the upload worker pool setup
func LogUploaderInit(workers int, maxBytes int64) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("UPLOADER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Workers:         %d", workers)
	if maxBytes > 0 {
		logging.Info("  Max upload size: %d MB", maxBytes>>20)
	} else {
		logging.Info("  Max upload size: unlimited")
	}
}

// LogLibraryInit logs the media library scanner setup
func LogLibraryInit(mediaDir string, interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEDIA LIBRARY INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Directory:       %s", mediaDir)
	if interval > 0 {
		logging.Info("  Scan interval:   %v", interval)
	} else {
		logging.Info("  Scan interval:   startup only")
	}
}

// LogPlayerInit logs the skin configuration of the player
func LogPlayerInit(defaultSkinURL string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PLAYER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Default skin:    %s", defaultSkinURL)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			// Prefix-only routes have no template
			pathTemplate, err = route.GetPathRegexp()
			if err != nil {
				return nil
			}
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs a route count per group, and every route at debug level.
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
	}
	groups := groupRoutes(routes)

	groupKeys := make([]string, 0, len(groups))
	for k := range groups {
		groupKeys = append(groupKeys, k)
	}
	sort.Strings(groupKeys)

	summary := make([]string, 0, len(groupKeys))
	for _, group := range groupKeys {
		summary = append(summary, fmt.Sprintf("%s=%d", groupLabel(group), len(groups[group])))
	}
	logging.Info("  Routes (%d): %s", len(routes), strings.Join(summary, ", "))

	if logging.IsDebugEnabled() {
		for _, group := range groupKeys {
			logging.Debug("  [%s]", groupLabel(group))
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Static file logging: ON")
	} else {
		logging.Info("    Static file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

func groupRoutes(routes []RouteInfo) map[string][]RouteInfo {
	groups := make(map[string][]RouteInfo)
	for _, route := range routes {
		prefix := getRouteGroup(route.Path)
		groups[prefix] = append(groups[prefix], route)
	}
	return groups
}

func groupLabel(group string) string {
	if group == "" {
		return "root"
	}
	return group
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	PublicURL       string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Editor:        http://0.0.0.0:%s", config.Port)
	logging.Info("    Block API:     http://0.0.0.0:%s/api/blocks", config.Port)
	logging.Info("    Media files:   http://0.0.0.0:%s/files/", config.Port)
	if config.PublicURL != "" {
		logging.Info("    Public URL:    %s", config.PublicURL)
	}
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.Port)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
 _      ___                         ___  __         __
| | /| / (_)__  ___ ___ _  ___     / _ )/ /__  ____/ /__
| |/ |/ / / _ \/ _ ` + "`" + `/  ' \/ _ \   / _  / / _ \/ __/  '_/
|__/|__/_/_//_/\_,_/_/_/_/ .__/  /____/_/\___/\__/_/\_\
                        /_/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// getEnvDuration parses key, falling back to defaultValue. "0" disables
// whatever the interval drives.
func getEnvDuration(key, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration for %s: %q, using default: %s", key, value, defaultValue)
		parsed, _ = time.ParseDuration(defaultValue)
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
