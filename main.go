package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"winamp-block/internal/database"
	"winamp-block/internal/editor"
	"winamp-block/internal/handlers"
	"winamp-block/internal/indexer"
	"winamp-block/internal/logging"
	"winamp-block/internal/memory"
	"winamp-block/internal/metrics"
	"winamp-block/internal/middleware"
	"winamp-block/internal/player"
	"winamp-block/internal/startup"
	"winamp-block/internal/uploads"
	"winamp-block/internal/webamp"
	"winamp-block/internal/workers"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	lock, err := startup.AcquireLock(config.DatabaseDir)
	if err != nil {
		startup.LogFatal("%v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	metrics.InitializeMetrics()
	collector := metrics.NewCollector(db, time.Minute)
	collector.Start()

	skins := player.NewSkinResolver(config.SkinHost, config.SkinCDNHost, config.DefaultSkinURL)
	startup.LogPlayerInit(skins.DefaultURL())

	uploadWorkers := config.UploadWorkers
	if uploadWorkers <= 0 {
		uploadWorkers = workers.ForIO(8)
	}
	memMonitor := memory.NewMonitor(memory.DefaultConfig())
	memMonitor.Start()

	registry := uploads.NewRegistry(config.PublicURL)
	uploader := uploads.NewUploader(uploads.Config{
		MediaDir: config.MediaDir,
		Workers:  uploadWorkers,
		MaxBytes: config.MaxUploadBytes(),
		Gate:     memMonitor,
	}, db, registry)
	startup.LogUploaderInit(uploadWorkers, config.MaxUploadBytes())

	svc := editor.New(db, editor.Options{
		Factory: webamp.NewFactory(),
		Skins:   skins,
		Blobs:   registry,
		Uploads: uploader,
	})
	uploader.Start(ctx, svc.CompleteUpload)

	idx := indexer.New(db, config.MediaDir, "/files", config.ScanInterval)
	startup.LogLibraryInit(config.MediaDir, config.ScanInterval)
	idx.Start()

	h := handlers.New(db, svc, skins, config)
	h.UsePressure(memMonitor)
	h.UseScanner(idx)
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	if config.MetricsEnabled {
		router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Player streams stay open for as long as the page is.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		handleShutdown(srv, cancel, collector, memMonitor, idx, uploader, svc)
		close(done)
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		PublicURL:       config.PublicURL,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
	<-done

	if err := db.Close(); err != nil {
		logging.Warn("Database close error: %v", err)
	}
	if err := lock.Release(); err != nil {
		logging.Warn("%v", err)
	}
	startup.LogShutdownComplete()
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	if config.MetricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/blocks", h.ListBlocks).Methods("GET")
	api.HandleFunc("/blocks", h.CreateBlock).Methods("POST")
	api.HandleFunc("/blocks/{id}", h.GetBlock).Methods("GET")
	api.HandleFunc("/blocks/{id}", h.DeleteBlock).Methods("DELETE")
	api.HandleFunc("/blocks/{id}/state", h.GetState).Methods("GET")
	api.HandleFunc("/blocks/{id}/select", h.SelectAudio).Methods("POST")
	api.HandleFunc("/blocks/{id}/upload", h.UploadAudio).Methods("POST")
	api.HandleFunc("/blocks/{id}/import", h.ImportPlaylist).Methods("POST")
	api.HandleFunc("/blocks/{id}/errors", h.ReportUploadError).Methods("POST")
	api.HandleFunc("/blocks/{id}/errors", h.ClearNotices).Methods("DELETE")
	api.HandleFunc("/blocks/{id}/skin", h.SetSkin).Methods("PUT")
	api.HandleFunc("/blocks/{id}/save", h.SaveBlock).Methods("POST")
	api.HandleFunc("/blocks/{id}/player", h.PlayerEvents).Methods("GET")
	api.HandleFunc("/blocks/{id}/player/status", h.GetPlayerStatus).Methods("GET")
	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media/scan", h.ScanLibrary).Methods("POST")
	api.HandleFunc("/skins/resolve", h.ResolveSkin).Methods("GET")

	r.PathPrefix("/files/").Handler(mediaFileHandler(config.MediaDir)).Methods("GET", "HEAD")
	r.PathPrefix("/").Handler(staticHandler()).Methods("GET", "HEAD")

	return r
}

func handleShutdown(srv *http.Server, cancel context.CancelFunc, collector *metrics.Collector, memMonitor *memory.Monitor, idx *indexer.Indexer, uploader *uploads.Uploader, svc *editor.Service) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, timeout := context.WithTimeout(context.Background(), 30*time.Second)
	defer timeout()

	startup.LogShutdownStep("Releasing live players")
	svc.Close()
	startup.LogShutdownStepComplete("Live players released")

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping library scanner")
	idx.Stop()
	startup.LogShutdownStepComplete("Library scanner stopped")

	startup.LogShutdownStep("Finishing queued uploads")
	finished := make(chan struct{})
	go func() {
		uploader.Close()
		close(finished)
	}()
	select {
	case <-finished:
		startup.LogShutdownStepComplete("Uploads finished")
	case <-ctx.Done():
		uploader.Stop()
		logging.Warn("Abandoned queued uploads after shutdown timeout")
	}
	cancel()
	memMonitor.Stop()

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")
}
