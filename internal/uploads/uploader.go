package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"winamp-block/internal/database"
	"winamp-block/internal/filesystem"
	"winamp-block/internal/logging"
	"winamp-block/internal/mediatypes"
	"winamp-block/internal/metrics"
	"winamp-block/internal/playlist"
	"winamp-block/internal/workers"
)

var (
	// ErrNotStarted is returned by Enqueue before Start.
	ErrNotStarted = errors.New("uploader not started")
	// ErrStopped is returned by Enqueue once the uploader is shutting down.
	ErrStopped = errors.New("uploader stopped")
	// ErrNotAudio rejects files that are not audio.
	ErrNotAudio = errors.New("only audio files can be added")
	// ErrTooLarge rejects files above the configured size limit.
	ErrTooLarge = errors.New("file exceeds upload size limit")
)

// Library is where stored files are registered.
type Library interface {
	AddMedia(ctx context.Context, m database.Media) (database.Media, error)
}

// Job moves one pending file into the library. File may be nil when the
// payload is registered under BlobURL.
type Job struct {
	BlockID  string
	ClientID string
	BlobURL  string
	File     *playlist.FileRef

	enqueued time.Time
}

// Result reports a finished job. Err is set when the file could not be stored.
type Result struct {
	Job
	Media database.Media
	Err   error
}

// CompleteFunc receives every finished job.
type CompleteFunc func(ctx context.Context, res Result)

// Gate holds workers back while storing more files is unsafe.
type Gate interface {
	WaitIfPaused(ctx context.Context) error
}

// Config configures an Uploader. Gate may be nil.
type Config struct {
	MediaDir  string
	URLPrefix string
	Workers   int
	Queue     int
	MaxBytes  int64
	Retry     filesystem.RetryConfig
	Gate      Gate
}

// Uploader stores pending files with a pool of workers.
type Uploader struct {
	cfg      Config
	library  Library
	registry *Registry
	log      *logging.Logger

	mu         sync.RWMutex
	pool       *workers.Pool[Job]
	onComplete CompleteFunc
}

// NewUploader returns an Uploader. Zero Workers sizes the pool for I/O
// bound work; an empty URLPrefix means "/files".
func NewUploader(cfg Config, library Library, registry *Registry) *Uploader {
	if cfg.Workers <= 0 {
		cfg.Workers = workers.ForIO(8)
	}
	if cfg.Queue <= 0 {
		cfg.Queue = 64
	}
	if cfg.URLPrefix == "" {
		cfg.URLPrefix = "/files"
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialBackoff == 0 {
		cfg.Retry = filesystem.DefaultRetryConfig()
	}
	return &Uploader{
		cfg:      cfg,
		library:  library,
		registry: registry,
		log:      logging.For("uploads"),
	}
}

// Start launches the workers. onComplete is called once per finished job;
// cancelled jobs are not reported.
func (u *Uploader) Start(ctx context.Context, onComplete CompleteFunc) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.pool != nil {
		return
	}
	u.onComplete = onComplete
	u.pool = workers.NewPool(ctx, u.cfg.Workers, u.cfg.Queue, u.process)
	u.log.Info("Started %d upload workers (dir=%s)", u.cfg.Workers, u.cfg.MediaDir)
}

// Validate checks a file before it is accepted into a playlist.
func (u *Uploader) Validate(file *playlist.FileRef) error {
	if file == nil {
		return fmt.Errorf("%w: empty file", ErrNotAudio)
	}
	if !mediatypes.IsAllowed(file.Name, file.ContentType) {
		return fmt.Errorf("%w: %s", ErrNotAudio, file.Name)
	}
	if u.cfg.MaxBytes > 0 && int64(len(file.Data)) > u.cfg.MaxBytes {
		return fmt.Errorf("%w: %s", ErrTooLarge, file.Name)
	}
	return nil
}

// Enqueue schedules job. It blocks while the queue is full.
func (u *Uploader) Enqueue(ctx context.Context, job Job) error {
	u.mu.RLock()
	pool := u.pool
	u.mu.RUnlock()
	if pool == nil {
		return ErrNotStarted
	}

	job.enqueued = time.Now()
	if !pool.Submit(ctx, job) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrStopped
	}
	return nil
}

// Close waits for queued uploads to finish.
func (u *Uploader) Close() {
	u.mu.RLock()
	pool := u.pool
	u.mu.RUnlock()
	if pool != nil {
		pool.Close()
	}
}

// Stop abandons queued and running uploads.
func (u *Uploader) Stop() {
	u.mu.RLock()
	pool := u.pool
	u.mu.RUnlock()
	if pool != nil {
		pool.Stop()
	}
}

func (u *Uploader) process(ctx context.Context, job Job) {
	var m database.Media
	err := u.wait(ctx)
	if err == nil {
		if !u.resolve(&job) {
			metrics.UploadJobsTotal.WithLabelValues("cancelled").Inc()
			u.log.Debug("Upload for block %s dropped: %s was revoked", job.BlockID, job.BlobURL)
			return
		}
		m, err = u.store(ctx, job)
	}
	if job.File == nil {
		job.File = &playlist.FileRef{Name: path.Base(job.BlobURL)}
	}
	if ctx.Err() != nil {
		metrics.UploadJobsTotal.WithLabelValues("cancelled").Inc()
		u.log.Debug("Upload of %s cancelled", job.File.Name)
		return
	}

	res := Result{Job: job, Media: m, Err: err}
	if err != nil {
		metrics.UploadJobsTotal.WithLabelValues("failed").Inc()
		u.log.Warn("Upload of %s for block %s failed: %v", job.File.Name, job.BlockID, err)
	} else {
		metrics.UploadJobsTotal.WithLabelValues("completed").Inc()
		metrics.UploadDuration.Observe(time.Since(job.enqueued).Seconds())
		metrics.UploadBytes.Add(float64(m.Size))
		u.log.Info("Stored %s as %s", job.File.Name, m.URL)
	}

	u.mu.RLock()
	onComplete := u.onComplete
	u.mu.RUnlock()
	if onComplete != nil {
		onComplete(ctx, res)
	}
}

// resolve fills in the payload of a job from the blob registry. It reports
// false once the blob was revoked, which happens when its item left the
// playlist while the job was queued.
func (u *Uploader) resolve(job *Job) bool {
	if job.File != nil {
		return true
	}
	if u.registry == nil {
		return false
	}
	file, ok := u.registry.Lookup(job.BlobURL)
	if !ok {
		return false
	}
	job.File = file
	return true
}

func (u *Uploader) wait(ctx context.Context) error {
	if u.cfg.Gate == nil {
		return nil
	}
	if err := u.cfg.Gate.WaitIfPaused(ctx); err != nil {
		return fmt.Errorf("waiting for memory: %w", err)
	}
	return nil
}

func (u *Uploader) store(ctx context.Context, job Job) (database.Media, error) {
	if err := u.Validate(job.File); err != nil {
		return database.Media{}, err
	}

	dir := filepath.Join(u.cfg.MediaDir, "uploads")
	if err := filesystem.MkdirAllWithRetry(dir, 0o755, u.cfg.Retry); err != nil {
		return database.Media{}, fmt.Errorf("create upload dir: %w", err)
	}

	base := SafeName(job.File.Name)
	stored := uuid.NewString()[:8] + "-" + base
	full := filepath.Join(dir, stored)

	if err := ctx.Err(); err != nil {
		return database.Media{}, err
	}
	n, err := filesystem.WriteFileAtomic(full, bytes.NewReader(job.File.Data), u.cfg.Retry)
	if err != nil {
		return database.Media{}, err
	}

	contentType := job.File.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediatypes.GetMimeType(strings.ToLower(filepath.Ext(base)))
	}

	m, err := u.library.AddMedia(ctx, database.Media{
		Name:     base,
		Path:     full,
		URL:      path.Join(u.cfg.URLPrefix, "uploads", url.PathEscape(stored)),
		MimeType: contentType,
		Size:     n,
	})
	if err != nil {
		return database.Media{}, fmt.Errorf("register %s: %w", base, err)
	}
	return m, nil
}

// SafeName reduces a client-supplied file name to a plain base name.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "upload"
	}
	return out
}
