package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"winamp-block/internal/database"
	"winamp-block/internal/logging"
	"winamp-block/internal/mediatypes"
	"winamp-block/internal/metrics"
)

// Library is the media table the scanner keeps in sync.
type Library interface {
	AddMedia(ctx context.Context, m database.Media) (database.Media, error)
	ListMedia(ctx context.Context) ([]database.Media, error)
	DeleteMedia(ctx context.Context, id int64) error
}

// Result counts the changes made by one scan.
type Result struct {
	Files     int
	Added     int
	Updated   int
	Removed   int
	Unchanged int
	Duration  time.Duration
	Skipped   bool
}

// Indexer registers the audio files below the media directory in the
// library and removes entries whose files are gone.
type Indexer struct {
	lib       Library
	mediaDir  string
	urlPrefix string
	interval  time.Duration
	log       *logging.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	indexMu              sync.Mutex
	isIndexing           bool
	lastIndexTime        time.Time
	lastResult           Result
	initialIndexComplete bool
}

// New returns an Indexer for mediaDir. Files are served below urlPrefix
// ("/files" when empty). A zero interval scans once at Start.
func New(lib Library, mediaDir, urlPrefix string, interval time.Duration) *Indexer {
	if urlPrefix == "" {
		urlPrefix = "/files"
	}
	return &Indexer{
		lib:       lib,
		mediaDir:  filepath.Clean(mediaDir),
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
		interval:  interval,
		log:       logging.For("library"),
		stopChan:  make(chan struct{}),
	}
}

// Start runs the initial scan in the background and, with a positive
// interval, rescans periodically until Stop.
func (idx *Indexer) Start() {
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.log.Info("Starting initial library scan of %s", idx.mediaDir)
		idx.run("Initial")
		if idx.interval > 0 {
			idx.periodicIndex()
		}
	}()
}

// Stop ends background scanning and waits for a running scan to return.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() { close(idx.stopChan) })
	idx.wg.Wait()
}

// context returns a context that Stop cancels.
func (idx *Indexer) context() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-idx.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (idx *Indexer) run(what string) {
	ctx, cancel := idx.context()
	defer cancel()
	if _, err := idx.Index(ctx); err != nil && !errors.Is(err, context.Canceled) {
		idx.log.Error("%s library scan failed: %v", what, err)
	}
}

func (idx *Indexer) periodicIndex() {
	ticker := time.NewTicker(idx.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			idx.log.Debug("Periodic library scan triggered")
			idx.run("Periodic")
		case <-idx.stopChan:
			return
		}
	}
}

// TriggerIndex starts a scan in the background unless one is running or
// the indexer is stopped.
func (idx *Indexer) TriggerIndex() {
	select {
	case <-idx.stopChan:
		return
	default:
	}
	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()
		idx.run("Requested")
	}()
}

// Index scans the media directory once. A scan requested while another is
// running is skipped.
func (idx *Indexer) Index(ctx context.Context) (Result, error) {
	if !idx.tryStartIndexing() {
		idx.log.Debug("Library scan already in progress, skipping")
		return Result{Skipped: true}, nil
	}
	defer idx.finishIndexing()

	start := time.Now()
	metrics.LibraryScansTotal.Inc()

	existing, err := idx.lib.ListMedia(ctx)
	if err != nil {
		metrics.LibraryScanErrors.Inc()
		return Result{}, fmt.Errorf("list library: %w", err)
	}
	known := make(map[string]database.Media, len(existing))
	for _, m := range existing {
		known[m.Path] = m
	}

	var res Result
	seen := make(map[string]bool)
	err = filepath.WalkDir(idx.mediaDir, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return idx.processPath(ctx, p, d, err, known, seen, &res)
	})
	if err != nil {
		metrics.LibraryScanErrors.Inc()
		return res, fmt.Errorf("walk %s: %w", idx.mediaDir, err)
	}

	res.Removed = idx.cleanupMissingFiles(ctx, known, seen)
	res.Duration = time.Since(start)
	idx.finalizeIndex(res)
	return res, nil
}

func (idx *Indexer) processPath(ctx context.Context, p string, d fs.DirEntry, err error, known map[string]database.Media, seen map[string]bool, res *Result) error {
	if err != nil {
		if p == idx.mediaDir {
			return err
		}
		idx.log.Warn("Error accessing path %s: %v", p, err)
		return nil
	}
	if p != idx.mediaDir && strings.HasPrefix(d.Name(), ".") {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if d.IsDir() || !d.Type().IsRegular() {
		return nil
	}

	ext := strings.ToLower(filepath.Ext(d.Name()))
	if mediatypes.GetFileType(ext) != mediatypes.FileTypeAudio {
		return nil
	}
	info, err := d.Info()
	if err != nil {
		idx.log.Warn("Error reading %s: %v", p, err)
		return nil
	}
	res.Files++
	seen[p] = true

	prev, ok := known[p]
	if ok && prev.Size == info.Size() {
		res.Unchanged++
		return nil
	}

	rel, err := filepath.Rel(idx.mediaDir, p)
	if err != nil {
		return err
	}
	if _, err := idx.lib.AddMedia(ctx, database.Media{
		Name:     d.Name(),
		Path:     p,
		URL:      idx.fileURL(rel),
		MimeType: mediatypes.GetMimeType(ext),
		Size:     info.Size(),
	}); err != nil {
		idx.log.Warn("Error registering %s: %v", rel, err)
		return nil
	}
	if ok {
		res.Updated++
		metrics.LibraryFilesChanged.WithLabelValues("updated").Inc()
	} else {
		res.Added++
		metrics.LibraryFilesChanged.WithLabelValues("added").Inc()
	}
	return nil
}

// fileURL escapes each segment of rel below the URL prefix.
func (idx *Indexer) fileURL(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return path.Join(append([]string{idx.urlPrefix}, parts...)...)
}

// cleanupMissingFiles removes library entries below the media directory
// whose files no longer exist.
func (idx *Indexer) cleanupMissingFiles(ctx context.Context, known map[string]database.Media, seen map[string]bool) int {
	removed := 0
	for p, m := range known {
		if seen[p] || !idx.contains(p) {
			continue
		}
		if _, err := os.Stat(p); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := idx.lib.DeleteMedia(ctx, m.ID); err != nil && !errors.Is(err, database.ErrMediaNotFound) {
			idx.log.Warn("Error removing missing file %s: %v", p, err)
			continue
		}
		removed++
		metrics.LibraryFilesChanged.WithLabelValues("removed").Inc()
	}
	if removed > 0 {
		idx.log.Info("Removed %d missing files from the library", removed)
	}
	return removed
}

func (idx *Indexer) contains(p string) bool {
	rel, err := filepath.Rel(idx.mediaDir, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (idx *Indexer) tryStartIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	if idx.isIndexing {
		return false
	}
	idx.isIndexing = true
	metrics.LibraryScanRunning.Set(1)
	return true
}

func (idx *Indexer) finishIndexing() {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()

	idx.isIndexing = false
	metrics.LibraryScanRunning.Set(0)
}

func (idx *Indexer) finalizeIndex(res Result) {
	idx.indexMu.Lock()
	idx.lastIndexTime = time.Now()
	idx.lastResult = res
	idx.initialIndexComplete = true
	idx.indexMu.Unlock()

	metrics.LibraryScanLastTimestamp.Set(float64(time.Now().Unix()))
	metrics.LibraryScanDuration.Set(res.Duration.Seconds())

	idx.log.Info("Library scan complete: %d audio files (%d added, %d updated, %d removed) in %v",
		res.Files, res.Added, res.Updated, res.Removed, res.Duration)
}

// IsIndexing reports whether a scan is running.
func (idx *Indexer) IsIndexing() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.isIndexing
}

// IsReady reports whether the initial scan has completed.
func (idx *Indexer) IsReady() bool {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.initialIndexComplete
}

// LastIndexTime returns when the last scan completed.
func (idx *Indexer) LastIndexTime() time.Time {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastIndexTime
}

// LastResult returns the counts of the last completed scan.
func (idx *Indexer) LastResult() Result {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	return idx.lastResult
}
