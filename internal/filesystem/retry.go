package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"winamp-block/internal/logging"
	"winamp-block/internal/metrics"
)

// RetryConfig configures retry behavior for filesystem operations
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the defaults used for the media directory.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isRetryable reports whether err is a transient network filesystem error:
// a stale NFS handle or an interrupted call.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE || errno == syscall.EINTR || errno == syscall.EAGAIN
	}
	return false
}

func withRetry(op, path string, config RetryConfig, fn func() error) error {
	start := time.Now()
	defer func() {
		metrics.FilesystemRetryDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
				metrics.FilesystemRetries.WithLabelValues(op, "success").Inc()
			}
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		// Don't sleep after the last attempt
		if attempt < config.MaxRetries {
			metrics.FilesystemRetries.WithLabelValues(op, "attempt").Inc()
			logging.Debug("%s transient error for %s, retrying in %v (attempt %d/%d): %v",
				op, path, backoff, attempt+1, config.MaxRetries, err)
			time.Sleep(backoff)

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	metrics.FilesystemRetries.WithLabelValues(op, "failure").Inc()
	return lastErr
}

// StatWithRetry performs os.Stat, retrying transient errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	return info, err
}

// MkdirAllWithRetry performs os.MkdirAll, retrying transient errors.
func MkdirAllWithRetry(path string, perm os.FileMode, config RetryConfig) error {
	return withRetry("mkdir", path, config, func() error {
		return os.MkdirAll(path, perm)
	})
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory and renames it into place, so readers never see a partial file.
// The write is retried on transient errors.
func WriteFileAtomic(path string, r io.Reader, config RetryConfig) (int64, error) {
	dir := filepath.Dir(path)

	// A reader can only be consumed once, so it is spooled to a temp file
	// first and only the rename is retried.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		cleanup()
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return 0, fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return 0, fmt.Errorf("chmod %s: %w", path, err)
	}

	err = withRetry("rename", path, config, func() error {
		return os.Rename(tmpName, path)
	})
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("rename into %s: %w", path, err)
	}
	return n, nil
}
