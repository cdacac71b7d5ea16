package startup

import (
	"errors"
	"fmt"
	"path/filepath"

	"winamp-block/internal/logging"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another server holds the database directory.
var ErrLocked = errors.New("database directory is in use by another server")

// Lock guards a database directory against a second server.
type Lock struct {
	path string
	fl   *flock.Flock
}

// AcquireLock takes the lock file inside dir without waiting.
func AcquireLock(dir string) (*Lock, error) {
	path := filepath.Join(dir, "winamp-block.lock")
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	logging.Debug("  Acquired lock %s", path)
	return &Lock{path: path, fl: fl}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release gives the lock up.
func (l *Lock) Release() error {
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
