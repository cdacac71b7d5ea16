package streaming

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"winamp-block/internal/logging"
	"winamp-block/internal/metrics"
)

var (
	// ErrWriteTimeout means a write or flush did not finish in time, which
	// happens when the page stops reading.
	ErrWriteTimeout = errors.New("write timeout exceeded")

	// ErrClientGone means the request context ended.
	ErrClientGone = errors.New("client disconnected")

	// ErrStreamClosed is returned after Close.
	ErrStreamClosed = errors.New("stream closed")
)

// Config bounds an event stream.
type Config struct {
	// WriteTimeout is the longest a single write or flush may block
	WriteTimeout time.Duration
	// MaxDuration ends the stream after this long (0 = unlimited)
	MaxDuration time.Duration
}

// DefaultConfig returns the limits used for player streams.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 10 * time.Second,
	}
}

// Writer sends a long-lived response and gives up on a client that stops
// reading. Writes and flushes are serialized. When one stalls the
// writer's context is cancelled and the connection's write deadline is
// moved to now so the blocked call returns.
type Writer struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	started time.Time

	mu       sync.Mutex
	closed   bool
	err      error
	bytes    int64
	inflight sync.WaitGroup
}

// NewWriter wraps w. The returned writer's Context ends with ctx, on a
// stall, on MaxDuration, or on Close.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}
	var cancel context.CancelFunc
	if config.MaxDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, config.MaxDuration)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	return &Writer{
		w:       w,
		rc:      http.NewResponseController(w),
		ctx:     ctx,
		cancel:  cancel,
		config:  config,
		started: time.Now(),
	}
}

// Context ends when the stream should stop.
func (sw *Writer) Context() context.Context {
	return sw.ctx
}

// Write implements io.Writer.
func (sw *Writer) Write(p []byte) (int, error) {
	var n int
	err := sw.do(func() error {
		var err error
		n, err = sw.w.Write(p)
		return err
	})
	if err == nil {
		sw.mu.Lock()
		sw.bytes += int64(n)
		sw.mu.Unlock()
	}
	return n, err
}

// Flush sends buffered data to the client. A failed flush is reported by
// Err and by the next Write.
func (sw *Writer) Flush() {
	_ = sw.do(func() error {
		return sw.rc.Flush()
	})
}

func (sw *Writer) do(op func() error) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.err != nil {
		return sw.err
	}
	if sw.closed {
		return ErrStreamClosed
	}
	if sw.ctx.Err() != nil {
		return sw.fail(sw.contextError())
	}

	result := make(chan error, 1)
	sw.inflight.Add(1)
	go func() {
		defer sw.inflight.Done()
		result <- op()
	}()

	timer := time.NewTimer(sw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			return sw.fail(err)
		}
		return nil
	case <-timer.C:
		metrics.PlayerStreamStalls.Inc()
		logging.Warn("Event stream stalled for %v, closing", sw.config.WriteTimeout)
		sw.unblock()
		return sw.fail(ErrWriteTimeout)
	case <-sw.ctx.Done():
		sw.unblock()
		return sw.fail(sw.contextError())
	}
}

// fail records err and cancels the stream. Callers hold mu.
func (sw *Writer) fail(err error) error {
	if sw.err == nil {
		sw.err = err
	}
	sw.cancel()
	return sw.err
}

// unblock forces a stuck write on the connection to return.
func (sw *Writer) unblock() {
	if err := sw.rc.SetWriteDeadline(time.Now()); err != nil && !errors.Is(err, http.ErrNotSupported) {
		logging.Debug("Failed to set write deadline: %v", err)
	}
}

func (sw *Writer) contextError() error {
	if errors.Is(sw.ctx.Err(), context.DeadlineExceeded) {
		return ErrStreamClosed
	}
	return ErrClientGone
}

// Err returns the error that ended the stream, if any.
func (sw *Writer) Err() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.err
}

// Close ends the stream and waits briefly for a write still on the wire.
// It is safe to call more than once.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	if sw.closed {
		sw.mu.Unlock()
		return nil
	}
	sw.closed = true
	sw.cancel()
	sw.mu.Unlock()

	done := make(chan struct{})
	go func() {
		sw.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		logging.Debug("Event stream write still pending after close")
	}
	return nil
}

// Stats returns the bytes written and the stream age.
func (sw *Writer) Stats() (bytesWritten int64, duration time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.bytes, time.Since(sw.started)
}
