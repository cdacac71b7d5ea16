package webamp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// ErrSurfaceClosed is returned when the browser stream went away.
var ErrSurfaceClosed = errors.New("webamp: surface closed")

// Frame is one server-sent event.
type Frame struct {
	Event string
	Data  interface{}
}

// Surface is a connected browser page that a player renders into.
type Surface struct {
	id     string
	frames chan Frame

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	closeOnce sync.Once
}

// NewSurface returns a surface that buffers up to buffer frames.
func NewSurface(id string, buffer int) *Surface {
	if buffer < 1 {
		buffer = 16
	}
	return &Surface{
		id:     id,
		frames: make(chan Frame, buffer),
		ready:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// MountID identifies the surface in logs and status output.
func (s *Surface) MountID() string {
	return s.id
}

// MarkReady signals that the page is listening.
func (s *Surface) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the page is listening.
func (s *Surface) Ready() <-chan struct{} {
	return s.ready
}

// Done is closed when the surface is closed.
func (s *Surface) Done() <-chan struct{} {
	return s.done
}

// Close ends the stream. It is safe to call more than once.
func (s *Surface) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// trySend queues f without blocking.
func (s *Surface) trySend(f Frame) error {
	select {
	case <-s.done:
		return ErrSurfaceClosed
	default:
	}
	select {
	case s.frames <- f:
		return nil
	default:
		return fmt.Errorf("webamp: surface %s is not draining frames", s.id)
	}
}

// Stream writes frames to w in text/event-stream format until the surface
// or ctx is done. flush is called after every frame and may be nil. A
// keepalive comment is written every keepalive interval when positive.
func (s *Surface) Stream(ctx context.Context, w io.Writer, flush func(), keepalive time.Duration) error {
	if flush == nil {
		flush = func() {}
	}

	var tick <-chan time.Time
	if keepalive > 0 {
		t := time.NewTicker(keepalive)
		defer t.Stop()
		tick = t.C
	}

	s.MarkReady()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return s.drain(w, flush)
		case <-tick:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return err
			}
			flush()
		case f := <-s.frames:
			if err := writeFrame(w, f); err != nil {
				return err
			}
			flush()
		}
	}
}

// drain writes frames queued before the surface closed, such as the final
// dispose frame.
func (s *Surface) drain(w io.Writer, flush func()) error {
	for {
		select {
		case f := <-s.frames:
			if err := writeFrame(w, f); err != nil {
				return err
			}
			flush()
		default:
			return nil
		}
	}
}

func writeFrame(w io.Writer, f Frame) error {
	data, err := json.Marshal(f.Data)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", f.Event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", f.Event, data)
	return err
}
