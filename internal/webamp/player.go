package webamp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"winamp-block/internal/logging"
	"winamp-block/internal/player"
)

var (
	// ErrUnsupportedMount is returned when asked to render into something
	// other than a Surface.
	ErrUnsupportedMount = errors.New("webamp: unsupported mount point")
	// ErrDisposed is returned by a render that finishes after disposal.
	ErrDisposed = errors.New("webamp: player disposed")
	// ErrInvalidTrack rejects options with an empty track URL.
	ErrInvalidTrack = errors.New("webamp: track without url")
)

// Frame event names.
const (
	EventInit    = "init"
	EventSkin    = "skin"
	EventDispose = "dispose"
)

// Factory builds Players.
type Factory struct{}

// NewFactory returns a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// NewPlayer implements player.Factory.
func (f *Factory) NewPlayer(opts player.Options) (player.Instance, error) {
	tracks := make([]player.Track, len(opts.InitialTracks))
	for i, t := range opts.InitialTracks {
		if t.URL == "" {
			return nil, fmt.Errorf("%w at position %d", ErrInvalidTrack, i)
		}
		tracks[i] = t
	}
	opts.InitialTracks = tracks
	if opts.InitialSkin != nil {
		skin := *opts.InitialSkin
		opts.InitialSkin = &skin
	}
	return &Player{opts: opts, log: logging.For("webamp")}, nil
}

// Player is a live instance bound to one Surface.
type Player struct {
	log *logging.Logger

	mu       sync.Mutex
	opts     player.Options
	surface  *Surface
	disposed bool
}

// RenderWhenReady waits for mount to connect and sends the init frame.
func (p *Player) RenderWhenReady(ctx context.Context, mount player.Mount) <-chan error {
	done := make(chan error, 1)

	s, ok := mount.(*Surface)
	if !ok {
		done <- fmt.Errorf("%w: %T", ErrUnsupportedMount, mount)
		return done
	}

	go func() {
		select {
		case <-s.Ready():
		case <-s.Done():
			done <- ErrSurfaceClosed
			return
		case <-ctx.Done():
			done <- ctx.Err()
			return
		}
		done <- p.render(ctx, s)
	}()
	return done
}

func (p *Player) render(ctx context.Context, s *Surface) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return ErrDisposed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.trySend(Frame{Event: EventInit, Data: p.opts}); err != nil {
		return err
	}
	p.surface = s
	p.log.Debug("rendered %d tracks into %s", len(p.opts.InitialTracks), s.MountID())
	return nil
}

// SetSkinFromURL swaps the skin. Before the render completes the new skin
// replaces the initial one.
func (p *Player) SetSkinFromURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return
	}
	if p.surface == nil {
		p.opts.InitialSkin = &player.Skin{URL: url}
		return
	}
	if err := p.surface.trySend(Frame{Event: EventSkin, Data: player.Skin{URL: url}}); err != nil {
		p.log.Warn("skin update for %s dropped: %v", p.surface.MountID(), err)
	}
}

// Dispose sends the dispose frame and closes the surface. Calling it again,
// or before the render completed, is safe.
func (p *Player) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disposed {
		return
	}
	p.disposed = true
	if p.surface == nil {
		return
	}
	if err := p.surface.trySend(Frame{Event: EventDispose, Data: struct{}{}}); err != nil {
		p.log.Debug("dispose frame for %s not sent: %v", p.surface.MountID(), err)
	}
	p.surface.Close()
	p.surface = nil
}
