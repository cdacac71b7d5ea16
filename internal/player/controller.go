package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"winamp-block/internal/logging"
	"winamp-block/internal/metrics"
	"winamp-block/internal/playlist"
)

// ErrNoMount is returned by Attach when called without a mount point.
var ErrNoMount = errors.New("player: mount point is nil")

// State is the lifecycle state of a Controller.
type State int

const (
	// StateUnmounted means no mount point has been attached.
	StateUnmounted State = iota
	// StateInitializing means an instance exists and is still rendering.
	StateInitializing
	// StateReady means the instance has rendered into its mount.
	StateReady
	// StateDisposed means the instance was released on unmount.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "unmounted"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Mount is the drawable surface an instance renders into. Controllers
// compare mounts by reference and never change them.
type Mount interface {
	MountID() string
}

// Track is one entry of the initial track list.
type Track struct {
	URL string `json:"url"`
}

// Skin points at a skin file.
type Skin struct {
	URL string `json:"url"`
}

// Options configure a new instance.
type Options struct {
	InitialTracks []Track `json:"initialTracks"`
	InitialSkin   *Skin   `json:"initialSkin,omitempty"`
}

// Instance is a live player.
type Instance interface {
	// RenderWhenReady starts rendering into mount and returns a channel that
	// receives the outcome once. Cancelling ctx abandons the render.
	RenderWhenReady(ctx context.Context, mount Mount) <-chan error
	// SetSkinFromURL swaps the skin without interrupting playback.
	SetSkinFromURL(url string)
	// Dispose releases the instance.
	Dispose()
}

// Factory builds instances.
type Factory interface {
	NewPlayer(opts Options) (Instance, error)
}

// Status is a point-in-time view of a Controller.
type Status struct {
	State   State    `json:"-"`
	Name    string   `json:"state"`
	MountID string   `json:"mountId,omitempty"`
	Tracks  []string `json:"tracks,omitempty"`
	Skin    string   `json:"skin,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type session struct {
	inst    Instance
	mount   Mount
	cancel  context.CancelFunc
	settled chan struct{}
	once    sync.Once
}

func (s *session) dispose() {
	s.once.Do(func() {
		s.inst.Dispose()
		metrics.PlayerDisposals.Inc()
		metrics.PlayerActive.Dec()
	})
}

// Controller owns at most one live instance for a block.
type Controller struct {
	name    string
	factory Factory
	skins   *SkinResolver
	log     *logging.Logger

	mu       sync.Mutex
	state    State
	cur      *session
	tracks   []string
	skin     string
	skinURL  string
	lastErr  error
	attached int
}

// NewController returns a Controller in the Unmounted state. name only
// labels log lines.
func NewController(name string, factory Factory, skins *SkinResolver) *Controller {
	if skins == nil {
		skins = NewSkinResolver("", "", "")
	}
	return &Controller{
		name:    name,
		factory: factory,
		skins:   skins,
		log:     logging.For("player"),
	}
}

// Attach creates the instance for mount from the playlist and skin as they
// are now. Attaching the mount that is already live does nothing; a
// different mount replaces the current instance.
func (c *Controller) Attach(mount Mount, pl playlist.Playlist, skin string) error {
	if mount == nil {
		return ErrNoMount
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil && c.cur.mount == mount {
		return nil
	}
	if c.cur != nil {
		c.log.Debug("%s: mount changed (%s -> %s), replacing instance", c.name, c.cur.mount.MountID(), mount.MountID())
		c.releaseLocked()
	}

	opts := Options{InitialTracks: make([]Track, 0, len(pl))}
	tracks := make([]string, 0, len(pl))
	for _, item := range pl {
		opts.InitialTracks = append(opts.InitialTracks, Track{URL: item.URL})
		tracks = append(tracks, item.URL)
	}
	skinURL, ok := c.skins.Resolve(skin)
	if ok {
		opts.InitialSkin = &Skin{URL: skinURL}
	}

	inst, err := c.factory.NewPlayer(opts)
	if err != nil {
		metrics.PlayerConstructionFailures.Inc()
		c.lastErr = err
		c.setStateLocked(StateUnmounted)
		return fmt.Errorf("create player for %s: %w", c.name, err)
	}
	metrics.PlayerInstancesCreated.Inc()
	metrics.PlayerActive.Inc()

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		inst:    inst,
		mount:   mount,
		cancel:  cancel,
		settled: make(chan struct{}),
	}
	c.cur = s
	c.tracks = tracks
	c.skin = skin
	c.skinURL = skinURL
	c.lastErr = nil
	c.attached++
	c.setStateLocked(StateInitializing)

	done := inst.RenderWhenReady(ctx, mount)
	go c.watchRender(s, done)
	return nil
}

func (c *Controller) watchRender(s *session, done <-chan error) {
	var err error
	if done != nil {
		err = <-done
	}
	close(s.settled)

	c.mu.Lock()
	if c.cur != s {
		// Detached or replaced while rendering; the releaser disposes it.
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.cur = nil
		c.lastErr = err
		c.setStateLocked(StateUnmounted)
		c.mu.Unlock()
		metrics.PlayerRenderFailures.Inc()
		c.log.Warn("%s: render into %s failed: %v", c.name, s.mount.MountID(), err)
		s.cancel()
		s.dispose()
		return
	}
	c.setStateLocked(StateReady)
	c.mu.Unlock()
}

// SetSkin applies a changed skin identifier to the live instance. It
// reports whether a skin URL was sent to the instance.
func (c *Controller) SetSkin(skin string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil {
		metrics.PlayerSkinUpdates.WithLabelValues("no_instance").Inc()
		return false
	}
	if skin == c.skin {
		metrics.PlayerSkinUpdates.WithLabelValues("unchanged").Inc()
		return false
	}
	c.skin = skin

	url, ok := c.skins.Resolve(skin)
	if !ok {
		metrics.PlayerSkinUpdates.WithLabelValues("ignored").Inc()
		c.log.Debug("%s: skin %q not recognized, keeping %s", c.name, skin, c.skinURL)
		return false
	}
	c.cur.inst.SetSkinFromURL(url)
	c.skinURL = url
	metrics.PlayerSkinUpdates.WithLabelValues("applied").Inc()
	c.log.Debug("%s: skin -> %s", c.name, url)
	return true
}

// Detach releases the live instance, if any. Calling it again is a no-op.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked()
}

// DetachMount is Detach limited to mount: it does nothing when a different
// mount is live.
func (c *Controller) DetachMount(mount Mount) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur == nil || c.cur.mount != mount {
		return false
	}
	c.detachLocked()
	return true
}

func (c *Controller) detachLocked() {
	if c.cur == nil {
		if c.state != StateUnmounted {
			c.setStateLocked(StateDisposed)
		}
		return
	}
	c.releaseLocked()
	c.setStateLocked(StateDisposed)
}

func (c *Controller) releaseLocked() {
	s := c.cur
	c.cur = nil
	c.tracks = nil
	s.cancel()

	select {
	case <-s.settled:
		s.dispose()
	default:
		go func() {
			<-s.settled
			s.dispose()
		}()
	}
}

func (c *Controller) setStateLocked(next State) {
	if c.state == next {
		return
	}
	c.log.Debug("%s: %s -> %s", c.name, c.state, next)
	c.state = next
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last construction or render failure.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Attachments returns how many instances this controller has created.
func (c *Controller) Attachments() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:  c.state,
		Name:   c.state.String(),
		Tracks: append([]string(nil), c.tracks...),
		Skin:   c.skinURL,
	}
	if c.cur != nil {
		st.MountID = c.cur.mount.MountID()
	} else {
		st.Skin = ""
	}
	if c.lastErr != nil {
		st.Error = c.lastErr.Error()
	}
	return st
}
