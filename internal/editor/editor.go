package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"winamp-block/internal/database"
	"winamp-block/internal/logging"
	"winamp-block/internal/metrics"
	"winamp-block/internal/player"
	"winamp-block/internal/playlist"
	"winamp-block/internal/uploads"
)

var (
	// ErrNotPlayerBlock is returned for blocks that are not player blocks.
	ErrNotPlayerBlock = errors.New("not a player block")
	// ErrEmptyNotice rejects an upload error without a message.
	ErrEmptyNotice = errors.New("notice message is empty")
)

// Attribute keys.
const (
	AttrCurrentSkin = "currentSkin"
	AttrPreview     = "preview"
	AttrID          = "id"
	AttrSrc         = "src"
)

// Store is the block and library storage the editor works on.
type Store interface {
	CreateBlock(ctx context.Context, b database.Block) (database.Block, error)
	GetBlock(ctx context.Context, clientID string) (*database.Block, error)
	ReplaceInnerBlocks(ctx context.Context, parentID string, blocks []database.Block) error
	UpdateBlockAttributes(ctx context.Context, clientID string, attrs database.Attributes) (*database.Block, error)
	SetOriginalContent(ctx context.Context, clientID, content string) error
	DeleteBlock(ctx context.Context, clientID string) error
	FindMediaByName(ctx context.Context, name string) (*database.Media, error)
}

// Uploads accepts pending files for background storage.
type Uploads interface {
	Validate(file *playlist.FileRef) error
	Enqueue(ctx context.Context, job uploads.Job) error
}

// Notice is a message shown on a block.
type Notice struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// State is what the editor UI needs to draw a player block.
type State struct {
	BlockID             string            `json:"blockId"`
	Audio               playlist.Playlist `json:"audio"`
	HasAudio            bool              `json:"hasAudio"`
	HasAudioIDs         bool              `json:"hasAudioIds"`
	AudioUploading      bool              `json:"audioUploading"`
	DisableMediaButtons bool              `json:"disableMediaButtons"`
	Skin                string            `json:"currentSkin"`
	SkinURL             string            `json:"skinUrl,omitempty"`
	Preview             string            `json:"preview,omitempty"`
	Notices             []Notice          `json:"notices"`
	Player              player.Status     `json:"player"`
}

// Options configure a Service.
type Options struct {
	Factory      player.Factory
	Skins        *player.SkinResolver
	Blobs        *uploads.Registry
	Uploads      Uploads
	PreviewImage string
}

type blockState struct {
	// mu serializes playlist changes of one block.
	mu   sync.Mutex
	ctrl *player.Controller

	noticeMu sync.Mutex
	notices  []Notice
}

// Service applies editor events to player blocks.
type Service struct {
	store      Store
	opts       Options
	reconciler *playlist.Reconciler
	log        *logging.Logger

	mu     sync.Mutex
	blocks map[string]*blockState
}

// New returns a Service.
func New(store Store, opts Options) *Service {
	if opts.Skins == nil {
		opts.Skins = player.NewSkinResolver("", "", "")
	}
	var minter playlist.BlobMinter
	if opts.Blobs != nil {
		minter = opts.Blobs
	}
	return &Service{
		store:      store,
		opts:       opts,
		reconciler: playlist.NewReconciler(minter, database.NewClientID),
		log:        logging.For("editor"),
		blocks:     make(map[string]*blockState),
	}
}

func (s *Service) block(blockID string) *blockState {
	s.mu.Lock()
	defer s.mu.Unlock()

	bs, ok := s.blocks[blockID]
	if !ok {
		bs = &blockState{ctrl: player.NewController(blockID, s.opts.Factory, s.opts.Skins)}
		s.blocks[blockID] = bs
	}
	return bs
}

// lookup returns the state of a block without creating it.
func (s *Service) lookup(blockID string) (*blockState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bs, ok := s.blocks[blockID]
	return bs, ok
}

// CreatePlayerBlock stores a new, empty player block.
func (s *Service) CreatePlayerBlock(ctx context.Context, attrs database.Attributes) (database.Block, error) {
	if attrs == nil {
		attrs = database.Attributes{}
	}
	if _, ok := attrs[AttrCurrentSkin]; !ok {
		attrs[AttrCurrentSkin] = ""
	}
	b, err := s.store.CreateBlock(ctx, database.Block{Name: database.BlockNamePlayer, Attributes: attrs})
	if err != nil {
		return database.Block{}, err
	}
	s.log.Info("Created player block %s", b.ClientID)
	return b, nil
}

// DeleteBlock removes a player block and releases its player.
func (s *Service) DeleteBlock(ctx context.Context, blockID string) error {
	pl, _, err := s.load(ctx, blockID)
	if err != nil {
		return err
	}

	bs := s.block(blockID)
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if err := s.store.DeleteBlock(ctx, blockID); err != nil {
		return err
	}
	bs.ctrl.Detach()
	s.revokeItems(pl)

	s.mu.Lock()
	delete(s.blocks, blockID)
	s.mu.Unlock()

	s.log.Info("Deleted player block %s", blockID)
	return nil
}

// load fetches a player block and its playlist.
func (s *Service) load(ctx context.Context, blockID string) (playlist.Playlist, *database.Block, error) {
	b, err := s.store.GetBlock(ctx, blockID)
	if err != nil {
		return nil, nil, err
	}
	if b.Name != database.BlockNamePlayer {
		return nil, nil, fmt.Errorf("%w: %s is %s", ErrNotPlayerBlock, blockID, b.Name)
	}
	return toPlaylist(b.InnerBlocks), b, nil
}

// Audio returns the playlist of a player block.
func (s *Service) Audio(ctx context.Context, blockID string) (playlist.Playlist, error) {
	pl, _, err := s.load(ctx, blockID)
	return pl, err
}

func toPlaylist(children []database.Block) playlist.Playlist {
	pl := make(playlist.Playlist, 0, len(children))
	for _, c := range children {
		if c.Name != database.BlockNameAudio {
			continue
		}
		attrs := make(map[string]interface{}, len(c.Attributes))
		for k, v := range c.Attributes {
			attrs[k] = v
		}
		pl = append(pl, playlist.AudioItem{
			ClientID:   c.ClientID,
			ID:         attrID(c.Attributes),
			URL:        c.Attributes.String(AttrSrc),
			Attributes: attrs,
			Persisted:  c.OriginalContent != "",
		})
	}
	return pl
}

// attrID reads the library identity, which may have been stored as a
// number.
func attrID(a database.Attributes) string {
	switch v := a[AttrID].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

// State returns the derived editor state of a block. selected tells whether
// the block currently has the editor's focus.
func (s *Service) State(ctx context.Context, blockID string, selected bool) (*State, error) {
	pl, b, err := s.load(ctx, blockID)
	if err != nil {
		return nil, err
	}
	bs := s.block(blockID)

	st := &State{
		BlockID:     blockID,
		Audio:       pl,
		HasAudio:    len(pl) > 0,
		HasAudioIDs: pl.HasIDs(),
		Skin:        b.Attributes.String(AttrCurrentSkin),
		Notices:     bs.listNotices(),
		Player:      bs.ctrl.Status(),
	}
	for _, item := range pl {
		if item.ID == "" && uploads.IsBlobURL(item.URL) {
			st.AudioUploading = true
			break
		}
	}
	st.DisableMediaButtons = (st.HasAudio && !selected) || st.AudioUploading
	if url, ok := s.opts.Skins.Resolve(st.Skin); ok {
		st.SkinURL = url
	}
	if b.Attributes.Bool(AttrPreview) {
		st.Preview = s.opts.PreviewImage
	}
	return st, nil
}

// SelectAudio applies a media selection to the playlist of a block and
// returns the new playlist. Files the upload pipeline rejects are left out
// and reported through an upload error notice.
func (s *Service) SelectAudio(ctx context.Context, blockID string, sel playlist.Selection) (playlist.Playlist, error) {
	bs := s.block(blockID)

	next, created, err := s.applySelection(ctx, blockID, bs, sel)
	if err != nil {
		return nil, err
	}
	// Upload workers take the block lock when they finish, so jobs are
	// queued only after it is released.
	s.enqueueUploads(ctx, blockID, bs, created)
	return next, nil
}

func (s *Service) applySelection(ctx context.Context, blockID string, bs *blockState, sel playlist.Selection) (playlist.Playlist, playlist.Playlist, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	previous, _, err := s.load(ctx, blockID)
	if err != nil {
		return nil, nil, err
	}

	sel.Entries = s.acceptFiles(blockID, bs, sel.Entries)

	next := s.reconciler.Reconcile(previous, sel)
	changes := playlist.Diff(previous, next)

	if err := s.store.ReplaceInnerBlocks(ctx, blockID, toBlocks(next)); err != nil {
		s.revokeItems(changes.Created)
		return nil, nil, fmt.Errorf("replace audio of %s: %w", blockID, err)
	}

	metrics.ReconcileTotal.WithLabelValues(sel.Kind.String()).Inc()
	metrics.ReconcileItems.WithLabelValues("kept").Add(float64(len(changes.Kept)))
	metrics.ReconcileItems.WithLabelValues("created").Add(float64(len(changes.Created)))
	metrics.ReconcileItems.WithLabelValues("dropped").Add(float64(len(changes.Dropped)))
	s.log.Info("Block %s: %s selection -> %d items (kept %d, created %d, dropped %d)",
		blockID, sel.Kind, len(next), len(changes.Kept), len(changes.Created), len(changes.Dropped))

	s.revokeItems(changes.Dropped)
	return next, changes.Created, nil
}

func toBlocks(pl playlist.Playlist) []database.Block {
	children := make([]database.Block, len(pl))
	for i, item := range pl {
		children[i] = database.Block{
			ClientID:   item.ClientID,
			Name:       database.BlockNameAudio,
			Attributes: database.Attributes(item.Attributes),
		}
	}
	return children
}

// acceptFiles drops pending files the upload pipeline would reject.
func (s *Service) acceptFiles(blockID string, bs *blockState, entries []playlist.MediaEntry) []playlist.MediaEntry {
	if s.opts.Uploads == nil {
		return entries
	}
	out := make([]playlist.MediaEntry, 0, len(entries))
	for _, e := range entries {
		if e.URL == "" && e.File != nil {
			if err := s.opts.Uploads.Validate(e.File); err != nil {
				metrics.SelectionErrorsTotal.Inc()
				bs.replaceNotices(err.Error())
				s.log.Warn("Block %s: rejected %s: %v", blockID, e.File.Name, err)
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func (s *Service) enqueueUploads(ctx context.Context, blockID string, bs *blockState, created playlist.Playlist) {
	if s.opts.Uploads == nil {
		return
	}
	for _, item := range created {
		if item.ID != "" || !uploads.IsBlobURL(item.URL) {
			continue
		}
		job := uploads.Job{BlockID: blockID, ClientID: item.ClientID, BlobURL: item.URL}
		if err := s.opts.Uploads.Enqueue(ctx, job); err != nil {
			metrics.SelectionErrorsTotal.Inc()
			bs.replaceNotices(fmt.Sprintf("Upload could not be started: %v", err))
			s.log.Error("Block %s: enqueue upload for %s failed: %v", blockID, item.ClientID, err)
		}
	}
}

func (s *Service) revokeItems(items playlist.Playlist) {
	if s.opts.Blobs == nil {
		return
	}
	for _, item := range items {
		if uploads.IsBlobURL(item.URL) {
			s.opts.Blobs.Revoke(item.URL)
		}
	}
}

// ImportWPL reads a Windows Media Player playlist and appends the tracks
// found in the library after the items already in the block.
// It returns the new playlist and the sources that could not be resolved.
func (s *Service) ImportWPL(ctx context.Context, blockID string, r io.Reader) (playlist.Playlist, []string, error) {
	imp, err := playlist.ParseWPL(r)
	if err != nil {
		return nil, nil, err
	}

	sel, missing := imp.Selection(func(name string) (playlist.MediaEntry, bool) {
		m, err := s.store.FindMediaByName(ctx, name)
		if err != nil {
			if !errors.Is(err, database.ErrMediaNotFound) {
				s.log.Warn("Lookup of %s failed: %v", name, err)
			}
			return playlist.MediaEntry{}, false
		}
		return playlist.MediaEntry{ID: m.IDString(), URL: m.URL}, true
	})

	next, err := s.SelectAudio(ctx, blockID, sel)
	if err != nil {
		return nil, nil, err
	}
	if len(missing) > 0 {
		s.log.Info("Block %s: WPL import %q skipped %d unresolved sources", blockID, imp.Title, len(missing))
	}
	return next, missing, nil
}

// UploadError replaces all notices of a block with one error notice.
func (s *Service) UploadError(ctx context.Context, blockID, message string) (Notice, error) {
	if message == "" {
		return Notice{}, ErrEmptyNotice
	}
	if _, _, err := s.load(ctx, blockID); err != nil {
		return Notice{}, err
	}
	return s.block(blockID).replaceNotices(message), nil
}

func (bs *blockState) replaceNotices(message string) Notice {
	n := Notice{
		ID:        uuid.NewString(),
		Status:    "error",
		Message:   message,
		CreatedAt: time.Now(),
	}
	bs.noticeMu.Lock()
	bs.notices = []Notice{n}
	bs.noticeMu.Unlock()
	metrics.UploadErrorNotices.Inc()
	return n
}

func (bs *blockState) listNotices() []Notice {
	bs.noticeMu.Lock()
	defer bs.noticeMu.Unlock()
	return append([]Notice{}, bs.notices...)
}

// ClearNotices removes all notices of a block.
func (s *Service) ClearNotices(blockID string) {
	bs, ok := s.lookup(blockID)
	if !ok {
		return
	}
	bs.noticeMu.Lock()
	bs.notices = nil
	bs.noticeMu.Unlock()
}

// SetSkin stores the skin identifier of a block and applies it to the live
// player. It reports whether the player received a new skin.
func (s *Service) SetSkin(ctx context.Context, blockID, skin string) (bool, error) {
	if _, _, err := s.load(ctx, blockID); err != nil {
		return false, err
	}
	if _, err := s.store.UpdateBlockAttributes(ctx, blockID, database.Attributes{AttrCurrentSkin: skin}); err != nil {
		return false, err
	}
	return s.block(blockID).ctrl.SetSkin(skin), nil
}

// MountPlayer attaches the player of a block to mount using the playlist
// and skin stored right now.
func (s *Service) MountPlayer(ctx context.Context, blockID string, mount player.Mount) error {
	pl, b, err := s.load(ctx, blockID)
	if err != nil {
		return err
	}
	return s.block(blockID).ctrl.Attach(mount, pl, b.Attributes.String(AttrCurrentSkin))
}

// UnmountPlayer releases the player of a block if it is attached to mount.
func (s *Service) UnmountPlayer(blockID string, mount player.Mount) bool {
	bs, ok := s.lookup(blockID)
	if !ok {
		return false
	}
	return bs.ctrl.DetachMount(mount)
}

// PlayerStatus returns the lifecycle status of the player of a block.
func (s *Service) PlayerStatus(blockID string) player.Status {
	bs, ok := s.lookup(blockID)
	if !ok {
		return player.Status{State: player.StateUnmounted, Name: player.StateUnmounted.String()}
	}
	return bs.ctrl.Status()
}

// CompleteUpload records the outcome of a background upload. A stored file
// replaces the temporary URL of its audio block; a failed one removes the
// pending item and raises an upload error notice. Results for deleted
// blocks and for items no longer in their playlist change nothing.
func (s *Service) CompleteUpload(ctx context.Context, res uploads.Result) {
	defer func() {
		if s.opts.Blobs != nil {
			s.opts.Blobs.Revoke(res.BlobURL)
		}
	}()
	bs, ok := s.lookup(res.BlockID)
	if !ok {
		s.log.Debug("Upload for deleted block %s finished", res.BlockID)
		return
	}
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if res.Err != nil {
		if s.dropPending(ctx, res) {
			bs.replaceNotices(uploadErrorMessage(res))
		} else {
			s.log.Debug("Block %s: failed upload of removed item %s ignored", res.BlockID, res.ClientID)
		}
		return
	}

	_, err := s.store.UpdateBlockAttributes(ctx, res.ClientID, database.Attributes{
		AttrID:  res.Media.IDString(),
		AttrSrc: res.Media.URL,
	})
	if errors.Is(err, database.ErrBlockNotFound) {
		s.log.Debug("Block %s: upload for removed item %s finished", res.BlockID, res.ClientID)
		return
	}
	if err != nil {
		s.log.Error("Block %s: recording upload of %s failed: %v", res.BlockID, res.ClientID, err)
		return
	}
	s.log.Info("Block %s: item %s now at %s", res.BlockID, res.ClientID, res.Media.URL)
}

func uploadErrorMessage(res uploads.Result) string {
	name := path.Base(res.BlobURL)
	if res.File != nil && res.File.Name != "" {
		name = res.File.Name
	}
	switch {
	case errors.Is(res.Err, uploads.ErrNotAudio):
		return fmt.Sprintf("%s: Sorry, this file type is not supported here.", name)
	case errors.Is(res.Err, uploads.ErrTooLarge):
		return fmt.Sprintf("%s: This file exceeds the maximum upload size.", name)
	default:
		return fmt.Sprintf("%s: Upload failed.", name)
	}
}

// dropPending removes the item of a failed upload and reports whether it
// was still in the playlist.
func (s *Service) dropPending(ctx context.Context, res uploads.Result) bool {
	previous, _, err := s.load(ctx, res.BlockID)
	if err != nil {
		s.log.Warn("Block %s: cannot drop failed upload: %v", res.BlockID, err)
		return false
	}
	kept := make(playlist.Playlist, 0, len(previous))
	found := false
	for _, item := range previous {
		if item.ClientID == res.ClientID {
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		return false
	}
	if err := s.store.ReplaceInnerBlocks(ctx, res.BlockID, toBlocks(kept)); err != nil {
		s.log.Error("Block %s: dropping failed upload %s: %v", res.BlockID, res.ClientID, err)
	}
	return true
}

// Close releases every live player.
func (s *Service) Close() {
	s.mu.Lock()
	blocks := make([]*blockState, 0, len(s.blocks))
	for _, bs := range s.blocks {
		blocks = append(blocks, bs)
	}
	s.mu.Unlock()

	for _, bs := range blocks {
		bs.ctrl.Detach()
	}
}
