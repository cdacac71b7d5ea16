package editor

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"winamp-block/internal/database"
	"winamp-block/internal/player"
	"winamp-block/internal/playlist"
	"winamp-block/internal/uploads"
)

// =============================================================================
// Fakes
// =============================================================================

type testMount struct{ id string }

func (m *testMount) MountID() string { return m.id }

type fakeInstance struct {
	mu     sync.Mutex
	opts   player.Options
	skins  []string
	render chan error
}

func (f *fakeInstance) RenderWhenReady(_ context.Context, _ player.Mount) <-chan error {
	return f.render
}

func (f *fakeInstance) SetSkinFromURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skins = append(f.skins, url)
}

func (f *fakeInstance) Dispose() {}

type fakeFactory struct {
	mu        sync.Mutex
	instances []*fakeInstance
}

func (f *fakeFactory) NewPlayer(opts player.Options) (player.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inst := &fakeInstance{opts: opts, render: make(chan error, 1)}
	inst.render <- nil
	f.instances = append(f.instances, inst)
	return inst, nil
}

func (f *fakeFactory) last() *fakeInstance {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.instances) == 0 {
		return nil
	}
	return f.instances[len(f.instances)-1]
}

type fakeUploads struct {
	mu   sync.Mutex
	jobs []uploads.Job
}

func (f *fakeUploads) Validate(file *playlist.FileRef) error {
	if !strings.HasSuffix(file.Name, ".mp3") {
		return uploads.ErrNotAudio
	}
	return nil
}

func (f *fakeUploads) Enqueue(_ context.Context, job uploads.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

type fixture struct {
	svc     *Service
	db      *database.Database
	factory *fakeFactory
	uploads *fakeUploads
	blobs   *uploads.Registry
	blockID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:      db,
		factory: &fakeFactory{},
		uploads: &fakeUploads{},
		blobs:   uploads.NewRegistry("http://localhost"),
	}
	f.svc = New(db, Options{
		Factory:      f.factory,
		Skins:        player.NewSkinResolver("example.org", "example.org", "https://cdn.example.org/default.wsz"),
		Blobs:        f.blobs,
		Uploads:      f.uploads,
		PreviewImage: "/static/preview.png",
	})
	t.Cleanup(f.svc.Close)

	b, err := f.svc.CreatePlayerBlock(context.Background(), nil)
	if err != nil {
		t.Fatalf("CreatePlayerBlock failed: %v", err)
	}
	f.blockID = b.ClientID
	return f
}

func library(ids ...string) playlist.Selection {
	sel := playlist.Selection{Kind: playlist.LibrarySet}
	for _, id := range ids {
		sel.Entries = append(sel.Entries, playlist.MediaEntry{ID: id, URL: "/files/" + id + ".mp3"})
	}
	return sel
}

func itemIDs(pl playlist.Playlist) []string {
	out := make([]string, len(pl))
	for i, item := range pl {
		out[i] = item.ID
	}
	return out
}

// =============================================================================
// Selection
// =============================================================================

func TestSelectAudioLibraryPersistsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("1", "2", "3")); err != nil {
		t.Fatalf("SelectAudio failed: %v", err)
	}
	first, err := f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}

	next, err := f.svc.SelectAudio(ctx, f.blockID, library("3", "1"))
	if err != nil {
		t.Fatalf("SelectAudio failed: %v", err)
	}
	if got := itemIDs(next); !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Fatalf("Expected [3 1], got %v", got)
	}

	stored, err := f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	if got := itemIDs(stored); !reflect.DeepEqual(got, []string{"3", "1"}) {
		t.Errorf("Stored order %v, want [3 1]", got)
	}
	if stored[0].ClientID != first[2].ClientID || stored[1].ClientID != first[0].ClientID {
		t.Error("Kept items must keep their block identity")
	}
}

func TestSelectAudioUploadCreatesPendingItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("1")); err != nil {
		t.Fatal(err)
	}

	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "fileA.mp3", Data: []byte("x")}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatalf("SelectAudio failed: %v", err)
	}
	if len(next) != 2 || next[0].ID != "1" {
		t.Fatalf("Expected existing item then upload, got %+v", next)
	}
	pending := next[1]
	if !uploads.IsBlobURL(pending.URL) || pending.ID != "" {
		t.Errorf("Expected pending blob item, got %+v", pending)
	}
	if _, ok := f.blobs.Lookup(pending.URL); !ok {
		t.Error("Blob URL was not registered")
	}

	if len(f.uploads.jobs) != 1 {
		t.Fatalf("Expected 1 upload job, got %d", len(f.uploads.jobs))
	}
	job := f.uploads.jobs[0]
	if job.BlockID != f.blockID || job.ClientID != pending.ClientID || job.BlobURL != pending.URL {
		t.Errorf("Unexpected job %+v", job)
	}

	st, err := f.svc.State(ctx, f.blockID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !st.AudioUploading || !st.DisableMediaButtons {
		t.Errorf("Expected uploading state, got %+v", st)
	}
}

func TestSelectAudioRejectsNonAudio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "notes.txt"}},
		{File: &playlist.FileRef{Name: "song.mp3"}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatal(err)
	}
	if len(next) != 1 {
		t.Fatalf("Expected only the audio file, got %d items", len(next))
	}

	st, err := f.svc.State(ctx, f.blockID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Notices) != 1 || st.Notices[0].Status != "error" {
		t.Errorf("Expected one error notice, got %+v", st.Notices)
	}
}

func TestSelectAudioLibraryDropRevokesBlob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "a.mp3"}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatal(err)
	}
	blob := next[0].URL

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("7")); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.blobs.Lookup(blob); ok {
		t.Error("Dropped pending item should have its blob URL revoked")
	}
}

func TestSelectAudioNotPlayerBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other, err := f.db.CreateBlock(ctx, database.Block{Name: "core/paragraph"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SelectAudio(ctx, other.ClientID, library("1")); !errors.Is(err, ErrNotPlayerBlock) {
		t.Errorf("Expected ErrNotPlayerBlock, got %v", err)
	}
	if _, err := f.svc.SelectAudio(ctx, "missing", library("1")); !errors.Is(err, database.ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound, got %v", err)
	}
}

func TestSelectAudioConcurrentSelectionsSerialize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
				{File: &playlist.FileRef{Name: "x.mp3"}},
			}}
			if _, err := f.svc.SelectAudio(ctx, f.blockID, sel); err != nil {
				t.Errorf("SelectAudio failed: %v", err)
			}
		}()
	}
	wg.Wait()

	pl, err := f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pl) != 8 {
		t.Errorf("Expected 8 items after 8 appends, got %d", len(pl))
	}
}

// =============================================================================
// State and notices
// =============================================================================

func TestStateFlags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.State(ctx, f.blockID, false)
	if err != nil {
		t.Fatal(err)
	}
	if st.HasAudio || st.HasAudioIDs || st.AudioUploading || st.DisableMediaButtons {
		t.Errorf("Empty block should have no flags set: %+v", st)
	}
	if st.SkinURL != "https://cdn.example.org/default.wsz" {
		t.Errorf("Expected default skin URL, got %q", st.SkinURL)
	}
	if st.Player.State != player.StateUnmounted {
		t.Errorf("Expected unmounted player, got %s", st.Player.State)
	}

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("1")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		selected    bool
		wantDisable bool
	}{
		{selected: true, wantDisable: false},
		{selected: false, wantDisable: true},
	}
	for _, tt := range tests {
		st, err := f.svc.State(ctx, f.blockID, tt.selected)
		if err != nil {
			t.Fatal(err)
		}
		if !st.HasAudio || !st.HasAudioIDs || st.AudioUploading {
			t.Errorf("Unexpected flags %+v", st)
		}
		if st.DisableMediaButtons != tt.wantDisable {
			t.Errorf("selected=%v: DisableMediaButtons = %v, want %v", tt.selected, st.DisableMediaButtons, tt.wantDisable)
		}
	}
}

func TestStatePreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.CreatePlayerBlock(ctx, database.Attributes{"preview": true})
	if err != nil {
		t.Fatal(err)
	}
	st, err := f.svc.State(ctx, b.ClientID, false)
	if err != nil {
		t.Fatal(err)
	}
	if st.Preview != "/static/preview.png" {
		t.Errorf("Expected preview image, got %q", st.Preview)
	}
}

func TestUploadErrorReplacesNotices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		if _, err := f.svc.UploadError(ctx, f.blockID, msg); err != nil {
			t.Fatalf("UploadError failed: %v", err)
		}
	}

	st, err := f.svc.State(ctx, f.blockID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Notices) != 1 || st.Notices[0].Message != "third" {
		t.Errorf("Expected exactly the last notice, got %+v", st.Notices)
	}

	if _, err := f.svc.UploadError(ctx, f.blockID, ""); !errors.Is(err, ErrEmptyNotice) {
		t.Errorf("Expected ErrEmptyNotice, got %v", err)
	}

	f.svc.ClearNotices(f.blockID)
	st, _ = f.svc.State(ctx, f.blockID, true)
	if len(st.Notices) != 0 {
		t.Errorf("Expected no notices after clear, got %d", len(st.Notices))
	}
}

// =============================================================================
// Player
// =============================================================================

func waitState(t *testing.T, svc *Service, blockID string, want player.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.PlayerStatus(blockID).State != want {
		if time.Now().After(deadline) {
			t.Fatalf("Player never reached %s, state %s", want, svc.PlayerStatus(blockID).State)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMountPlayerSnapshotsPlaylistAndSkin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("1", "2")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SetSkin(ctx, f.blockID, "https://skins.example.org/skin/abc/x.wsz/"); err != nil {
		t.Fatal(err)
	}

	mount := &testMount{id: "page"}
	if err := f.svc.MountPlayer(ctx, f.blockID, mount); err != nil {
		t.Fatalf("MountPlayer failed: %v", err)
	}
	waitState(t, f.svc, f.blockID, player.StateReady)

	inst := f.factory.last()
	if len(inst.opts.InitialTracks) != 2 || inst.opts.InitialTracks[0].URL != "/files/1.mp3" {
		t.Errorf("Unexpected initial tracks %+v", inst.opts.InitialTracks)
	}
	if inst.opts.InitialSkin == nil || inst.opts.InitialSkin.URL != "https://cdn.example.org/skins/abc.wsz" {
		t.Errorf("Unexpected initial skin %+v", inst.opts.InitialSkin)
	}

	// Later playlist edits do not reach the mounted player
	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("3")); err != nil {
		t.Fatal(err)
	}
	if got := f.svc.PlayerStatus(f.blockID).Tracks; len(got) != 2 {
		t.Errorf("Mounted player should keep its initial tracks, got %v", got)
	}
	if len(f.factory.instances) != 1 {
		t.Errorf("Expected one instance, got %d", len(f.factory.instances))
	}
}

func TestSetSkinAppliesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mount := &testMount{id: "page"}
	if err := f.svc.MountPlayer(ctx, f.blockID, mount); err != nil {
		t.Fatal(err)
	}
	waitState(t, f.svc, f.blockID, player.StateReady)

	applied, err := f.svc.SetSkin(ctx, f.blockID, "https://skins.example.org/skin/one/x/")
	if err != nil || !applied {
		t.Fatalf("Expected skin applied, got %v %v", applied, err)
	}
	applied, err = f.svc.SetSkin(ctx, f.blockID, "not a skin")
	if err != nil || applied {
		t.Errorf("Unrecognized skin should not be applied, got %v %v", applied, err)
	}

	inst := f.factory.last()
	inst.mu.Lock()
	skins := append([]string(nil), inst.skins...)
	inst.mu.Unlock()
	if !reflect.DeepEqual(skins, []string{"https://cdn.example.org/skins/one.wsz"}) {
		t.Errorf("Unexpected skin calls %v", skins)
	}
	if len(f.factory.instances) != 1 {
		t.Error("Skin change must not rebuild the player")
	}

	b, err := f.db.GetBlock(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	if b.Attributes.String(AttrCurrentSkin) != "not a skin" {
		t.Errorf("Skin attribute not stored, got %q", b.Attributes.String(AttrCurrentSkin))
	}
}

func TestUnmountPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mount := &testMount{id: "page"}
	if err := f.svc.MountPlayer(ctx, f.blockID, mount); err != nil {
		t.Fatal(err)
	}
	waitState(t, f.svc, f.blockID, player.StateReady)

	if f.svc.UnmountPlayer(f.blockID, &testMount{id: "page"}) {
		t.Error("A different mount reference must not detach the player")
	}
	if !f.svc.UnmountPlayer(f.blockID, mount) {
		t.Error("Expected the live mount to detach")
	}
	if got := f.svc.PlayerStatus(f.blockID).State; got != player.StateDisposed {
		t.Errorf("Expected disposed, got %s", got)
	}
	if f.svc.UnmountPlayer("unknown", mount) {
		t.Error("Unknown block should report false")
	}
}

// =============================================================================
// Upload completion, save and import
// =============================================================================

func TestCompleteUploadSwapsURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "a.mp3"}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatal(err)
	}
	pending := next[0]

	f.svc.CompleteUpload(ctx, uploads.Result{
		Job:   uploads.Job{BlockID: f.blockID, ClientID: pending.ClientID, BlobURL: pending.URL},
		Media: database.Media{ID: 42, URL: "/files/uploads/abc-a.mp3"},
	})

	pl, err := f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pl) != 1 || pl[0].ClientID != pending.ClientID {
		t.Fatalf("Expected the same item, got %+v", pl)
	}
	if pl[0].ID != "42" || pl[0].URL != "/files/uploads/abc-a.mp3" {
		t.Errorf("Expected permanent identity and URL, got %+v", pl[0])
	}
	if _, ok := f.blobs.Lookup(pending.URL); ok {
		t.Error("Blob URL should be revoked after completion")
	}

	st, err := f.svc.State(ctx, f.blockID, true)
	if err != nil {
		t.Fatal(err)
	}
	if st.AudioUploading {
		t.Error("Block should no longer be uploading")
	}
}

func TestCompleteUploadFailureDropsItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("1")); err != nil {
		t.Fatal(err)
	}
	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "a.mp3"}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatal(err)
	}
	pending := next[1]

	f.svc.CompleteUpload(ctx, uploads.Result{
		Job: uploads.Job{BlockID: f.blockID, ClientID: pending.ClientID, BlobURL: pending.URL, File: &playlist.FileRef{Name: "a.mp3"}},
		Err: uploads.ErrTooLarge,
	})

	st, err := f.svc.State(ctx, f.blockID, true)
	if err != nil {
		t.Fatal(err)
	}
	if got := itemIDs(st.Audio); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("Expected failed item removed, got %v", got)
	}
	if len(st.Notices) != 1 || !strings.Contains(st.Notices[0].Message, "a.mp3") {
		t.Errorf("Expected one notice naming the file, got %+v", st.Notices)
	}
}

func TestCompleteUploadForRemovedItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Must not fail or resurrect anything
	f.svc.CompleteUpload(ctx, uploads.Result{
		Job:   uploads.Job{BlockID: f.blockID, ClientID: "gone", BlobURL: "blob:http://localhost/x"},
		Media: database.Media{ID: 1, URL: "/files/uploads/x.mp3"},
	})

	pl, err := f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	if len(pl) != 0 {
		t.Errorf("Expected empty playlist, got %d items", len(pl))
	}
}

func TestCompleteUploadFailureAfterItemRemoved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "a.mp3"}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatal(err)
	}
	pending := next[0]
	if _, err := f.svc.SelectAudio(ctx, f.blockID, library()); err != nil {
		t.Fatal(err)
	}

	f.svc.CompleteUpload(ctx, uploads.Result{
		Job: uploads.Job{BlockID: f.blockID, ClientID: pending.ClientID, BlobURL: pending.URL, File: &playlist.FileRef{Name: "a.mp3"}},
		Err: uploads.ErrTooLarge,
	})

	st, err := f.svc.State(ctx, f.blockID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Audio) != 0 {
		t.Errorf("Expected empty playlist, got %v", itemIDs(st.Audio))
	}
	if len(st.Notices) != 0 {
		t.Errorf("Expected no notice for a removed item, got %+v", st.Notices)
	}
}

func TestCompleteUploadAfterDeleteBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sel := playlist.Selection{Kind: playlist.UploadBatch, Entries: []playlist.MediaEntry{
		{File: &playlist.FileRef{Name: "a.mp3"}},
	}}
	next, err := f.svc.SelectAudio(ctx, f.blockID, sel)
	if err != nil {
		t.Fatal(err)
	}
	pending := next[0]
	if err := f.svc.DeleteBlock(ctx, f.blockID); err != nil {
		t.Fatal(err)
	}

	f.svc.CompleteUpload(ctx, uploads.Result{
		Job: uploads.Job{BlockID: f.blockID, ClientID: pending.ClientID, BlobURL: pending.URL, File: &playlist.FileRef{Name: "a.mp3"}},
		Err: uploads.ErrTooLarge,
	})
	f.svc.ClearNotices(f.blockID)

	if _, ok := f.svc.lookup(f.blockID); ok {
		t.Error("Expected no state for a deleted block")
	}
	if st := f.svc.PlayerStatus(f.blockID); st.State != player.StateUnmounted {
		t.Errorf("Expected unmounted status, got %v", st.State)
	}
	if _, ok := f.svc.lookup(f.blockID); ok {
		t.Error("PlayerStatus must not create state")
	}
}

func TestSaveBlockMarksPersisted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("1", "2")); err != nil {
		t.Fatal(err)
	}
	pl, err := f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range pl {
		if item.Persisted {
			t.Fatal("Items should not be persisted before save")
		}
	}

	b, err := f.svc.SaveBlock(ctx, f.blockID)
	if err != nil {
		t.Fatalf("SaveBlock failed: %v", err)
	}
	if !strings.Contains(b.OriginalContent, `<audio controls src="/files/1.mp3">`) {
		t.Errorf("Unexpected saved markup %q", b.OriginalContent)
	}

	pl, err = f.svc.Audio(ctx, f.blockID)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range pl {
		if !item.Persisted {
			t.Errorf("Item %s should be persisted after save", item.ClientID)
		}
	}

	// Reselecting keeps saved items persisted
	next, err := f.svc.SelectAudio(ctx, f.blockID, library("2", "1"))
	if err != nil {
		t.Fatal(err)
	}
	if !next[0].Persisted || !next[1].Persisted {
		t.Error("Kept items lost their persisted flag")
	}
}

func TestImportWPLAppends(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.db.AddMedia(ctx, database.Media{Name: "one.mp3", Path: "/media/one.mp3", URL: "/files/one.mp3"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SelectAudio(ctx, f.blockID, library("10", "11")); err != nil {
		t.Fatal(err)
	}

	wpl := `<?wpl version="1.0"?>
<smil><body><seq><media src="one.mp3"/></seq></body></smil>`

	next, _, err := f.svc.ImportWPL(ctx, f.blockID, strings.NewReader(wpl))
	if err != nil {
		t.Fatalf("ImportWPL failed: %v", err)
	}
	if got, want := itemIDs(next), []string{"10", "11", m.IDString()}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected imported track after existing items %v, got %v", want, got)
	}
}

func TestImportWPL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.db.AddMedia(ctx, database.Media{Name: "one.mp3", Path: "/media/one.mp3", URL: "/files/one.mp3"})
	if err != nil {
		t.Fatal(err)
	}

	wpl := `<?wpl version="1.0"?>
<smil>
  <head><title>Mix</title></head>
  <body>
    <seq>
      <media src="C:\Music\one.mp3"/>
      <media src="C:\Music\two.mp3"/>
      <media src="https://example.org/stream.mp3"/>
    </seq>
  </body>
</smil>`

	next, missing, err := f.svc.ImportWPL(ctx, f.blockID, strings.NewReader(wpl))
	if err != nil {
		t.Fatalf("ImportWPL failed: %v", err)
	}
	if len(next) != 2 {
		t.Fatalf("Expected 2 items, got %+v", next)
	}
	if next[0].ID != m.IDString() || next[0].URL != "/files/one.mp3" {
		t.Errorf("Unexpected first item %+v", next[0])
	}
	if next[1].URL != "https://example.org/stream.mp3" {
		t.Errorf("Unexpected second item %+v", next[1])
	}
	if len(missing) != 1 {
		t.Errorf("Expected one missing source, got %v", missing)
	}
}

func TestDeleteBlock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.MountPlayer(ctx, f.blockID, &testMount{id: "page"}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteBlock(ctx, f.blockID); err != nil {
		t.Fatalf("DeleteBlock failed: %v", err)
	}
	if _, err := f.svc.Audio(ctx, f.blockID); !errors.Is(err, database.ErrBlockNotFound) {
		t.Errorf("Expected ErrBlockNotFound, got %v", err)
	}
}

func TestAttrID(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{"12", "12"},
		{float64(12), "12"},
		{int64(7), "7"},
		{nil, ""},
		{true, ""},
	}
	for _, tt := range tests {
		if got := attrID(database.Attributes{"id": tt.in}); got != tt.want {
			t.Errorf("attrID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
