package uploads

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"winamp-block/internal/database"
	"winamp-block/internal/playlist"
)

type fakeLibrary struct {
	mu    sync.Mutex
	next  int64
	added []database.Media
	err   error
}

func (f *fakeLibrary) AddMedia(_ context.Context, m database.Media) (database.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return database.Media{}, f.err
	}
	f.next++
	m.ID = f.next
	f.added = append(f.added, m)
	return m, nil
}

func startUploader(t *testing.T, lib Library, reg *Registry) (*Uploader, <-chan Result) {
	t.Helper()
	u := NewUploader(Config{MediaDir: t.TempDir(), Workers: 2, MaxBytes: 1024}, lib, reg)
	results := make(chan Result, 8)
	u.Start(context.Background(), func(_ context.Context, res Result) {
		results <- res
	})
	t.Cleanup(u.Stop)
	return u, results
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case res := <-results:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for upload result")
		return Result{}
	}
}

func TestUploaderStoresFile(t *testing.T) {
	lib := &fakeLibrary{}
	reg := NewRegistry("http://localhost")
	u, results := startUploader(t, lib, reg)

	file := &playlist.FileRef{Name: "My Song.mp3", ContentType: "audio/mpeg", Data: []byte("ID3")}
	blob := reg.CreateBlobURL(file)

	if err := u.Enqueue(context.Background(), Job{BlockID: "p", ClientID: "c1", BlobURL: blob}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	res := waitResult(t, results)
	if res.Err != nil {
		t.Fatalf("Upload failed: %v", res.Err)
	}
	if res.ClientID != "c1" || res.BlobURL != blob {
		t.Errorf("Result lost job identity: %+v", res.Job)
	}
	if res.Media.Name != "My_Song.mp3" {
		t.Errorf("Expected sanitized name, got %q", res.Media.Name)
	}
	if !strings.HasPrefix(res.Media.URL, "/files/uploads/") || !strings.HasSuffix(res.Media.URL, "-My_Song.mp3") {
		t.Errorf("Unexpected URL %q", res.Media.URL)
	}
	if res.Media.Size != 3 || res.Media.MimeType != "audio/mpeg" {
		t.Errorf("Unexpected media %+v", res.Media)
	}

	data, err := os.ReadFile(res.Media.Path)
	if err != nil {
		t.Fatalf("Stored file missing: %v", err)
	}
	if string(data) != "ID3" {
		t.Errorf("Unexpected stored content %q", data)
	}
}

func TestUploaderRejects(t *testing.T) {
	tests := []struct {
		name string
		file *playlist.FileRef
		want error
	}{
		{"not audio", &playlist.FileRef{Name: "doc.pdf", ContentType: "application/pdf"}, ErrNotAudio},
		{"too large", &playlist.FileRef{Name: "big.mp3", Data: make([]byte, 2048)}, ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := &fakeLibrary{}
			u, results := startUploader(t, lib, NewRegistry("http://localhost"))

			if err := u.Enqueue(context.Background(), Job{BlockID: "p", File: tt.file}); err != nil {
				t.Fatal(err)
			}
			res := waitResult(t, results)
			if !errors.Is(res.Err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, res.Err)
			}
			if len(lib.added) != 0 {
				t.Error("Rejected file was registered")
			}
		})
	}
}

func TestUploaderLibraryError(t *testing.T) {
	lib := &fakeLibrary{err: errors.New("database is locked")}
	u, results := startUploader(t, lib, NewRegistry("http://localhost"))

	file := &playlist.FileRef{Name: "a.ogg", Data: []byte("OggS")}
	if err := u.Enqueue(context.Background(), Job{File: file}); err != nil {
		t.Fatal(err)
	}
	if res := waitResult(t, results); res.Err == nil {
		t.Error("Expected library error to be reported")
	}
}

func TestUploaderEnqueueBeforeStart(t *testing.T) {
	u := NewUploader(Config{MediaDir: t.TempDir()}, &fakeLibrary{}, nil)

	if err := u.Enqueue(context.Background(), Job{}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Expected ErrNotStarted, got %v", err)
	}
}

func TestUploaderEnqueueAfterClose(t *testing.T) {
	u, _ := startUploader(t, &fakeLibrary{}, nil)
	u.Close()

	if err := u.Enqueue(context.Background(), Job{}); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"song.mp3", "song.mp3"},
		{"My Song.mp3", "My_Song.mp3"},
		{"../../etc/passwd", "passwd"},
		{`C:\Music\track.flac`, "track.flac"},
		{".hidden.mp3", "hidden.mp3"},
		{"", "upload"},
		{"ünïcode.ogg", "_n_code.ogg"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SafeName(tt.in); got != tt.want {
				t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

type fakeGate struct {
	release chan struct{}
	err     error
}

func (g *fakeGate) WaitIfPaused(ctx context.Context) error {
	if g.err != nil {
		return g.err
	}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestUploaderWaitsForGate(t *testing.T) {
	gate := &fakeGate{release: make(chan struct{})}
	lib := &fakeLibrary{}
	u := NewUploader(Config{MediaDir: t.TempDir(), Workers: 1, Gate: gate}, lib, nil)
	results := make(chan Result, 1)
	u.Start(context.Background(), func(_ context.Context, res Result) { results <- res })
	t.Cleanup(u.Stop)

	file := &playlist.FileRef{Name: "a.mp3", Data: []byte("ID3")}
	if err := u.Enqueue(context.Background(), Job{BlockID: "p", File: file}); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-results:
		t.Fatalf("upload finished while paused: %+v", res)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	if res := waitResult(t, results); res.Err != nil {
		t.Errorf("upload after resume failed: %v", res.Err)
	}
}

func TestUploaderDropsBlobRevokedWhilePaused(t *testing.T) {
	gate := &fakeGate{release: make(chan struct{})}
	lib := &fakeLibrary{}
	reg := NewRegistry("http://localhost")
	u := NewUploader(Config{MediaDir: t.TempDir(), Workers: 1, Gate: gate}, lib, reg)
	results := make(chan Result, 1)
	u.Start(context.Background(), func(_ context.Context, res Result) { results <- res })
	t.Cleanup(u.Stop)

	blob := reg.CreateBlobURL(&playlist.FileRef{Name: "a.mp3", Data: []byte("ID3")})
	if err := u.Enqueue(context.Background(), Job{BlockID: "p", ClientID: "c1", BlobURL: blob}); err != nil {
		t.Fatal(err)
	}
	reg.Revoke(blob)
	close(gate.release)

	select {
	case res := <-results:
		t.Fatalf("revoked upload reported a result: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
	if len(lib.added) != 0 {
		t.Error("revoked upload was registered")
	}
}

func TestUploaderGateStopped(t *testing.T) {
	gate := &fakeGate{err: errors.New("memory monitor stopped")}
	lib := &fakeLibrary{}
	u := NewUploader(Config{MediaDir: t.TempDir(), Workers: 1, Gate: gate}, lib, nil)
	results := make(chan Result, 1)
	u.Start(context.Background(), func(_ context.Context, res Result) { results <- res })
	t.Cleanup(u.Stop)

	file := &playlist.FileRef{Name: "a.mp3", Data: []byte("ID3")}
	if err := u.Enqueue(context.Background(), Job{BlockID: "p", File: file}); err != nil {
		t.Fatal(err)
	}
	if res := waitResult(t, results); res.Err == nil {
		t.Error("expected gate error to fail the upload")
	}
	if len(lib.added) != 0 {
		t.Error("file registered despite gate error")
	}
}
