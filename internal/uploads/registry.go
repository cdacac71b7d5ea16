package uploads

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"winamp-block/internal/metrics"
	"winamp-block/internal/playlist"
)

// BlobScheme prefixes every temporary URL.
const BlobScheme = "blob:"

// IsBlobURL reports whether url is a temporary URL.
func IsBlobURL(url string) bool {
	return strings.HasPrefix(url, BlobScheme)
}

// Registry holds the payloads behind temporary URLs until they are revoked.
type Registry struct {
	origin string

	mu      sync.Mutex
	pending map[string]*playlist.FileRef
}

// NewRegistry returns a Registry minting URLs of the form
// blob:<origin>/<uuid>.
func NewRegistry(origin string) *Registry {
	return &Registry{
		origin:  strings.TrimSuffix(origin, "/"),
		pending: make(map[string]*playlist.FileRef),
	}
}

// CreateBlobURL registers file and returns a fresh temporary URL for it.
func (r *Registry) CreateBlobURL(file *playlist.FileRef) string {
	url := BlobScheme + r.origin + "/" + uuid.NewString()

	r.mu.Lock()
	r.pending[url] = file
	n := len(r.pending)
	r.mu.Unlock()

	metrics.PendingBlobURLs.Set(float64(n))
	return url
}

// Lookup returns the payload behind a temporary URL.
func (r *Registry) Lookup(url string) (*playlist.FileRef, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.pending[url]
	return f, ok
}

// Revoke forgets a temporary URL. It reports whether the URL was known.
func (r *Registry) Revoke(url string) bool {
	r.mu.Lock()
	_, ok := r.pending[url]
	delete(r.pending, url)
	n := len(r.pending)
	r.mu.Unlock()

	if ok {
		metrics.PendingBlobURLs.Set(float64(n))
	}
	return ok
}

// Len returns the number of unrevoked URLs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
