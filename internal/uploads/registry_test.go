package uploads

import (
	"strings"
	"testing"

	"winamp-block/internal/playlist"
)

func TestRegistryCreateLookupRevoke(t *testing.T) {
	r := NewRegistry("http://localhost:8080/")
	file := &playlist.FileRef{Name: "a.mp3"}

	url := r.CreateBlobURL(file)
	if !strings.HasPrefix(url, "blob:http://localhost:8080/") {
		t.Fatalf("Unexpected blob URL %q", url)
	}
	if !IsBlobURL(url) {
		t.Error("IsBlobURL should accept minted URLs")
	}

	got, ok := r.Lookup(url)
	if !ok || got != file {
		t.Fatal("Lookup did not return the registered file")
	}
	if r.Len() != 1 {
		t.Errorf("Expected 1 pending URL, got %d", r.Len())
	}

	if !r.Revoke(url) {
		t.Error("Revoke of a known URL should report true")
	}
	if r.Revoke(url) {
		t.Error("Second Revoke should report false")
	}
	if _, ok := r.Lookup(url); ok {
		t.Error("Revoked URL still resolves")
	}
}

func TestRegistryURLsAreUnique(t *testing.T) {
	r := NewRegistry("http://localhost")
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		url := r.CreateBlobURL(&playlist.FileRef{Name: "same.mp3"})
		if seen[url] {
			t.Fatalf("Duplicate URL %q", url)
		}
		seen[url] = true
	}
}

func TestRegistryImplementsBlobMinter(t *testing.T) {
	var _ playlist.BlobMinter = NewRegistry("http://localhost")
}

func TestIsBlobURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"blob:http://localhost/abc", true},
		{"https://example.org/a.mp3", false},
		{"/files/uploads/a.mp3", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsBlobURL(tt.url); got != tt.want {
			t.Errorf("IsBlobURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
