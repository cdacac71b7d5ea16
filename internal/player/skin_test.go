package player

import "testing"

func TestSkinResolverResolve(t *testing.T) {
	t.Parallel()

	r := NewSkinResolver("example.org", "example.org", "https://cdn.example.org/skins/default.wsz")

	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"full URL", "https://skins.example.org/skin/abc123/foo", "https://cdn.example.org/skins/abc123.wsz", true},
		{"http scheme", "http://skins.example.org/skin/Zz_9/Some_Skin.wsz/", "https://cdn.example.org/skins/Zz_9.wsz", true},
		{"protocol relative", "//skins.example.org/skin/abc/", "https://cdn.example.org/skins/abc.wsz", true},
		{"no scheme", "skins.example.org/skin/abc/x", "https://cdn.example.org/skins/abc.wsz", true},
		{"empty uses default", "", "https://cdn.example.org/skins/default.wsz", true},
		{"not a URL", "not-a-valid-url", "", false},
		{"missing trailing segment", "https://skins.example.org/skin/abc", "", false},
		{"other host", "https://skins.example.com/skin/abc/foo", "", false},
		{"escaped dot in host", "https://skinsXexampleXorg/skin/abc/foo", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Resolve(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSkinResolverDefaults(t *testing.T) {
	t.Parallel()

	r := NewSkinResolver("", "", "")

	got, ok := r.Resolve("https://skins.webamp.org/skin/5e4f10275dcb1fb211d4a8b4f1bda236/base-2.91.wsz/")
	if !ok || got != "https://cdn.webampskins.org/skins/5e4f10275dcb1fb211d4a8b4f1bda236.wsz" {
		t.Errorf("Unexpected resolution: %q %v", got, ok)
	}
	if r.DefaultURL() != DefaultSkinURL {
		t.Errorf("Expected default skin URL %q, got %q", DefaultSkinURL, r.DefaultURL())
	}
}
