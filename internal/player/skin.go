package player

import (
	"regexp"
)

const (
	// DefaultSkinHost is the skin museum host accepted in skin identifiers.
	DefaultSkinHost = "webamp.org"
	// DefaultCDNHost serves the skin files.
	DefaultCDNHost = "webampskins.org"
	// DefaultSkinURL is applied when the identifier is empty.
	DefaultSkinURL = "https://cdn.webampskins.org/skins/5e4f10275dcb1fb211d4a8b4f1bda236.wsz"
)

// SkinResolver maps skin identifiers to skin file URLs.
type SkinResolver struct {
	pattern    *regexp.Regexp
	cdnHost    string
	defaultURL string
}

// NewSkinResolver accepts identifiers of the form
// [http[s]:][//]skins.<skinHost>/skin/<token>/... and resolves them to
// https://cdn.<cdnHost>/skins/<token>.wsz. Empty arguments take the defaults.
func NewSkinResolver(skinHost, cdnHost, defaultURL string) *SkinResolver {
	if skinHost == "" {
		skinHost = DefaultSkinHost
	}
	if cdnHost == "" {
		cdnHost = DefaultCDNHost
	}
	if defaultURL == "" {
		defaultURL = DefaultSkinURL
	}
	return &SkinResolver{
		pattern:    regexp.MustCompile(`(?:https?:)?(?://)?skins\.` + regexp.QuoteMeta(skinHost) + `/skin/(\w+)/(?:.*)?`),
		cdnHost:    cdnHost,
		defaultURL: defaultURL,
	}
}

// Resolve returns the skin URL for identifier. An empty identifier yields
// the default skin. ok is false when a non-empty identifier does not match,
// meaning no skin change should be applied.
func (r *SkinResolver) Resolve(identifier string) (url string, ok bool) {
	if identifier == "" {
		return r.defaultURL, true
	}
	m := r.pattern.FindStringSubmatch(identifier)
	if len(m) != 2 {
		return "", false
	}
	return "https://cdn." + r.cdnHost + "/skins/" + m[1] + ".wsz", true
}

// DefaultURL returns the skin applied for an empty identifier.
func (r *SkinResolver) DefaultURL() string {
	return r.defaultURL
}
