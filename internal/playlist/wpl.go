package playlist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"winamp-block/internal/mediatypes"
)

// ErrInvalidWPL is returned for documents that are not WPL playlists.
var ErrInvalidWPL = errors.New("invalid WPL document")

// WPL structure based on Windows Media Player playlist format
type WPL struct {
	XMLName xml.Name `xml:"smil"`
	Head    WPLHead  `xml:"head"`
	Body    WPLBody  `xml:"body"`
}

type WPLHead struct {
	Title string    `xml:"title"`
	Meta  []WPLMeta `xml:"meta"`
}

type WPLMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type WPLBody struct {
	Seq WPLSeq `xml:"seq"`
}

type WPLSeq struct {
	Media []WPLMedia `xml:"media"`
}

type WPLMedia struct {
	Src string `xml:"src,attr"`
}

// Import is the audio content of a parsed playlist file.
type Import struct {
	Title string
	// Sources are the audio entries in file order, with Windows separators
	// normalized to forward slashes.
	Sources []string
	// Skipped counts entries that are not audio files.
	Skipped int
}

// ParseWPL reads a WPL document and keeps its audio entries.
func ParseWPL(r io.Reader) (*Import, error) {
	var wpl WPL
	if err := xml.NewDecoder(r).Decode(&wpl); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWPL, err)
	}

	imp := &Import{Title: strings.TrimSpace(wpl.Head.Title)}
	for _, media := range wpl.Body.Seq.Media {
		src := strings.ReplaceAll(strings.TrimSpace(media.Src), "\\", "/")
		if src == "" {
			continue
		}
		if !mediatypes.IsAudioFile(src) {
			imp.Skipped++
			continue
		}
		imp.Sources = append(imp.Sources, src)
	}
	return imp, nil
}

// Resolver maps a playlist source path to a library entry. ok is false when
// the source is not known.
type Resolver func(name string) (entry MediaEntry, ok bool)

// Selection turns the import into entries appended to a playlist. Sources the resolver
// knows become entries with their library identity; absolute http(s) URLs
// are used as-is; anything else is reported in missing.
func (imp *Import) Selection(resolve Resolver) (sel Selection, missing []string) {
	sel.Kind = Append
	for _, src := range imp.Sources {
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			sel.Entries = append(sel.Entries, MediaEntry{URL: src})
			continue
		}
		if resolve != nil {
			if entry, ok := resolve(path.Base(src)); ok {
				sel.Entries = append(sel.Entries, entry)
				continue
			}
		}
		missing = append(missing, src)
	}
	return sel, missing
}
