package main

import (
	"bytes"
	"embed"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"winamp-block/internal/logging"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed static/*
var staticFS embed.FS

// asset is a minified embedded file.
type asset struct {
	content     []byte
	contentType string
}

// loadAssets minifies every embedded file once. Files the minifier rejects
// are served as they are.
func loadAssets() map[string]*asset {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("application/javascript", js.Minify)

	assets := make(map[string]*asset)
	err := fs.WalkDir(staticFS, "static", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := staticFS.ReadFile(filePath)
		if err != nil {
			return err
		}

		contentType := mime.TypeByExtension(filepath.Ext(filePath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		servePath := strings.TrimPrefix(filePath, "static/")

		content := data
		mediaType := strings.Split(contentType, ";")[0]
		if _, _, fn := m.Match(mediaType); fn != nil {
			var buf bytes.Buffer
			if err := m.Minify(mediaType, &buf, bytes.NewReader(data)); err != nil {
				logging.Warn("Failed to minify %s: %v (using original)", servePath, err)
			} else {
				content = buf.Bytes()
				logging.Debug("Minified %s: %d -> %d bytes", servePath, len(data), len(content))
			}
		}

		assets[servePath] = &asset{content: content, contentType: contentType}
		return nil
	})
	if err != nil {
		logging.Warn("Failed to process embedded assets: %v", err)
	}
	logging.Debug("Loaded %d embedded assets", len(assets))
	return assets
}

// staticHandler serves the embedded editor page. Unknown paths get
// index.html; compression is left to the middleware.
func staticHandler() http.Handler {
	assets := loadAssets()
	loaded := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlPath := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if urlPath == "" {
			urlPath = "index.html"
		}

		a, ok := assets[urlPath]
		if !ok {
			if a, ok = assets["index.html"]; !ok {
				http.NotFound(w, r)
				return
			}
			urlPath = "index.html"
		}

		w.Header().Set("Content-Type", a.contentType)
		if urlPath == "index.html" {
			w.Header().Set("Cache-Control", "no-cache")
		} else {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		}
		http.ServeContent(w, r, urlPath, loaded, bytes.NewReader(a.content))
	})
}

// mediaFileHandler serves stored audio below /files/ without directory
// listings.
func mediaFileHandler(mediaDir string) http.Handler {
	files := http.StripPrefix("/files/", http.FileServer(http.Dir(mediaDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}
