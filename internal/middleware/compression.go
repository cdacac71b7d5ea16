package middleware

import (
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
)

// CompressionConfig holds configuration for the compression middleware
type CompressionConfig struct {
	// MinSize is the smallest body, in bytes, that gets compressed
	MinSize int
	// Level is the gzip level; invalid levels fall back to the default
	Level int
	// Types lists the media types worth compressing. Audio is never listed.
	Types []string
	// SkipPrefixes are request paths passed through untouched
	SkipPrefixes []string
}

// DefaultCompressionConfig compresses the editor UI, API responses and
// playlists. Stored media under /files/ is sent as-is.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		Types: []string{
			"text/html",
			"text/css",
			"text/plain",
			"text/javascript",
			"text/xml",
			"application/javascript",
			"application/json",
			"application/xml",
			"image/svg+xml",
			"application/vnd.ms-wpl",
		},
		SkipPrefixes: []string{"/files/"},
	}
}

// compressor holds the parsed config and a pool of writers at its level.
type compressor struct {
	cfg   CompressionConfig
	types map[string]bool
	pool  sync.Pool
}

func newCompressor(cfg CompressionConfig) *compressor {
	c := &compressor{cfg: cfg, types: make(map[string]bool, len(cfg.Types))}
	for _, t := range cfg.Types {
		c.types[strings.ToLower(t)] = true
	}
	c.pool.New = func() interface{} {
		w, err := gzip.NewWriterLevel(io.Discard, cfg.Level)
		if err != nil {
			w = gzip.NewWriter(io.Discard)
		}
		return w
	}
	return c
}

// accepts reports whether the response to r may be compressed at all.
func (c *compressor) accepts(r *http.Request) bool {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	if r.Header.Get("Upgrade") != "" || strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		return false
	}
	for _, prefix := range c.cfg.SkipPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}

func (c *compressor) compressible(h http.Header) bool {
	if h.Get("Content-Encoding") != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	return c.types[mediaType]
}

// gzipResponseWriter buffers the start of a body until it knows whether the
// response is worth compressing.
type gzipResponseWriter struct {
	http.ResponseWriter
	c       *compressor
	status  int
	buffer  []byte
	decided bool
	gz      *gzip.Writer
}

func newGzipResponseWriter(w http.ResponseWriter, c *compressor) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		c:              c,
		status:         http.StatusOK,
		buffer:         make([]byte, 0, c.cfg.MinSize+1),
	}
}

func (g *gzipResponseWriter) WriteHeader(statusCode int) {
	if !g.decided {
		g.status = statusCode
	}
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.buffer = append(g.buffer, data...)
	if len(g.buffer) > g.c.cfg.MinSize {
		if err := g.decide(); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

// decide sends the header and the buffered body, compressed or not.
func (g *gzipResponseWriter) decide() error {
	if g.decided {
		return nil
	}
	g.decided = true
	buf := g.buffer
	g.buffer = nil

	if len(buf) >= g.c.cfg.MinSize && g.c.compressible(g.Header()) {
		h := g.Header()
		h.Del("Content-Length")
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")

		g.gz = g.c.pool.Get().(*gzip.Writer)
		g.gz.Reset(g.ResponseWriter)
		g.ResponseWriter.WriteHeader(g.status)
		_, err := g.gz.Write(buf)
		return err
	}

	g.ResponseWriter.WriteHeader(g.status)
	if len(buf) == 0 {
		return nil
	}
	_, err := g.ResponseWriter.Write(buf)
	return err
}

// Close flushes what is left and returns the gzip writer to the pool.
func (g *gzipResponseWriter) Close() error {
	err := g.decide()
	if g.gz != nil {
		if cerr := g.gz.Close(); err == nil {
			err = cerr
		}
		g.c.pool.Put(g.gz)
		g.gz = nil
	}
	return err
}

func (g *gzipResponseWriter) Unwrap() http.ResponseWriter {
	return g.ResponseWriter
}

// Flush implements http.Flusher
func (g *gzipResponseWriter) Flush() {
	_ = g.decide()
	if g.gz != nil {
		_ = g.gz.Flush()
	}
	_ = http.NewResponseController(g.ResponseWriter).Flush()
}

// Compression returns a middleware that compresses responses using gzip
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	c := newCompressor(config)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !c.accepts(r) {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, c)
			defer gzw.Close()
			next.ServeHTTP(gzw, r)
		})
	}
}
