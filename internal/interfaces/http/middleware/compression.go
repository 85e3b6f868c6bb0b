package middleware

import (
	"bufio"
	"compress/gzip"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
)

var gzipPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.DefaultCompression)
		return w
	},
}

// gzipWriter включает сжатие только при первом Write:
// ответы без тела (204, 304, redirect) уходят как есть
type gzipWriter struct {
	http.ResponseWriter
	gz      *gzip.Writer
	status  int
	enabled bool
	decided bool
}

func (w *gzipWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *gzipWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true
	if w.status == 0 {
		w.status = http.StatusOK
	}

	h := w.Header()
	if w.status != http.StatusNoContent && w.status != http.StatusNotModified && h.Get("Content-Encoding") == "" {
		w.enabled = true
		h.Set("Content-Encoding", "gzip")
		h.Del("Content-Length")
		w.gz.Reset(w.ResponseWriter)
	}
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	w.decide()
	if w.enabled {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

func (w *gzipWriter) Flush() {
	w.decide()
	if w.enabled {
		_ = w.gz.Flush()
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *gzipWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijack not supported")
}

func (w *gzipWriter) finish() {
	if !w.decided && w.status != 0 {
		// только заголовки, тела не было
		w.ResponseWriter.WriteHeader(w.status)
		return
	}
	if w.enabled {
		_ = w.gz.Close()
	}
}

// Compression сжимает ответы для клиентов с Accept-Encoding: gzip.
// WebSocket upgrade и пути из skip (например /metrics, promhttp сжимает сам) пропускаются.
func Compression(skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, skip := skipped[r.URL.Path]
			if skip ||
				!strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
				strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Accept-Encoding")

			gz := gzipPool.Get().(*gzip.Writer)
			gw := &gzipWriter{ResponseWriter: w, gz: gz}
			defer func() {
				gw.finish()
				gz.Reset(nil)
				gzipPool.Put(gz)
			}()

			next.ServeHTTP(gw, r)
		})
	}
}
