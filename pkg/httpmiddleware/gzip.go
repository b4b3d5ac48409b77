package httpmiddleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/pgzip"
)

// gzipWriter compresses the body once the handler writes a compressible
// response.
type gzipWriter struct {
	http.ResponseWriter
	pool    *sync.Pool
	gz      *pgzip.Writer
	decided bool
}

func (w *gzipWriter) WriteHeader(code int) {
	w.decide(code)
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	if !w.decided {
		w.WriteHeader(http.StatusOK)
	}
	if w.gz != nil {
		return w.gz.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// decide enables compression for bodies that are not already encoded.
func (w *gzipWriter) decide(code int) {
	if w.decided {
		return
	}
	w.decided = true

	h := w.Header()
	if code < http.StatusOK || code == http.StatusNoContent || code == http.StatusNotModified ||
		h.Get("Content-Encoding") != "" {
		return
	}
	h.Set("Content-Encoding", "gzip")
	h.Del("Content-Length")
	w.gz = w.pool.Get().(*pgzip.Writer)
	w.gz.Reset(w.ResponseWriter)
}

func (w *gzipWriter) close() {
	if w.gz == nil {
		return
	}
	_ = w.gz.Close()
	w.pool.Put(w.gz)
	w.gz = nil
}

// Gzip compresses responses for clients that accept gzip.
func Gzip(level int) Middleware {
	pool := &sync.Pool{New: func() any {
		gz, err := pgzip.NewWriterLevel(nil, level)
		if err != nil {
			gz, _ = pgzip.NewWriterLevel(nil, pgzip.DefaultCompression)
		}
		return gz
	}}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")
			if r.Method == http.MethodHead || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				next.ServeHTTP(w, r)
				return
			}
			gw := &gzipWriter{ResponseWriter: w, pool: pool}
			defer gw.close()
			next.ServeHTTP(gw, r)
		})
	}
}
