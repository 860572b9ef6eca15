package web

import (
	"bytes"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/folio/internal/auth"
)

// bufferedWriter holds a response so it can be stored before being sent.
type bufferedWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedWriter() *bufferedWriter {
	return &bufferedWriter{header: make(http.Header), status: http.StatusOK}
}

func (b *bufferedWriter) Header() http.Header         { return b.header }
func (b *bufferedWriter) WriteHeader(status int)      { b.status = status }
func (b *bufferedWriter) Write(p []byte) (int, error) { return b.body.Write(p) }

// cachePages serves anonymous GET requests from the page cache and stores
// successful responses. Signed-in requests always render fresh because the
// page shows the principal. A nil cache disables the middleware.
func (s *Server) cachePages(next http.Handler) http.Handler {
	if s.cache == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}
		if _, signedIn := auth.FromContext(r.Context()); signedIn {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := r.URL.RequestURI()
		e, hit, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("page cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		if hit {
			w.Header().Set("Content-Type", e.ContentType)
			w.Header().Set("ETag", e.ETag)
			w.Header().Set("X-Cache", "HIT")
			if etagMatch(r.Header.Get("If-None-Match"), e.ETag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			_, _ = w.Write(e.Body)
			return
		}

		buf := newBufferedWriter()
		next.ServeHTTP(buf, r)

		if buf.status == http.StatusOK {
			etag, perr := s.cache.Put(ctx, key, buf.header.Get("Content-Type"), buf.body.Bytes())
			if perr != nil {
				s.logger.Warn("page cache write failed", slog.String("key", key), slog.String("error", perr.Error()))
			} else {
				buf.header.Set("ETag", etag)
			}
		}
		for k, v := range buf.header {
			w.Header()[k] = v
		}
		w.Header().Set("X-Cache", "MISS")
		w.WriteHeader(buf.status)
		_, _ = w.Write(buf.body.Bytes())
	})
}

func etagMatch(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		c := strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if c == etag || c == "*" {
			return true
		}
	}
	return false
}
