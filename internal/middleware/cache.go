package middleware

// Response cache for the public case list.  The website fetches the same
// case pages for every visitor; serving them from Redis keeps those reads
// off MySQL.  Only 200 responses are stored, and handlers invalidate the
// prefix on every case mutation (see the case handler).

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/landport/freight-api/internal/config"
)

// cacheWriter tees the response body into a buffer, up to limit bytes, while
// streaming it to the client unchanged.
type cacheWriter struct {
	http.ResponseWriter
	status  int
	buf     bytes.Buffer
	written int
	limit   int
}

func (w *cacheWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	if remain := w.limit - w.written; remain > 0 {
		if len(b) <= remain {
			w.buf.Write(b)
		} else {
			w.buf.Write(b[:remain])
		}
	}
	w.written += len(b)
	return w.ResponseWriter.Write(b)
}

// cacheKey hashes method, path and query under the configured prefix.  The
// raw query participates so each page/filter combination gets its own entry.
func cacheKey(prefix string, r *http.Request) string {
	sum := sha1.Sum([]byte(r.Method + " " + r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum)
}

// InvalidateCache drops every entry under the configured prefix.  Called by
// mutation handlers so the website never serves a stale case for more than
// one round trip.
func InvalidateCache(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig) {
	if rdb == nil {
		return
	}
	iter := rdb.Scan(ctx, 0, cfg.Prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		rdb.Del(ctx, iter.Val())
	}
}

// NewResponseCache returns a middleware that serves cached JSON bodies for
// GET requests.  With caching disabled or Redis absent it is a pass-through.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c.Request())

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			w := &cacheWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBody}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if w.status == http.StatusOK && w.written <= cfg.MaxBody {
				// Best effort: a failed write just means the next request
				// hits the database again.
				_ = rdb.SetEx(context.Background(), key, w.buf.Bytes(), cfg.TTL).Err()
			}
			return nil
		}
	}
}
