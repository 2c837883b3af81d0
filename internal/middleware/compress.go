package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

type gzipWriter struct {
	gin.ResponseWriter
	writer  *gzip.Writer
	started bool
}

// Write sets the encoding headers on the first body write, so empty
// responses such as 204 go out untouched.
func (g *gzipWriter) Write(data []byte) (int, error) {
	if !g.started {
		g.started = true
		h := g.Header()
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")
	}
	return g.writer.Write(data)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

type CompressConfig struct {
	Level int
	// Paths with these prefixes are never compressed.
	Skip []string
}

func DefaultCompressConfig() CompressConfig {
	return CompressConfig{
		Level: gzip.DefaultCompression,
		Skip:  []string{"/health", "/metrics"},
	}
}

// Compress gzips responses for clients that accept it. Calendar feeds over
// long ranges are the main beneficiary.
func Compress(config CompressConfig) gin.HandlerFunc {
	pool := sync.Pool{
		New: func() interface{} {
			gz, err := gzip.NewWriterLevel(io.Discard, config.Level)
			if err != nil {
				gz = gzip.NewWriter(io.Discard)
			}
			return gz
		},
	}

	return func(c *gin.Context) {
		for _, path := range config.Skip {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}
		if c.Request.Method == http.MethodHead || !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}

		gz := pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)
		w := &gzipWriter{ResponseWriter: c.Writer, writer: gz}
		c.Writer = w
		defer func() {
			if w.started {
				gz.Close()
			}
			gz.Reset(io.Discard)
			pool.Put(gz)
		}()

		c.Next()
	}
}
