package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

type encoder interface {
	io.WriteCloser
	Reset(w io.Writer)
}

type compressWriter struct {
	gin.ResponseWriter
	enc io.Writer
}

func (w *compressWriter) Write(b []byte) (int, error) {
	w.Header().Del("Content-Length")
	return w.enc.Write(b)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Compress encodes responses with br or gzip when the client accepts it.
// Encoders are pooled and tuned for speed since payloads are small JSON.
func Compress() gin.HandlerFunc {
	pools := map[string]*sync.Pool{
		"br": {New: func() any {
			return brotli.NewWriterLevel(io.Discard, brotli.BestSpeed)
		}},
		"gzip": {New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
			return w
		}},
	}

	return func(c *gin.Context) {
		// promhttp negotiates its own encoding.
		if c.Request.URL.Path == "/metrics" || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		name := negotiate(c.GetHeader("Accept-Encoding"))
		if name == "" {
			c.Next()
			return
		}

		pool := pools[name]
		enc := pool.Get().(encoder)
		enc.Reset(c.Writer)
		defer func() {
			_ = enc.Close()
			enc.Reset(io.Discard)
			pool.Put(enc)
		}()

		c.Header("Content-Encoding", name)
		c.Writer.Header().Add("Vary", "Accept-Encoding")
		c.Writer = &compressWriter{ResponseWriter: c.Writer, enc: enc}
		c.Next()
	}
}

func negotiate(accept string) string {
	var gz bool
	for _, part := range strings.Split(accept, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch strings.ToLower(name) {
		case "br":
			return "br"
		case "gzip":
			gz = true
		}
	}
	if gz {
		return "gzip"
	}
	return ""
}

// CORS allows browser access from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Request-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID,Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
