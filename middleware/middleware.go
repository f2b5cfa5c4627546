package middleware

import (
    "bufio"
    "context"
    "log"
    "net"
    "net/http"
    "strings"
    "time"

    "parlor/auth"
)

type contextKey string

// UserContextKey carries the authenticated username through the request
// context once the middleware has verified the bearer token.
const UserContextKey contextKey = "username"

type SessionConfig struct {
    Auth        *auth.Manager
    PublicPaths map[string]bool
}

// AuthMiddleware guards API paths with a bearer token. The WebSocket route
// is public here; it verifies its own handshake credential before upgrade.
func AuthMiddleware(next http.Handler, config SessionConfig) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if config.PublicPaths[r.URL.Path] || strings.HasPrefix(r.URL.Path, "/assets/") {
            next.ServeHTTP(w, r)
            return
        }

        header := r.Header.Get("Authorization")
        if !strings.HasPrefix(header, "Bearer ") {
            http.Error(w, "Authentication required", http.StatusUnauthorized)
            return
        }

        username, err := config.Auth.Verify(strings.TrimPrefix(header, "Bearer "))
        if err != nil {
            http.Error(w, "Authentication required", http.StatusUnauthorized)
            return
        }

        r = r.WithContext(context.WithValue(r.Context(), UserContextKey, username))
        next.ServeHTTP(w, r)
    })
}

// we extend an interface, and then override whatever method we need.
// need to keep the status because we only see it after a handler returns
type statusResponseWriter struct {
    http.ResponseWriter
    status       int
    bytesWritten int64
}

func (w *statusResponseWriter) WriteHeader(status int) {
    w.status = status
    w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
    n, err := w.ResponseWriter.Write(b)
    w.bytesWritten += int64(n)
    return n, err
}

// Hijack must pass through the wrapper or WebSocket upgrades fail.
func (w *statusResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    hj, ok := w.ResponseWriter.(http.Hijacker)
    if !ok {
        return nil, nil, http.ErrNotSupported
    }
    return hj.Hijack()
}

func Logger(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        srw := &statusResponseWriter{
            ResponseWriter: w,
            status:         http.StatusOK,
        }

        start := time.Now()
        next.ServeHTTP(srw, r)
        duration := time.Since(start)

        log.Printf("[REQUEST] [%s %s] [%s] [Status: %d] [Duration: %v] [Bytes written: %d]", r.Method, r.URL.Path, r.Proto, srw.status, duration, srw.bytesWritten)
    })
}
