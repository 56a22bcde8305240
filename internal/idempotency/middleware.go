package idempotency

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/fleetbeacon/fleetbeacon/internal/apierr"
	"github.com/fleetbeacon/fleetbeacon/internal/auth"
	"github.com/fleetbeacon/fleetbeacon/internal/cryptoutil"
	"github.com/fleetbeacon/fleetbeacon/internal/httpserver"
)

// recordingWriter buffers the handler's response so it can be stored
// alongside the idempotency key once the handler returns.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Backend is the subset of Store the middleware needs, narrowed to an
// interface so it can be exercised with a test double.
type Backend interface {
	Lookup(ctx context.Context, keyHash string) (Record, bool, error)
	Store(ctx context.Context, keyHash string, deviceID int64, body []byte, status int) (Record, error)
}

var _ Backend = (*Store)(nil)

// Middleware replays a previously stored response when the request carries a
// known Idempotency-Key, and stores the handler's response under a new key
// otherwise. A missing or empty header disables replay entirely for that
// request — it is simply passed through.
func Middleware(store Backend, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey := r.Header.Get(HeaderName)
			if rawKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			keyHash := cryptoutil.SHA256Hex(rawKey)

			if rec, found, err := store.Lookup(r.Context(), keyHash); err != nil {
				logger.Error("idempotency lookup failed", "error", err)
				httpserver.RespondAPIErr(w, apierr.Internal("idempotency lookup failed", err))
				return
			} else if found {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotency-Replayed", "true")
				w.WriteHeader(rec.Status)
				_, _ = w.Write(rec.Body)
				return
			}

			var deviceID int64
			if p := auth.FromContext(r.Context()); p != nil {
				deviceID = p.DeviceID
			}

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			storeCtx := context.WithoutCancel(r.Context())
			if _, err := store.Store(storeCtx, keyHash, deviceID, rw.body.Bytes(), rw.status); err != nil {
				logger.Error("idempotency store failed", "error", err)
			}
		})
	}
}
