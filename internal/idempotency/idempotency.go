// Package idempotency implements request replay: a write endpoint that
// carries an Idempotency-Key header stores its first response and replays it
// verbatim on retry, instead of re-executing the handler.
package idempotency

import "time"

// TTL is how long a stored response is eligible for replay.
const TTL = 24 * time.Hour

// HeaderName is the case-insensitive request header carrying the client's
// idempotency key. http.Header.Get already normalizes case.
const HeaderName = "Idempotency-Key"

// Record is a stored response, keyed by the SHA-256 hash of the client's raw
// idempotency key.
type Record struct {
	KeyHash   string
	DeviceID  int64
	Status    int
	Body      []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}
