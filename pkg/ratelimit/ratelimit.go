// Package ratelimit counts requests per client token in fixed windows
// backed by the key-value store. The window is not sliding: a burst
// straddling a window boundary can admit up to twice the quota, an
// accepted approximation.
package ratelimit

import (
	"context"
	"log"
	"time"

	"github.com/toya-mimura/notes/pkg/ports"
)

const (
	DefaultLimit  = 100
	DefaultWindow = time.Hour

	keyPrefix = "rate:"
)

type Limiter struct {
	kv     ports.KeyValueStore
	limit  int64
	window time.Duration
}

// New builds a limiter over kv. A nil kv disables limiting entirely:
// availability takes precedence over quota enforcement.
func New(kv ports.KeyValueStore, limit int64, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{kv: kv, limit: limit, window: window}
}

// Allow reports whether the client identified by token may proceed.
// Requests 1 through limit in a window are admitted; the next is not.
// Store failures fail open.
func (l *Limiter) Allow(ctx context.Context, token string) bool {
	if l.kv == nil || token == "" {
		return true
	}

	n, err := l.kv.Increment(ctx, keyPrefix+token, l.window)
	if err != nil {
		log.Printf("rate limiter unavailable, failing open: %v", err)
		return true
	}
	return n <= l.limit
}

// RetryAfter is the hint handed to rejected clients.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}
