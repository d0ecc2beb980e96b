// Package store keeps the in-flight pipeline sessions the orchestrator joins
// asynchronous messages against.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rahul/vcaa/internal/schema"
)

// ErrClosed is returned by every operation on a closed store.
var ErrClosed = errors.New("store: closed")

// Session is one request in flight: who asked, and the page snapshot the
// plan will be resolved against.
type Session struct {
	TraceID   string
	Sender    string
	Snapshot  schema.AXTree
	CreatedAt time.Time
}

// Expired reports whether the session outlived ttl at now.
func (s Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// Store is a trace-keyed session map with expiry.
type Store interface {
	// Put stores s under s.TraceID, replacing any previous session.
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, traceID string) (Session, bool, error)
	// Take returns the session and removes it.
	Take(ctx context.Context, traceID string) (Session, bool, error)
	// Prune removes every session older than the TTL at now and returns how
	// many went.
	Prune(ctx context.Context, now time.Time) (int, error)
	Len(ctx context.Context) (int, error)
	Close() error
}
