package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rahul/vcaa/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func stores(t *testing.T, ttl time.Duration) map[string]func(*clock) Store {
	return map[string]func(*clock) Store{
		"memory": func(c *clock) Store {
			m := NewMemoryStore(ttl)
			m.now = c.now
			return m
		},
		"sqlite": func(c *clock) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "sessions.db"), ttl)
			require.NoError(t, err)
			s.now = c.now
			return s
		},
	}
}

func session(id string) Session {
	return Session{
		TraceID: id,
		Sender:  "chat-" + id,
		Snapshot: schema.AXTree{
			Version: schema.VersionAXTree,
			PageURL: "https://www.youtube.com/",
			Elements: []schema.AXElement{
				{AXID: "1", BackendNodeID: 7, Role: "button", Name: "Search"},
			},
		},
	}
}

func TestStore_PutGetTake(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores(t, 10*time.Minute) {
		t.Run(name, func(t *testing.T) {
			c := &clock{t: epoch}
			s := open(c)
			defer s.Close()

			require.NoError(t, s.Put(ctx, session("a")))

			got, ok, err := s.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "chat-a", got.Sender)
			assert.Equal(t, int64(7), got.Snapshot.Elements[0].BackendNodeID)
			assert.True(t, got.CreatedAt.Equal(epoch))

			got, ok, err = s.Take(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "https://www.youtube.com/", got.Snapshot.PageURL)

			_, ok, err = s.Take(ctx, "a")
			require.NoError(t, err)
			assert.False(t, ok, "take removes the session")

			_, ok, err = s.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_PruneByTTL(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores(t, 10*time.Minute) {
		t.Run(name, func(t *testing.T) {
			c := &clock{t: epoch}
			s := open(c)
			defer s.Close()

			require.NoError(t, s.Put(ctx, session("old")))
			c.t = epoch.Add(5 * time.Minute)
			require.NoError(t, s.Put(ctx, session("young")))

			n, err := s.Prune(ctx, epoch.Add(11*time.Minute))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			count, err := s.Len(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
			_, ok, _ := s.Get(ctx, "young")
			assert.True(t, ok)
		})
	}
}

func TestStore_PutPrunesExpired(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			c := &clock{t: epoch}
			s := open(c)
			defer s.Close()

			require.NoError(t, s.Put(ctx, session("stale")))
			c.t = epoch.Add(2 * time.Minute)
			require.NoError(t, s.Put(ctx, session("fresh")))

			_, ok, err := s.Get(ctx, "stale")
			require.NoError(t, err)
			assert.False(t, ok)
			count, _ := s.Len(ctx)
			assert.Equal(t, 1, count)
		})
	}
}

func TestStore_Closed(t *testing.T) {
	ctx := context.Background()
	for name, open := range stores(t, time.Minute) {
		t.Run(name, func(t *testing.T) {
			s := open(&clock{t: epoch})
			require.NoError(t, s.Close())
			require.NoError(t, s.Close())

			assert.ErrorIs(t, s.Put(ctx, session("a")), ErrClosed)
			_, _, err := s.Get(ctx, "a")
			assert.ErrorIs(t, err, ErrClosed)
			_, _, err = s.Take(ctx, "a")
			assert.ErrorIs(t, err, ErrClosed)
			_, err = s.Prune(ctx, epoch)
			assert.ErrorIs(t, err, ErrClosed)
			_, err = s.Len(ctx)
			assert.ErrorIs(t, err, ErrClosed)
		})
	}
}

func TestSQLiteStore_SharedBetweenHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	writer, err := NewSQLiteStore(path, time.Hour)
	require.NoError(t, err)
	defer writer.Close()
	reader, err := NewSQLiteStore(path, time.Hour)
	require.NoError(t, err)
	defer reader.Close()

	require.NoError(t, writer.Put(ctx, session("shared")))
	got, ok, err := reader.Take(ctx, "shared")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "chat-shared", got.Sender)

	_, ok, err = writer.Get(ctx, "shared")
	require.NoError(t, err)
	assert.False(t, ok)
}
