package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(size int, ttl time.Duration) *Sessions {
	return NewSessions(size, ttl, func() *Controller {
		return NewController(&MockEnhancer{result: imageB}, nil, 0)
	})
}

func TestSessionsCreateAndGet(t *testing.T) {
	s := newTestSessions(10, time.Hour)

	id, c, err := s.Create()
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, ok := s.Get(id)
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestSessions(10, time.Hour)

	_, first, err := s.Create()
	require.NoError(t, err)
	_, second, err := s.Create()
	require.NoError(t, err)

	first.Upload(imageA)

	assert.Equal(t, imageA, first.Snapshot().State.Original)
	assert.Empty(t, second.Snapshot().State.Original)
}

func TestSessionsGetUnknown(t *testing.T) {
	s := newTestSessions(10, time.Hour)

	_, ok := s.Get("missing")
	assert.False(t, ok)

	_, ok = s.Get("")
	assert.False(t, ok)
}

func TestSessionsGetOrCreate(t *testing.T) {
	s := newTestSessions(10, time.Hour)

	id, c, err := s.GetOrCreate("unknown")
	require.NoError(t, err)
	assert.NotEqual(t, "unknown", id)

	sameID, same, err := s.GetOrCreate(id)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)
	assert.Same(t, c, same)
}

func TestSessionsEvictOldest(t *testing.T) {
	s := newTestSessions(1, time.Hour)

	first, c, err := s.Create()
	require.NoError(t, err)
	c.Upload(imageA)

	_, _, err = s.Create()
	require.NoError(t, err)

	_, ok := s.Get(first)
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, c.Snapshot().State.Original, "evicted session should be reset")
}

func TestSessionsExpire(t *testing.T) {
	s := newTestSessions(10, 20*time.Millisecond)

	id, c, err := s.Create()
	require.NoError(t, err)
	c.Upload(imageA)

	// Peek does not refresh the TTL, so polling leaves the session idle.
	assert.Eventually(t, func() bool {
		_, ok := s.controllers.Peek(id)
		return !ok
	}, time.Second, 10*time.Millisecond)

	_, ok := s.Get(id)
	assert.False(t, ok)
	assert.Eventually(t, func() bool {
		return c.Snapshot().State.Original == ""
	}, time.Second, 10*time.Millisecond)
}

func TestSessionsGetDoesNotReviveEvicted(t *testing.T) {
	s := newTestSessions(10, time.Hour)

	id, c, err := s.Create()
	require.NoError(t, err)
	c.Upload(imageA)

	entry, ok := s.controllers.Peek(id)
	require.True(t, ok)
	entry.evicted.Store(true)

	_, ok = s.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())

	newID, fresh, err := s.GetOrCreate(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, newID)
	assert.NotSame(t, c, fresh)
}
