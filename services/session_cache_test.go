package services

import (
	"testing"
	"time"

	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCacheExpiry(t *testing.T) {
	cache := NewSessionCache(time.Minute, 10)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	session := cache.Open(models.User{Email: "a@example.com"})
	assert.Equal(t, now.Add(time.Minute), session.ExpiresAt)

	found, ok := cache.Lookup(session.Token)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", found.User.Email)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Lookup(session.Token)
	assert.False(t, ok, "expired sessions are invisible")
	assert.Equal(t, 1, cache.Len(), "until a sweep runs")

	assert.Equal(t, 1, cache.Sweep())
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, cache.Sweep())

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestSessionCacheEvictsSessionClosestToExpiry(t *testing.T) {
	cache := NewSessionCache(time.Hour, 2)
	now := time.Now()
	cache.Put(Session{Token: "short", ExpiresAt: now.Add(time.Second)})
	cache.Put(Session{Token: "long", ExpiresAt: now.Add(time.Hour)})
	cache.Put(Session{Token: "new", ExpiresAt: now.Add(time.Hour)})

	_, ok := cache.Lookup("short")
	assert.False(t, ok)
	_, ok = cache.Lookup("long")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Len())

	// Replacing a stored token does not evict.
	cache.Put(Session{Token: "long", ExpiresAt: now.Add(2 * time.Hour)})
	assert.Equal(t, 2, cache.Len())
	_, ok = cache.Lookup("new")
	assert.True(t, ok)

	assert.Equal(t, int64(1), cache.Stats().Evictions)
	assert.Equal(t, 2, cache.Stats().Capacity)
}

func TestSessionCacheRevoke(t *testing.T) {
	cache := NewSessionCache(time.Hour, 0)
	session := cache.Open(models.User{})

	assert.True(t, cache.Revoke(session.Token))
	assert.False(t, cache.Revoke(session.Token))
	_, ok := cache.Lookup(session.Token)
	assert.False(t, ok)
	assert.Equal(t, "1h0m0s", cache.Stats().TTL)
}
