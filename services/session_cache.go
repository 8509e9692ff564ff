package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/ksrcrypto/crypto-backend/models"
	"github.com/sirupsen/logrus"
)

// Session is a signed-in user and the bearer token identifying the session
type Session struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// ExpiredAt reports whether the session is no longer valid at now
func (s Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionCacheStats is the snapshot reported by the metrics endpoint
type SessionCacheStats struct {
	Stored    int    `json:"stored"`
	Capacity  int    `json:"capacity"`
	TTL       string `json:"ttl"`
	Hits      int64  `json:"hits"`
	Misses    int64  `json:"misses"`
	Evictions int64  `json:"evictions"`
}

// SessionCache keeps live sessions keyed by token, bounded by capacity.
// Expired sessions are invisible to Lookup and are dropped by Sweep, which
// the session cleanup job runs periodically.
type SessionCache struct {
	mutex    sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	capacity int
	now      func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewSessionCache creates a cache whose sessions live for ttl
func NewSessionCache(ttl time.Duration, capacity int) *SessionCache {
	if capacity < 1 {
		capacity = 1
	}
	return &SessionCache{
		sessions: make(map[string]Session),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

// Open starts a session for user with a fresh token
func (c *SessionCache) Open(user models.User) Session {
	session := Session{
		Token:     uuid.NewString(),
		User:      user,
		ExpiresAt: c.now().Add(c.ttl),
	}
	c.Put(session)
	return session
}

// Put stores session under its token. When the cache is full the session
// closest to expiry makes room; replacing an existing token never evicts.
func (c *SessionCache) Put(session Session) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.sessions[session.Token]; !exists && len(c.sessions) >= c.capacity {
		c.evictSoonestExpiring()
	}
	c.sessions[session.Token] = session
}

func (c *SessionCache) evictSoonestExpiring() {
	var victim string
	var victimExpiry time.Time

	for token, session := range c.sessions {
		if victim == "" || session.ExpiresAt.Before(victimExpiry) {
			victim = token
			victimExpiry = session.ExpiresAt
		}
	}

	if victim != "" {
		delete(c.sessions, victim)
		c.evictions.Add(1)
	}
}

// Lookup returns the live session named by token
func (c *SessionCache) Lookup(token string) (Session, bool) {
	c.mutex.RLock()
	session, exists := c.sessions[token]
	c.mutex.RUnlock()

	if !exists || session.ExpiredAt(c.now()) {
		c.misses.Add(1)
		return Session{}, false
	}
	c.hits.Add(1)
	return session, true
}

// Revoke removes the session and reports whether it was stored
func (c *SessionCache) Revoke(token string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, exists := c.sessions[token]
	delete(c.sessions, token)
	return exists
}

// Len returns the number of stored sessions, expired ones included
func (c *SessionCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.sessions)
}

// Sweep drops expired sessions and returns how many were dropped
func (c *SessionCache) Sweep() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	removed := 0
	for token, session := range c.sessions {
		if session.ExpiredAt(now) {
			delete(c.sessions, token)
			removed++
		}
	}

	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"component": "SessionCache",
			"removed":   removed,
			"remaining": len(c.sessions),
		}).Debug("Dropped expired sessions")
	}

	return removed
}

// Stats returns the cache counters
func (c *SessionCache) Stats() SessionCacheStats {
	c.mutex.RLock()
	stored := len(c.sessions)
	c.mutex.RUnlock()

	return SessionCacheStats{
		Stored:    stored,
		Capacity:  c.capacity,
		TTL:       c.ttl.String(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
