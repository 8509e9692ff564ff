package shared

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestPacer spaces outbound requests at least minimumDelay apart.
// Callers reserve slots in arrival order; a zero delay never blocks.
type RequestPacer struct {
	minimumDelay time.Duration
	nextSlot     time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewRequestPacer creates a pacer with the given minimum spacing
func NewRequestPacer(minimumDelay time.Duration) *RequestPacer {
	if minimumDelay < 0 {
		minimumDelay = 0
	}
	return &RequestPacer{minimumDelay: minimumDelay}
}

// Wait blocks until the reserved slot arrives. It returns ctx.Err() when ctx
// ends first; the reserved slot is not handed back.
func (p *RequestPacer) Wait(ctx context.Context) error {
	p.mutex.Lock()
	now := time.Now()
	slot := p.nextSlot
	if slot.Before(now) {
		slot = now
	}
	p.nextSlot = slot.Add(p.minimumDelay)
	p.requestCount++
	count := p.requestCount
	p.mutex.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"component":     "RequestPacer",
		"delay":         delay,
		"minimum_delay": p.minimumDelay,
		"request_count": count,
	}).Debug("Delaying outbound request")

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
