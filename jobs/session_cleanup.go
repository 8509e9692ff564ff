package jobs

import (
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/sirupsen/logrus"
)

type SessionCleanupJob struct {
	Sessions *services.SessionCache
}

func NewSessionCleanupJob(sessions *services.SessionCache) *SessionCleanupJob {
	return &SessionCleanupJob{Sessions: sessions}
}

// Run drops expired sessions and returns how many were dropped
func (j *SessionCleanupJob) Run() int {
	removed := j.Sessions.Sweep()
	logrus.WithFields(logrus.Fields{
		"component": "SessionCleanupJob",
		"removed":   removed,
		"remaining": j.Sessions.Len(),
	}).Info("Session cleanup job completed")
	return removed
}
