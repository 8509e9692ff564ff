package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Every calls run on each tick of interval until ctx is done. It returns nil
// on cancellation so it can run directly inside an errgroup.
func Every(ctx context.Context, name string, interval time.Duration, run func()) error {
	logger := logrus.WithFields(logrus.Fields{
		"component": "Scheduler",
		"job":       name,
		"interval":  interval,
	})
	if interval <= 0 {
		logger.Warn("Job disabled: non-positive interval")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Job scheduled")
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Job stopped")
			return nil
		case <-ticker.C:
			run()
		}
	}
}
