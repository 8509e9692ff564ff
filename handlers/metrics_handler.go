package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ksrcrypto/crypto-backend/services"
	"github.com/ksrcrypto/crypto-backend/shared"
)

// SessionStats reports the counters of the session store
type SessionStats interface {
	Stats() services.SessionCacheStats
}

type MetricsHandler struct {
	Services    []*shared.ServiceMetrics
	HTTP        *shared.HTTPMetrics
	Performance *shared.PerformanceMetrics
	Sessions    SessionStats
}

func NewMetricsHandler(httpMetrics *shared.HTTPMetrics, performance *shared.PerformanceMetrics, sessions SessionStats, serviceMetrics ...*shared.ServiceMetrics) *MetricsHandler {
	return &MetricsHandler{
		Services:    serviceMetrics,
		HTTP:        httpMetrics,
		Performance: performance,
		Sessions:    sessions,
	}
}

// GetMetrics returns point-in-time snapshots of every registered metric set
func (h *MetricsHandler) GetMetrics(c *fiber.Ctx) error {
	serviceSnapshots := make([]shared.MetricsSnapshot, 0, len(h.Services))
	for _, m := range h.Services {
		if m != nil {
			serviceSnapshots = append(serviceSnapshots, m.GetSnapshot())
		}
	}

	data := fiber.Map{"services": serviceSnapshots}
	if h.HTTP != nil {
		data["upstream_http"] = h.HTTP.GetSnapshot()
	}
	if h.Performance != nil {
		data["performance"] = h.Performance.GetPerformanceSnapshot()
	}
	if h.Sessions != nil {
		data["sessions"] = h.Sessions.Stats()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
