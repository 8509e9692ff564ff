package jobs

import (
	"github.com/ksrcrypto/crypto-backend/shared"
	"github.com/sirupsen/logrus"
)

type MetricsReportJob struct {
	Metrics []*shared.ServiceMetrics
}

func NewMetricsReportJob(metrics ...*shared.ServiceMetrics) *MetricsReportJob {
	return &MetricsReportJob{Metrics: metrics}
}

func (j *MetricsReportJob) Run() {
	logrus.WithField("services", len(j.Metrics)).Debug("Starting metrics report job")
	for _, m := range j.Metrics {
		if m != nil {
			m.LogSummary()
		}
	}
}
