package services

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	chartMinStartPrice = 1000.0
	chartStartSpread   = 50000.0
	chartVolatility    = 0.05
)

// Timeframe is a chart span selectable on the price page
type Timeframe string

const (
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
	Timeframe90d Timeframe = "90d"
	Timeframe1y  Timeframe = "1y"
)

// ParseTimeframe maps a raw value to a Timeframe; unknown values select 7d
func ParseTimeframe(raw string) Timeframe {
	switch Timeframe(strings.ToLower(strings.TrimSpace(raw))) {
	case Timeframe24h:
		return Timeframe24h
	case Timeframe30d:
		return Timeframe30d
	case Timeframe90d:
		return Timeframe90d
	case Timeframe1y:
		return Timeframe1y
	default:
		return Timeframe7d
	}
}

// Days is the number of daily steps the timeframe spans
func (t Timeframe) Days() int {
	switch t {
	case Timeframe24h:
		return 1
	case Timeframe30d:
		return 30
	case Timeframe90d:
		return 90
	case Timeframe1y:
		return 365
	default:
		return 7
	}
}

// ChartSeries is a labeled synthetic price series
type ChartSeries struct {
	Timeframe Timeframe     `json:"timeframe"`
	Labels    []string      `json:"labels"`
	Prices    []float64     `json:"prices"`
	Summary   SeriesSummary `json:"summary"`
}

// SeriesSummary holds the figures shown beside the chart
type SeriesSummary struct {
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	First    float64 `json:"first"`
	Last     float64 `json:"last"`
	Positive bool    `json:"positive"`
}

// ChartService generates synthetic price histories. The series are random
// walks and do not reflect market data.
type ChartService struct {
	mutex     sync.Mutex
	rng       *rand.Rand
	now       func() time.Time
	loadDelay time.Duration
}

// NewChartService creates a chart service seeded from the wall clock
func NewChartService(loadDelay time.Duration) *ChartService {
	return &ChartService{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		loadDelay: loadDelay,
	}
}

func newChartServiceWithSource(loadDelay time.Duration, source rand.Source, now func() time.Time) *ChartService {
	return &ChartService{
		rng:       rand.New(source),
		now:       now,
		loadDelay: loadDelay,
	}
}

// GenerateSeries returns pointCount+1 date labels and prices ending today.
// The first price is uniform in [1000, 51000) and every following price
// moves by a uniform factor within ±5% of its predecessor.
func (s *ChartService) GenerateSeries(pointCount int) ([]string, []float64) {
	if pointCount < 0 {
		pointCount = 0
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	labels := make([]string, 0, pointCount+1)
	prices := make([]float64, 0, pointCount+1)

	price := chartMinStartPrice + s.rng.Float64()*chartStartSpread
	for i := 0; i <= pointCount; i++ {
		if i > 0 {
			change := (s.rng.Float64()*2 - 1) * chartVolatility
			price *= 1 + change
		}
		prices = append(prices, price)
		labels = append(labels, chartLabel(now.AddDate(0, 0, i-pointCount), pointCount))
	}

	return labels, prices
}

func chartLabel(date time.Time, pointCount int) string {
	switch {
	case pointCount <= 7:
		return date.Format("Mon")
	case pointCount <= 30:
		return date.Format("Jan 2")
	default:
		return date.Format("Jan 06")
	}
}

// Load returns the series for timeframe after the configured loading delay.
// It returns ctx.Err() if ctx ends first.
func (s *ChartService) Load(ctx context.Context, timeframe Timeframe) (ChartSeries, error) {
	if s.loadDelay > 0 {
		timer := time.NewTimer(s.loadDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ChartSeries{}, ctx.Err()
		case <-timer.C:
		}
	}

	labels, prices := s.GenerateSeries(timeframe.Days())
	series := ChartSeries{
		Timeframe: timeframe,
		Labels:    labels,
		Prices:    prices,
		Summary:   Summarize(prices),
	}

	logrus.WithFields(logrus.Fields{
		"component": "ChartService",
		"timeframe": timeframe,
		"points":    len(prices),
	}).Debug("Generated synthetic chart series")

	return series, nil
}

// Summarize computes high, low and trend of a series. An empty series yields a zero summary.
func Summarize(prices []float64) SeriesSummary {
	if len(prices) == 0 {
		return SeriesSummary{}
	}
	summary := SeriesSummary{
		High:  prices[0],
		Low:   prices[0],
		First: prices[0],
		Last:  prices[len(prices)-1],
	}
	for _, p := range prices[1:] {
		if p > summary.High {
			summary.High = p
		}
		if p < summary.Low {
			summary.Low = p
		}
	}
	summary.Positive = summary.Last > summary.First
	return summary
}
