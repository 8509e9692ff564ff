package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chartTestNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC) // a Friday

func newTestChartService(seed int64, delay time.Duration) *ChartService {
	return newChartServiceWithSource(delay, rand.NewSource(seed), func() time.Time { return chartTestNow })
}

func TestGenerateSeriesProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("a series has pointCount+1 points, starts in range and moves at most 5% per step", prop.ForAll(
		func(pointCount int, seed int64) bool {
			labels, prices := newTestChartService(seed, 0).GenerateSeries(pointCount)
			if len(labels) != pointCount+1 || len(prices) != pointCount+1 {
				t.Logf("pointCount %d produced %d labels and %d prices", pointCount, len(labels), len(prices))
				return false
			}
			if prices[0] < 1000 || prices[0] >= 51000 {
				t.Logf("start price %v out of range", prices[0])
				return false
			}
			for i := 1; i < len(prices); i++ {
				ratio := prices[i] / prices[i-1]
				if ratio < 0.95-1e-9 || ratio > 1.05+1e-9 {
					t.Logf("step %d moved by factor %v", i, ratio)
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 400),
		gen.Int64(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestGenerateSeriesLabels(t *testing.T) {
	labels, _ := newTestChartService(1, 0).GenerateSeries(7)
	assert.Equal(t, []string{"Fri", "Sat", "Sun", "Mon", "Tue", "Wed", "Thu", "Fri"}, labels)

	labels, _ = newTestChartService(1, 0).GenerateSeries(30)
	assert.Equal(t, "Feb 14", labels[0])
	assert.Equal(t, "Mar 15", labels[30])

	labels, _ = newTestChartService(1, 0).GenerateSeries(365)
	assert.Equal(t, "Mar 23", labels[0])
	assert.Equal(t, "Mar 24", labels[365])
}

func TestGenerateSeriesNegativeCount(t *testing.T) {
	labels, prices := newTestChartService(1, 0).GenerateSeries(-3)
	assert.Len(t, labels, 1)
	assert.Len(t, prices, 1)
}

func TestGenerateSeriesIsReproducibleWithSameSource(t *testing.T) {
	_, a := newTestChartService(42, 0).GenerateSeries(30)
	_, b := newTestChartService(42, 0).GenerateSeries(30)
	assert.Equal(t, a, b)
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		raw  string
		want Timeframe
		days int
	}{
		{"24h", Timeframe24h, 1},
		{"7d", Timeframe7d, 7},
		{"30D", Timeframe30d, 30},
		{"90d", Timeframe90d, 90},
		{"1y", Timeframe1y, 365},
		{"", Timeframe7d, 7},
		{"5y", Timeframe7d, 7},
	}
	for _, tt := range tests {
		got := ParseTimeframe(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.days, got.Days(), tt.raw)
	}
}

func TestChartLoad(t *testing.T) {
	series, err := newTestChartService(7, 0).Load(context.Background(), Timeframe30d)
	require.NoError(t, err)

	assert.Equal(t, Timeframe30d, series.Timeframe)
	assert.Len(t, series.Prices, 31)
	assert.Len(t, series.Labels, 31)
	assert.Equal(t, series.Prices[0], series.Summary.First)
	assert.Equal(t, series.Prices[30], series.Summary.Last)
	for _, p := range series.Prices {
		assert.LessOrEqual(t, p, series.Summary.High)
		assert.GreaterOrEqual(t, p, series.Summary.Low)
	}
	assert.Equal(t, series.Summary.Last > series.Summary.First, series.Summary.Positive)
}

func TestChartLoadHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := newTestChartService(1, time.Hour).Load(ctx, Timeframe7d)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChartLoadWaitsForDelay(t *testing.T) {
	start := time.Now()
	_, err := newTestChartService(1, 20*time.Millisecond).Load(context.Background(), Timeframe24h)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, SeriesSummary{}, Summarize(nil))
	assert.Equal(t, SeriesSummary{High: 12, Low: 8, First: 10, Last: 9}, Summarize([]float64{10, 12, 8, 9}))
	assert.True(t, Summarize([]float64{1, 2}).Positive)
}
