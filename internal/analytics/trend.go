package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"storepulse/internal/model"
)

const (
	trendUpperCorrelation = 0.3
	trendLowerCorrelation = -0.3
)

// AnalyzeTrend classifies the direction of a metric over the last days of
// records. Fewer than 3 data points cannot support a classification.
func (a *Analyzer) AnalyzeTrend(ctx context.Context, appID int64, days int, metric string) (*model.TrendResult, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	records, err := a.records.ListRange(ctx, appID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load trend records: %w", err)
	}

	result := &model.TrendResult{
		Metric:     metric,
		DataPoints: len(records),
	}
	if len(records) < 3 {
		result.Trend = model.TrendInsufficientData
		return result, nil
	}

	// Correlate the metric against the date ordinal: a clean monotonic
	// series correlates near +/-1, noise near 0.
	xs := make([]float64, 0, len(records))
	ys := make([]float64, 0, len(records))
	for _, record := range records {
		value, ok := record.MetricValue(metric)
		if !ok {
			return nil, fmt.Errorf("unknown trend metric %q", metric)
		}
		xs = append(xs, float64(record.Date.Unix()/86400))
		ys = append(ys, value)
	}

	correlation := pearson(xs, ys)
	switch {
	case correlation > trendUpperCorrelation:
		result.Trend = model.TrendIncreasing
	case correlation < trendLowerCorrelation:
		result.Trend = model.TrendDecreasing
	default:
		result.Trend = model.TrendStable
	}
	result.Confidence = math.Round(math.Min(math.Abs(correlation)*100, 100)*100) / 100
	return result, nil
}

// pearson computes the Pearson correlation coefficient. A flat series has
// no defined correlation and reports 0.
func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}
