package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"
)

// RecordStore is the historical-record lookup growth and trend analysis
// read from.
type RecordStore interface {
	Get(ctx context.Context, appID int64, date time.Time) (*mysql.MetricRecord, error)
	ListRange(ctx context.Context, appID int64, from, to time.Time) ([]*mysql.MetricRecord, error)
}

// growthMetrics are the metrics a growth rate is computed for, in both
// day-over-day and week-over-week variants.
var growthMetrics = []string{
	mysql.MetricDownloads,
	mysql.MetricSessions,
	mysql.MetricUninstalls,
	mysql.MetricUniqueDevices,
	mysql.MetricSearchDownloads,
	mysql.MetricWebReferrerDownloads,
	mysql.MetricAppReferrerDownloads,
}

// Analyzer computes growth rates, trends, and insight summaries from
// persisted metric records.
type Analyzer struct {
	records RecordStore
}

// NewAnalyzer creates an analyzer backed by a record store.
func NewAnalyzer(records RecordStore) *Analyzer {
	return &Analyzer{records: records}
}

// PercentChange computes a percentage change rounded to 2 decimals. A zero
// baseline yields 100.0 when the new value is positive and 0.0 otherwise,
// signaling emergence from nothing without dividing by zero.
func PercentChange(oldValue, newValue float64) float64 {
	if oldValue == 0 {
		if newValue > 0 {
			return 100.0
		}
		return 0.0
	}
	change := ((newValue - oldValue) / oldValue) * 100
	return math.Round(change*100) / 100
}

// ComputeGrowth derives day-over-day and week-over-week rates for the
// current record by looking up the records one day and seven days earlier.
// A missing or unreadable baseline leaves that comparison's rates at 0.0.
func (a *Analyzer) ComputeGrowth(ctx context.Context, current *mysql.MetricRecord, appID int64, date time.Time) model.GrowthRates {
	rates := make(model.GrowthRates, len(growthMetrics)*2)
	for _, metric := range growthMetrics {
		rates[metric+"_"+mysql.ComparisonDayOverDay] = 0.0
		rates[metric+"_"+mysql.ComparisonWeekOverWeek] = 0.0
	}

	a.applyComparison(ctx, rates, current, appID, date.AddDate(0, 0, -1), mysql.ComparisonDayOverDay)
	a.applyComparison(ctx, rates, current, appID, date.AddDate(0, 0, -7), mysql.ComparisonWeekOverWeek)

	logger.Debugf("computed growth rates for app %d on %s: %v", appID, model.DateKey(date), rates)
	return rates
}

func (a *Analyzer) applyComparison(ctx context.Context, rates model.GrowthRates, current *mysql.MetricRecord, appID int64, baselineDate time.Time, comparison string) {
	baseline, err := a.records.Get(ctx, appID, baselineDate)
	if err != nil {
		logger.Warnf("failed to load %s baseline for app %d: %v", comparison, appID, err)
		return
	}
	if baseline == nil {
		logger.Debugf("no %s baseline record for app %d on %s", comparison, appID, model.DateKey(baselineDate))
		return
	}

	for _, metric := range growthMetrics {
		oldValue, ok := baseline.MetricValue(metric)
		if !ok {
			continue
		}
		newValue, ok := current.MetricValue(metric)
		if !ok {
			continue
		}
		rates[fmt.Sprintf("%s_%s", metric, comparison)] = PercentChange(oldValue, newValue)
	}
}
