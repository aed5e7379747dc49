package model

import "fmt"

// GrowthRates maps "{metric}_{comparison}" to a percentage change, e.g.
// "downloads_dod" -> 50.0. Derived per run, never persisted.
type GrowthRates map[string]float64

// Rate returns the growth rate for a metric and comparison mode.
func (g GrowthRates) Rate(metric, comparison string) (float64, bool) {
	v, ok := g[fmt.Sprintf("%s_%s", metric, comparison)]
	return v, ok
}

// Trend classifications returned by trend analysis.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// TrendResult is the outcome of a linear-correlation trend analysis over a
// window of historical records.
type TrendResult struct {
	Metric     string  `json:"metric"`
	Trend      string  `json:"trend"`
	Confidence float64 `json:"confidence"` // 0-100
	DataPoints int     `json:"data_points"`
}

// RunSummary aggregates one ingestion run across apps.
type RunSummary struct {
	RunID             string   `json:"run_id"`
	TargetDate        string   `json:"target_date"`
	TotalApps         int      `json:"total_apps"`
	SuccessCount      int      `json:"success_count"`
	ErrorCount        int      `json:"error_count"`
	AlertsGenerated   int      `json:"alerts_generated"`
	NotificationsSent int      `json:"notifications_sent"`
	Errors            []string `json:"errors,omitempty"`
}

// FullyFailed reports whether no app succeeded, which is alerted differently
// from a partial failure.
func (s *RunSummary) FullyFailed() bool {
	return s.TotalApps > 0 && s.SuccessCount == 0
}
