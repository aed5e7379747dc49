package anomaly

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/model"
	"storepulse/pkg/store/mysql"
)

type fakeRuleStore struct {
	rules []*mysql.AlertRule
	err   error
}

func (s *fakeRuleStore) ListActiveByApp(context.Context, int64) ([]*mysql.AlertRule, error) {
	return s.rules, s.err
}

func f64(v float64) *float64 { return &v }

func TestSeverityBoundaries(t *testing.T) {
	// Deviation ratio = |current - threshold| / |threshold|, bands
	// inclusive on their lower edge.
	tests := []struct {
		name      string
		current   float64
		threshold float64
		want      string
	}{
		{"deviation 0.25 is low", 125, 100, SeverityLow},
		{"deviation exactly 0.5 is medium", 150, 100, SeverityMedium},
		{"deviation 0.99 is medium", 199, 100, SeverityMedium},
		{"deviation exactly 1.0 is high", 200, 100, SeverityHigh},
		{"deviation exactly 2.0 is critical", 300, 100, SeverityCritical},
		{"deviation 5.0 is critical", 600, 100, SeverityCritical},
		{"zero threshold with nonzero value is critical", 1, 0, SeverityCritical},
		{"zero threshold with zero value is low", 0, 0, SeverityLow},
		{"negative threshold uses magnitude", -30, -20, SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, severity(tt.current, tt.threshold))
		})
	}
}

func TestDetect_GrowthRateRule(t *testing.T) {
	// Yesterday 100, today 150 gives DOD +50%; a max threshold of 40
	// breaches with deviation (50-40)/40 = 0.25, graded low.
	store := &fakeRuleStore{rules: []*mysql.AlertRule{{
		ID:             1,
		AppID:          7,
		Metric:         mysql.MetricDownloads,
		ComparisonType: mysql.ComparisonDayOverDay,
		ThresholdMax:   f64(40),
		WebhookURL:     "https://hooks.example.com/alerts",
	}}}
	rates := model.GrowthRates{"downloads_dod": 50.0}

	anomalies, err := NewDetector(store).Detect(context.Background(), "Example", 7, &mysql.MetricRecord{Downloads: 150}, rates)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)

	a := anomalies[0]
	assert.Equal(t, DirectionAboveMaximum, a.Direction)
	assert.Equal(t, SeverityLow, a.Severity)
	assert.Equal(t, 50.0, a.CurrentValue)
	assert.Equal(t, 40.0, a.ThresholdValue)
	assert.Equal(t, "https://hooks.example.com/alerts", a.WebhookURL)
	assert.Contains(t, a.Message, "[Example]")
	assert.Contains(t, a.Message, "+50.0%")
}

func TestDetect_AbsoluteRule(t *testing.T) {
	store := &fakeRuleStore{rules: []*mysql.AlertRule{{
		Metric:         mysql.MetricUninstalls,
		ComparisonType: mysql.ComparisonAbsolute,
		ThresholdMax:   f64(100),
	}}}

	anomalies, err := NewDetector(store).Detect(context.Background(), "Example", 1, &mysql.MetricRecord{Uninstalls: 350}, nil)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, SeverityCritical, anomalies[0].Severity, "deviation 2.5 is critical")
	assert.Equal(t, 350.0, anomalies[0].CurrentValue)
}

func TestDetect_BelowMinimum(t *testing.T) {
	store := &fakeRuleStore{rules: []*mysql.AlertRule{{
		Metric:         mysql.MetricDownloads,
		ComparisonType: mysql.ComparisonAbsolute,
		ThresholdMin:   f64(100),
	}}}

	anomalies, err := NewDetector(store).Detect(context.Background(), "Example", 1, &mysql.MetricRecord{Downloads: 60}, nil)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, DirectionBelowMinimum, anomalies[0].Direction)
	assert.Contains(t, anomalies[0].Message, "below the minimum")
}

func TestDetect_AboveMaximumWinsDoubleBreach(t *testing.T) {
	// min above max makes both bounds breach at once. The max check runs
	// second and wins, which keeps the outcome deterministic.
	store := &fakeRuleStore{rules: []*mysql.AlertRule{{
		Metric:         mysql.MetricDownloads,
		ComparisonType: mysql.ComparisonAbsolute,
		ThresholdMin:   f64(500),
		ThresholdMax:   f64(10),
	}}}

	anomalies, err := NewDetector(store).Detect(context.Background(), "Example", 1, &mysql.MetricRecord{Downloads: 100}, nil)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, DirectionAboveMaximum, anomalies[0].Direction)
	assert.Equal(t, 10.0, anomalies[0].ThresholdValue)
}

func TestDetect_NoBreach(t *testing.T) {
	store := &fakeRuleStore{rules: []*mysql.AlertRule{{
		Metric:         mysql.MetricDownloads,
		ComparisonType: mysql.ComparisonAbsolute,
		ThresholdMin:   f64(10),
		ThresholdMax:   f64(1000),
	}}}

	anomalies, err := NewDetector(store).Detect(context.Background(), "Example", 1, &mysql.MetricRecord{Downloads: 100}, nil)
	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestDetect_MissingGrowthRateDefaultsToZero(t *testing.T) {
	store := &fakeRuleStore{rules: []*mysql.AlertRule{{
		Metric:         mysql.MetricSessions,
		ComparisonType: mysql.ComparisonWeekOverWeek,
		ThresholdMin:   f64(-10),
	}}}

	// No wow entry at all: the value resolves to 0, which is above the
	// minimum, so nothing triggers.
	anomalies, err := NewDetector(store).Detect(context.Background(), "Example", 1, &mysql.MetricRecord{}, model.GrowthRates{})
	require.NoError(t, err)
	assert.Empty(t, anomalies)
}

func TestDetect_RuleStoreError(t *testing.T) {
	store := &fakeRuleStore{err: fmt.Errorf("connection refused")}
	_, err := NewDetector(store).Detect(context.Background(), "Example", 1, &mysql.MetricRecord{}, nil)
	assert.Error(t, err)
}
