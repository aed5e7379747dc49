package analytics

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/internal/model"
	"storepulse/pkg/store/mysql"
)

// fakeRecordStore serves records keyed by date.
type fakeRecordStore struct {
	byDate  map[string]*mysql.MetricRecord
	ranged  []*mysql.MetricRecord
	getErr  error
	listErr error
}

func (s *fakeRecordStore) Get(_ context.Context, _ int64, date time.Time) (*mysql.MetricRecord, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.byDate[model.DateKey(date)], nil
}

func (s *fakeRecordStore) ListRange(_ context.Context, _ int64, _, _ time.Time) ([]*mysql.MetricRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.ranged, nil
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		old, new float64
		want     float64
	}{
		{"zero baseline with growth", 0, 50, 100.0},
		{"zero baseline without growth", 0, 0, 0.0},
		{"growth", 100, 150, 50.0},
		{"decline", 100, 70, -30.0},
		{"to zero", 100, 0, -100.0},
		{"rounded to 2 decimals", 3, 4, 33.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentChange(tt.old, tt.new))
		})
	}
}

func TestProperty_PercentChange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("zero baseline signals emergence", prop.ForAll(
		func(newValue int64) bool {
			want := 0.0
			if newValue > 0 {
				want = 100.0
			}
			return PercentChange(0, float64(newValue)) == want
		},
		gen.Int64Range(0, 1_000_000),
	))

	properties.Property("nonzero baseline matches rounded formula", prop.ForAll(
		func(oldValue, newValue int64) bool {
			got := PercentChange(float64(oldValue), float64(newValue))
			raw := (float64(newValue) - float64(oldValue)) / float64(oldValue) * 100
			return math.Abs(got-raw) <= 0.005+1e-9
		},
		gen.Int64Range(1, 1_000_000),
		gen.Int64Range(0, 1_000_000),
	))

	properties.Property("equal values change by zero", prop.ForAll(
		func(v int64) bool {
			return PercentChange(float64(v), float64(v)) == 0.0
		},
		gen.Int64Range(1, 1_000_000),
	))

	properties.TestingRun(t)
}

func TestComputeGrowth(t *testing.T) {
	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	store := &fakeRecordStore{byDate: map[string]*mysql.MetricRecord{
		"2024-05-01": {Downloads: 100, Sessions: 200, Uninstalls: 10, DownloadsAppStoreSearch: 50},
	}}
	current := &mysql.MetricRecord{Downloads: 150, Sessions: 100, Uninstalls: 10, DownloadsAppStoreSearch: 75}

	rates := NewAnalyzer(store).ComputeGrowth(context.Background(), current, 1, date)

	dod, ok := rates.Rate(mysql.MetricDownloads, mysql.ComparisonDayOverDay)
	require.True(t, ok)
	assert.Equal(t, 50.0, dod)

	sessionsDOD, _ := rates.Rate(mysql.MetricSessions, mysql.ComparisonDayOverDay)
	assert.Equal(t, -50.0, sessionsDOD)

	uninstallsDOD, _ := rates.Rate(mysql.MetricUninstalls, mysql.ComparisonDayOverDay)
	assert.Equal(t, 0.0, uninstallsDOD)

	searchDOD, _ := rates.Rate(mysql.MetricSearchDownloads, mysql.ComparisonDayOverDay)
	assert.Equal(t, 50.0, searchDOD)

	// No record exists 7 days back, so week-over-week stays zero.
	wow, ok := rates.Rate(mysql.MetricDownloads, mysql.ComparisonWeekOverWeek)
	require.True(t, ok)
	assert.Equal(t, 0.0, wow)
}

func TestComputeGrowth_StoreErrorIsNotFatal(t *testing.T) {
	store := &fakeRecordStore{getErr: fmt.Errorf("connection refused")}
	current := &mysql.MetricRecord{Downloads: 150}

	rates := NewAnalyzer(store).ComputeGrowth(context.Background(), current, 1, time.Now())
	dod, ok := rates.Rate(mysql.MetricDownloads, mysql.ComparisonDayOverDay)
	require.True(t, ok)
	assert.Equal(t, 0.0, dod)
}

func trendRecords(values ...int64) []*mysql.MetricRecord {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records := make([]*mysql.MetricRecord, 0, len(values))
	for i, v := range values {
		records = append(records, &mysql.MetricRecord{
			Date:      base.AddDate(0, 0, i),
			Downloads: v,
		})
	}
	return records
}

func TestAnalyzeTrend(t *testing.T) {
	tests := []struct {
		name       string
		values     []int64
		wantTrend  string
		minConfide float64
	}{
		{"increasing", []int64{10, 20, 30, 40, 50, 60, 70}, model.TrendIncreasing, 90},
		{"decreasing", []int64{70, 60, 50, 40, 30, 20, 10}, model.TrendDecreasing, 90},
		{"flat is stable", []int64{50, 50, 50, 50, 50}, model.TrendStable, 0},
		{"noise is stable", []int64{50, 48, 52, 47, 53, 49, 51}, model.TrendStable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRecordStore{ranged: trendRecords(tt.values...)}
			result, err := NewAnalyzer(store).AnalyzeTrend(context.Background(), 1, 7, mysql.MetricDownloads)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrend, result.Trend)
			assert.GreaterOrEqual(t, result.Confidence, tt.minConfide)
			assert.LessOrEqual(t, result.Confidence, 100.0)
			assert.Equal(t, len(tt.values), result.DataPoints)
		})
	}
}

func TestAnalyzeTrend_InsufficientData(t *testing.T) {
	store := &fakeRecordStore{ranged: trendRecords(10, 20)}
	result, err := NewAnalyzer(store).AnalyzeTrend(context.Background(), 1, 30, mysql.MetricDownloads)
	require.NoError(t, err)
	assert.Equal(t, model.TrendInsufficientData, result.Trend)
	assert.Zero(t, result.Confidence)
}

func TestAnalyzeTrend_UnknownMetric(t *testing.T) {
	store := &fakeRecordStore{ranged: trendRecords(10, 20, 30)}
	_, err := NewAnalyzer(store).AnalyzeTrend(context.Background(), 1, 30, "revenue_per_user")
	assert.Error(t, err)
}
