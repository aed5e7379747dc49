package googleplay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"storepulse/pkg/retry"
)

// fakeStore serves report objects from memory.
type fakeStore struct {
	objects map[string]objectInfo
	data    map[string][]byte
	readErr error
	reads   int
}

func (s *fakeStore) List(_ context.Context, prefix string) ([]objectInfo, error) {
	var out []objectInfo
	for name, info := range s.objects {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			out = append(out, info)
		}
	}
	return out, nil
}

func (s *fakeStore) Read(_ context.Context, name string) ([]byte, error) {
	s.reads++
	if s.readErr != nil {
		return nil, s.readErr
	}
	data, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("object %s not found", name)
	}
	return data, nil
}

func newFakeClient(store *fakeStore) *Client {
	return &Client{
		store:    store,
		retryCfg: retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, BackoffFactor: 1},
	}
}

func utf16leBOM(t *testing.T, s string) []byte {
	t.Helper()
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, _, err := transform.Bytes(enc, []byte(s))
	require.NoError(t, err)
	return data
}

const overviewCSV = "Date,Package Name,Daily User Installs,Daily User Uninstalls\n" +
	"2024-05-01,com.example.app,150,20\n" +
	"2024-05-02,com.example.app,\"1,230\",25\n" +
	"2024-05-03,com.example.app,90,\n"

func TestDecodeOverview(t *testing.T) {
	plain := "Date,Daily User Installs\n2024-05-01,10\n"

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8", []byte(plain)},
		{"utf-8 with BOM", append([]byte{0xEF, 0xBB, 0xBF}, plain...)},
		{"utf-16le with BOM", utf16leBOM(t, plain)},
		{"utf-16le without BOM", utf16leBOM(t, plain)[2:]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, plain, decodeOverview(tt.data))
		})
	}
}

func TestDecodeOverview_Latin1(t *testing.T) {
	// 0xE9 is not valid UTF-8 on its own; latin1 maps it to é.
	data := []byte{'c', 'a', 'f', 0xE9, '\n'}
	assert.Equal(t, "café\n", decodeOverview(data))
}

func TestParseOverviewCSV(t *testing.T) {
	daily, err := parseOverviewCSV(utf16leBOM(t, overviewCSV))
	require.NoError(t, err)
	require.Len(t, daily, 3)

	assert.Equal(t, int64(150), daily["2024-05-01"].Installs)
	assert.Equal(t, int64(20), daily["2024-05-01"].Uninstalls)
	assert.Equal(t, int64(1230), daily["2024-05-02"].Installs, "thousands separators are stripped")
	assert.Equal(t, int64(0), daily["2024-05-03"].Uninstalls, "empty cells parse as zero")
}

func TestParseOverviewCSV_MissingColumns(t *testing.T) {
	_, err := parseOverviewCSV([]byte("Package Name,Total\ncom.example.app,5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing Date")
}

func TestPickOverviewObject(t *testing.T) {
	older := time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	t.Run("canonical suffix wins and newest is picked", func(t *testing.T) {
		picked := pickOverviewObject([]objectInfo{
			{Name: "stats/installs/installs_com.example.app_202405_overview.csv", Updated: older},
			{Name: "stats/installs/installs_com.example.app_202405_overview.csv.1", Updated: newer},
			{Name: "stats/installs/installs_com.example.app_202405_country.csv", Updated: newer},
		})
		require.NotNil(t, picked)
		assert.Equal(t, "stats/installs/installs_com.example.app_202405_overview.csv", picked.Name)
	})

	t.Run("fallback accepts any csv containing overview", func(t *testing.T) {
		picked := pickOverviewObject([]objectInfo{
			{Name: "stats/installs/installs_com.example.app_202405_overview_v2.csv", Updated: older},
			{Name: "stats/installs/installs_com.example.app_202405_country.csv", Updated: newer},
		})
		require.NotNil(t, picked)
		assert.Equal(t, "stats/installs/installs_com.example.app_202405_overview_v2.csv", picked.Name)
	})

	t.Run("no candidates", func(t *testing.T) {
		assert.Nil(t, pickOverviewObject([]objectInfo{
			{Name: "stats/installs/installs_com.example.app_202405_country.csv"},
		}))
	})
}

func TestFetchDailyMetrics_ExactDate(t *testing.T) {
	name := "stats/installs/installs_com.example.app_202405_overview.csv"
	client := newFakeClient(&fakeStore{
		objects: map[string]objectInfo{name: {Name: name, Updated: time.Now()}},
		data:    map[string][]byte{name: utf16leBOM(t, overviewCSV)},
	})

	metrics, err := client.FetchDailyMetrics(context.Background(), "com.example.app", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, int64(1230), metrics.Downloads)
	assert.Equal(t, int64(25), metrics.Uninstalls)
	assert.Equal(t, "2024-05-02", metrics.EffectiveDate.Format("2006-01-02"))
	assert.True(t, metrics.SessionsUnavailable)
	assert.Zero(t, metrics.Sessions)
	assert.Equal(t, name, metrics.Raw["report_object"])
}

func TestFetchDailyMetrics_FallsBackToClosestEarlierDate(t *testing.T) {
	name := "stats/installs/installs_com.example.app_202405_overview.csv"
	client := newFakeClient(&fakeStore{
		objects: map[string]objectInfo{name: {Name: name, Updated: time.Now()}},
		data:    map[string][]byte{name: utf16leBOM(t, overviewCSV)},
	})

	metrics, err := client.FetchDailyMetrics(context.Background(), "com.example.app", time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "2024-05-03", metrics.EffectiveDate.Format("2006-01-02"), "closest earlier date is used")
	assert.Equal(t, "2024-05-04", metrics.TargetDate.Format("2006-01-02"))
	assert.Equal(t, int64(90), metrics.Downloads)
}

func TestFetchDailyMetrics_NoEarlierDateReturnsZeros(t *testing.T) {
	name := "stats/installs/installs_com.example.app_202404_overview.csv"
	client := newFakeClient(&fakeStore{
		objects: map[string]objectInfo{name: {Name: name, Updated: time.Now()}},
		data: map[string][]byte{name: []byte(
			"Date,Daily User Installs,Daily User Uninstalls\n2024-04-30,10,1\n")},
	})

	// The only row in the April file is after the requested date.
	metrics, err := client.FetchDailyMetrics(context.Background(), "com.example.app", time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, metrics.Downloads)
	assert.Equal(t, "2024-04-29", metrics.EffectiveDate.Format("2006-01-02"))
}

func TestFetchDailyMetrics_DownloadNotRetried(t *testing.T) {
	name := "stats/installs/installs_com.example.app_202405_overview.csv"
	store := &fakeStore{
		objects: map[string]objectInfo{name: {Name: name, Updated: time.Now()}},
		readErr: fmt.Errorf("503 backend error"),
	}
	client := newFakeClient(store)
	client.retryCfg = retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, BackoffFactor: 1}

	_, err := client.FetchDailyMetrics(context.Background(), "com.example.app", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	// The storage SDK retries internally, so the download is attempted once
	// even when the listing config allows more attempts.
	assert.Equal(t, 1, store.reads)
}

func TestFetchDailyMetrics_NoOverviewReport(t *testing.T) {
	client := newFakeClient(&fakeStore{})

	_, err := client.FetchDailyMetrics(context.Background(), "com.example.app", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no overview report found")
}
