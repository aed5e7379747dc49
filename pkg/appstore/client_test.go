package appstore

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storepulse/pkg/retry"
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient("issuer-1", "key-1", testPrivateKeyPEM(t),
		WithBaseURL(baseURL),
		WithRetryConfig(retry.Config{MaxAttempts: 1, BaseDelay: time.Millisecond, BackoffFactor: 1}),
	)
	require.NoError(t, err)
	return c
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_InvalidKey(t *testing.T) {
	_, err := NewClient("issuer", "key", "not a pem key")
	assert.Error(t, err)
}

func TestBearerToken_Reused(t *testing.T) {
	c := newTestClient(t, "http://localhost")

	first, err := c.bearerToken()
	require.NoError(t, err)
	second, err := c.bearerToken()
	require.NoError(t, err)
	assert.Equal(t, first, second, "token is cached until close to expiry")

	c.tokenExpires = time.Now().Add(30 * time.Second)
	third, err := c.bearerToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "token inside refresh slack is regenerated")
}

func TestFetchDailyMetrics(t *testing.T) {
	targetDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	installSegment := gzipTSV(t,
		"Date\tEvent\tDownload Type\tSource Type\tCounts",
		"2024-05-01\tInstall\tFirst-time download\tApp Store search\t60",
		"2024-05-01\tInstall\tFirst-time download\tWeb referrer\t40",
		"2024-05-01\tInstall\tManual update\tApp Store search\t25",
		"2024-05-01\tInstall\tAuto-update\tApp Store search\t5",
		"2024-04-30\tInstall\tFirst-time download\tApp Store search\t999",
	)
	detailedSegment := gzipTSV(t,
		"Date\tEvent\tDownload Type\tSource Type\tCounts",
		"2024-05-01\tDelete\t\t\t12",
		"2024-05-01\tInstall\tFirst-time download\tApp Store search\t500",
	)
	sessionSegment := gzipTSV(t,
		"Date\tSessions\tUnique Devices",
		"2024-05-01\t3200\t840",
	)

	segmentPayloads := map[string][]byte{
		"seg-install":  installSegment,
		"seg-detailed": detailedSegment,
		"seg-session":  sessionSegment,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/apps", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "com.example.app", r.URL.Query().Get("filter[bundleId]"))
		writeJSON(t, w, appsResponse{Data: []appResource{{
			ID:         "app-1",
			Attributes: appAttributes{Name: "Example", BundleID: "com.example.app"},
		}}})
	})
	mux.HandleFunc("/apps/app-1/analyticsReportRequests", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ONGOING", r.URL.Query().Get("filter[accessType]"))
		writeJSON(t, w, reportRequestsResponse{Data: []reportRequestResource{{
			ID:         "rr-1",
			Attributes: reportRequestAttributes{AccessType: "ONGOING"},
		}}})
	})
	mux.HandleFunc("/analyticsReportRequests/rr-1/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, reportsResponse{Data: []reportResource{
			{ID: "rep-install", Attributes: reportAttributes{Name: installReportName}},
			{ID: "rep-detailed", Attributes: reportAttributes{Name: installDetailedReportName}},
			{ID: "rep-session", Attributes: reportAttributes{Name: sessionReportName}},
			{ID: "rep-noise", Attributes: reportAttributes{Name: "App Crashes Expanded"}},
		}})
	})
	for _, ids := range [][2]string{
		{"rep-install", "inst-install"},
		{"rep-detailed", "inst-detailed"},
		{"rep-session", "inst-session"},
	} {
		reportID, instanceID := ids[0], ids[1]
		mux.HandleFunc("/analyticsReports/"+reportID+"/instances", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "DAILY", r.URL.Query().Get("filter[granularity]"))
			assert.Equal(t, "2024-05-02", r.URL.Query().Get("filter[processingDate]"),
				"instances are filtered by the day after the data date")
			writeJSON(t, w, instancesResponse{Data: []instanceResource{{
				ID:         instanceID,
				Attributes: instanceAttributes{Granularity: "DAILY", ProcessingDate: "2024-05-02"},
			}}})
		})
	}
	for _, ids := range [][2]string{
		{"inst-install", "seg-install"},
		{"inst-detailed", "seg-detailed"},
		{"inst-session", "seg-session"},
	} {
		instanceID, segmentID := ids[0], ids[1]
		mux.HandleFunc("/analyticsReportInstances/"+instanceID+"/segments", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, segmentsResponse{Data: []segmentResource{{
				ID: segmentID,
				Attributes: segmentAttributes{
					URL: fmt.Sprintf("http://%s/downloads/%s", r.Host, segmentID),
				},
			}}})
		})
	}
	mux.HandleFunc("/downloads/", func(w http.ResponseWriter, r *http.Request) {
		payload, ok := segmentPayloads[r.URL.Path[len("/downloads/"):]]
		require.True(t, ok, "unexpected segment download %s", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "pre-signed URLs are fetched without auth")
		w.Write(payload)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	metrics, err := c.FetchDailyMetrics(context.Background(), "com.example.app", targetDate)
	require.NoError(t, err)

	assert.Equal(t, "com.example.app", metrics.BundleID)
	assert.Equal(t, int64(100), metrics.Downloads, "only target date first-time downloads")
	assert.Equal(t, int64(25), metrics.Updates)
	assert.Equal(t, int64(5), metrics.Reinstalls)
	assert.Equal(t, int64(12), metrics.Uninstalls, "deletions come from the detailed report")
	assert.Equal(t, int64(3200), metrics.Sessions)
	assert.Equal(t, int64(840), metrics.UniqueDevices)
	assert.Equal(t, int64(60), metrics.Channels.AppStoreSearch)
	assert.Equal(t, int64(40), metrics.Channels.WebReferrer)
	assert.Equal(t, metrics.Downloads, metrics.Channels.Total())
	assert.Zero(t, metrics.FailedInstances)
	assert.Contains(t, metrics.DailyBreakdown, "2024-04-30")
	assert.Equal(t, "app-1", metrics.Raw["app_id"])
}

func TestFetchDailyMetrics_CreatesReportRequestWhenStopped(t *testing.T) {
	created := false

	mux := http.NewServeMux()
	mux.HandleFunc("/apps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, appsResponse{Data: []appResource{{ID: "app-1"}}})
	})
	mux.HandleFunc("/apps/app-1/analyticsReportRequests", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, reportRequestsResponse{Data: []reportRequestResource{{
			ID: "rr-stopped",
			Attributes: reportRequestAttributes{
				AccessType:             "ONGOING",
				StoppedDueToInactivity: true,
			},
		}}})
	})
	mux.HandleFunc("/analyticsReportRequests", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body createReportRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "analyticsReportRequests", body.Data.Type)
		assert.Equal(t, "ONGOING", body.Data.Attributes.AccessType)
		assert.Equal(t, "app-1", body.Data.Relationships.App.Data.ID)
		created = true
		writeJSON(t, w, createReportRequestResponse{Data: reportRequestResource{ID: "rr-new"}})
	})
	mux.HandleFunc("/analyticsReportRequests/rr-new/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, reportsResponse{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	metrics, err := c.FetchDailyMetrics(context.Background(), "com.example.app", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, created, "a stopped request must be replaced with a new one")
	assert.Zero(t, metrics.Downloads, "no reports yet means zero counts, not an error")
}

func TestFetchDailyMetrics_AppNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/apps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, appsResponse{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.FetchDailyMetrics(context.Background(), "com.missing.app", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no app found")
}

func TestDoRequest_DecodesAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/apps", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeJSON(t, w, errorResponse{Errors: []apiError{{
			Status: "403",
			Code:   "FORBIDDEN_ERROR",
			Detail: "key lacks access to this app",
		}}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	var resp appsResponse
	err := c.get(context.Background(), "apps", nil, &resp)
	require.Error(t, err)

	var httpErr *retry.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "key lacks access")
	assert.False(t, retry.Retryable(err))
}

func TestListReports_FollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyticsReportRequests/rr-1/reports", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, reportsResponse{
			Data:  []reportResource{{ID: "rep-1"}},
			Links: pageLinks{Next: fmt.Sprintf("http://%s/page2", r.Host)},
		})
	})
	mux.HandleFunc("/page2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, reportsResponse{Data: []reportResource{{ID: "rep-2"}}})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	c := newTestClient(t, server.URL)
	reports, err := c.listReports(context.Background(), "rr-1")
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, "rep-1", reports[0].ID)
	assert.Equal(t, "rep-2", reports[1].ID)
}
