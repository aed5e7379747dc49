package model

import (
	"math"
	"time"
)

// ChannelBreakdown counts first-time downloads by acquisition source.
// The six channels are mutually exclusive.
type ChannelBreakdown struct {
	AppStoreSearch int64 `json:"app_store_search"`
	WebReferrer    int64 `json:"web_referrer"`
	AppReferrer    int64 `json:"app_referrer"`
	AppStoreBrowse int64 `json:"app_store_browse"`
	Institutional  int64 `json:"institutional"`
	Other          int64 `json:"other"`
}

// Total sums all six channels.
func (c ChannelBreakdown) Total() int64 {
	return c.AppStoreSearch + c.WebReferrer + c.AppReferrer +
		c.AppStoreBrowse + c.Institutional + c.Other
}

// DailyTotals holds one day's counts inside a vendor breakdown. Vendor rows
// may carry dates other than the requested target date, so fetches keep a
// per-date table instead of a single total.
type DailyTotals struct {
	Installs      int64 `json:"installs"`
	Updates       int64 `json:"updates"`
	Reinstalls    int64 `json:"reinstalls"`
	Uninstalls    int64 `json:"uninstalls"`
	Sessions      int64 `json:"sessions"`
	UniqueDevices int64 `json:"unique_devices"`
}

// VendorMetrics is the canonical per-day payload both vendor clients
// normalize into. Downloads counts first-time downloads only; updates and
// reinstalls are tracked separately and kept in the raw payload.
type VendorMetrics struct {
	BundleID      string    `json:"bundle_id"`
	TargetDate    time.Time `json:"target_date"`
	EffectiveDate time.Time `json:"effective_date"`

	Downloads     int64 `json:"downloads"`
	Updates       int64 `json:"updates"`
	Reinstalls    int64 `json:"reinstalls"`
	Uninstalls    int64 `json:"uninstalls"`
	Sessions      int64 `json:"sessions"`
	UniqueDevices int64 `json:"unique_devices"`

	// SessionsUnavailable marks sources that publish no session data at
	// all (the bulk source), as opposed to a genuine zero.
	SessionsUnavailable bool `json:"sessions_unavailable,omitempty"`

	Channels ChannelBreakdown `json:"channels"`

	// DailyBreakdown keyed by YYYY-MM-DD. Used to backfill historical
	// records when the source delivers batched multi-day data.
	DailyBreakdown map[string]*DailyTotals `json:"daily_breakdown,omitempty"`

	// FailedInstances counts per-instance fetch failures that were
	// tolerated without aborting the whole fetch.
	FailedInstances int `json:"failed_instances,omitempty"`

	Raw map[string]interface{} `json:"raw,omitempty"`
}

// DateKey formats a date the way DailyBreakdown keys it.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// SanitizeValue replaces NaN and infinite floats with nil so the payload
// survives JSON encoding.
func SanitizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case map[string]interface{}:
		for k, val := range x {
			x[k] = SanitizeValue(val)
		}
		return x
	case []interface{}:
		for i, val := range x {
			x[i] = SanitizeValue(val)
		}
		return x
	}
	return v
}

// SanitizeMap applies SanitizeValue to every entry of a raw payload map.
func SanitizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	for k, v := range m {
		m[k] = SanitizeValue(v)
	}
	return m
}
