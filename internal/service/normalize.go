package service

import (
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/store/mysql"
)

// NormalizeRecord maps a vendor payload onto the canonical metric record
// for the target date. Bulk sources may deliver an earlier effective date;
// the record is still keyed by the target date so growth comparisons line
// up, with the effective date preserved in the raw payload.
func NormalizeRecord(appID int64, targetDate time.Time, metrics *model.VendorMetrics) *mysql.MetricRecord {
	raw := map[string]interface{}{
		"effective_date":       model.DateKey(metrics.EffectiveDate),
		"updates":              metrics.Updates,
		"reinstalls":           metrics.Reinstalls,
		"sessions_unavailable": metrics.SessionsUnavailable,
	}
	if metrics.FailedInstances > 0 {
		raw["failed_instances"] = metrics.FailedInstances
	}
	for k, v := range model.SanitizeMap(metrics.Raw) {
		raw[k] = v
	}

	return &mysql.MetricRecord{
		AppID:         appID,
		Date:          time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, time.UTC),
		Downloads:     clampCount(metrics.Downloads),
		Sessions:      clampCount(metrics.Sessions),
		Uninstalls:    clampCount(metrics.Uninstalls),
		UniqueDevices: clampCount(metrics.UniqueDevices),

		DownloadsAppStoreSearch: clampCount(metrics.Channels.AppStoreSearch),
		DownloadsWebReferrer:    clampCount(metrics.Channels.WebReferrer),
		DownloadsAppReferrer:    clampCount(metrics.Channels.AppReferrer),
		DownloadsAppStoreBrowse: clampCount(metrics.Channels.AppStoreBrowse),
		DownloadsInstitutional:  clampCount(metrics.Channels.Institutional),
		DownloadsOther:          clampCount(metrics.Channels.Other),

		RawData: raw,
	}
}

// clampCount enforces the nonnegative-count invariant against defective
// vendor rows.
func clampCount(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
