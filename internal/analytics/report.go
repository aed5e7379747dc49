package analytics

import (
	"fmt"

	"storepulse/internal/model"
	"storepulse/pkg/store/mysql"
)

// MetricSnapshot is one metric's value with its period-over-period changes.
type MetricSnapshot struct {
	Value     int64   `json:"value"`
	DODChange float64 `json:"dod_change"`
	WOWChange float64 `json:"wow_change"`
}

// SourceBreakdown splits downloads by acquisition channel for the report.
type SourceBreakdown struct {
	AppStoreSearch MetricSnapshot `json:"app_store_search"`
	WebReferrer    MetricSnapshot `json:"web_referrer"`
	AppReferrer    MetricSnapshot `json:"app_referrer"`
	AppStoreBrowse int64          `json:"app_store_browse"`
	Institutional  int64          `json:"institutional"`
	Other          int64          `json:"other"`
}

// ReportPayload is the daily report handed to the notification layer.
type ReportPayload struct {
	AppName         string          `json:"app_name"`
	Date            string          `json:"date"`
	Downloads       MetricSnapshot  `json:"downloads"`
	Sessions        MetricSnapshot  `json:"sessions"`
	Uninstalls      MetricSnapshot  `json:"uninstalls"`
	UniqueDevices   MetricSnapshot  `json:"unique_devices"`
	SourceBreakdown SourceBreakdown `json:"source_breakdown"`
	Insights        []string        `json:"insights"`
	Summary         string          `json:"summary"`
}

// BuildDailyReport assembles the report payload for one app and day.
func BuildDailyReport(appName string, current *mysql.MetricRecord, rates model.GrowthRates, insights []string) *ReportPayload {
	snapshot := func(value int64, metric string) MetricSnapshot {
		dod, _ := rates.Rate(metric, mysql.ComparisonDayOverDay)
		wow, _ := rates.Rate(metric, mysql.ComparisonWeekOverWeek)
		return MetricSnapshot{Value: value, DODChange: dod, WOWChange: wow}
	}

	return &ReportPayload{
		AppName:       appName,
		Date:          model.DateKey(current.Date),
		Downloads:     snapshot(current.Downloads, mysql.MetricDownloads),
		Sessions:      snapshot(current.Sessions, mysql.MetricSessions),
		Uninstalls:    snapshot(current.Uninstalls, mysql.MetricUninstalls),
		UniqueDevices: snapshot(current.UniqueDevices, mysql.MetricUniqueDevices),
		SourceBreakdown: SourceBreakdown{
			AppStoreSearch: snapshot(current.DownloadsAppStoreSearch, mysql.MetricSearchDownloads),
			WebReferrer:    snapshot(current.DownloadsWebReferrer, mysql.MetricWebReferrerDownloads),
			AppReferrer:    snapshot(current.DownloadsAppReferrer, mysql.MetricAppReferrerDownloads),
			AppStoreBrowse: current.DownloadsAppStoreBrowse,
			Institutional:  current.DownloadsInstitutional,
			Other:          current.DownloadsOther,
		},
		Insights: insights,
		Summary:  buildSummary(current, rates),
	}
}

// buildSummary condenses the day into a one-line verdict.
func buildSummary(current *mysql.MetricRecord, rates model.GrowthRates) string {
	downloadsDOD, _ := rates.Rate(mysql.MetricDownloads, mysql.ComparisonDayOverDay)
	sessionsDOD, _ := rates.Rate(mysql.MetricSessions, mysql.ComparisonDayOverDay)
	uninstallsDOD, _ := rates.Rate(mysql.MetricUninstalls, mysql.ComparisonDayOverDay)

	var performance string
	switch {
	case downloadsDOD > 10 && sessionsDOD > 10 && uninstallsDOD <= 5:
		performance = "excellent"
	case downloadsDOD > 0 && sessionsDOD > 0 && uninstallsDOD <= 10:
		performance = "growing steadily"
	case downloadsDOD < -10 || sessionsDOD < -10 || uninstallsDOD > 20:
		performance = "needs attention"
	default:
		performance = "stable"
	}

	return fmt.Sprintf("Performance %s: downloads %d (%+.1f%%), sessions %d (%+.1f%%), uninstalls %d (%+.1f%%)",
		performance, current.Downloads, downloadsDOD, current.Sessions, sessionsDOD, current.Uninstalls, uninstallsDOD)
}
