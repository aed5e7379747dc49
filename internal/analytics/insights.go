package analytics

import (
	"context"
	"fmt"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"
)

const (
	maxInsights          = 5
	trendMinConfidence   = 70
	concentrationPercent = 80
	diversifiedPercent   = 30
)

// GenerateInsights runs a fixed battery of threshold checks against the
// day-over-day rates and the 7-day trend, producing at most maxInsights
// human-readable observations. An empty battery result falls back to a
// neutral message.
func (a *Analyzer) GenerateInsights(ctx context.Context, appID int64, current *mysql.MetricRecord, rates model.GrowthRates) []string {
	var insights []string

	downloadsDOD, _ := rates.Rate(mysql.MetricDownloads, mysql.ComparisonDayOverDay)
	switch {
	case downloadsDOD > 50:
		insights = append(insights, fmt.Sprintf("Downloads surged %.1f%% day over day", downloadsDOD))
	case downloadsDOD < -30:
		insights = append(insights, fmt.Sprintf("Downloads dropped %.1f%% day over day", downloadsDOD))
	case downloadsDOD > 10:
		insights = append(insights, fmt.Sprintf("Downloads grew a steady %.1f%% day over day", downloadsDOD))
	}

	sessionsDOD, _ := rates.Rate(mysql.MetricSessions, mysql.ComparisonDayOverDay)
	switch {
	case sessionsDOD > 30:
		insights = append(insights, fmt.Sprintf("User activity is up, sessions grew %.1f%%", sessionsDOD))
	case sessionsDOD < -20:
		insights = append(insights, fmt.Sprintf("User activity is down, sessions fell %.1f%%", sessionsDOD))
	}

	uninstallsDOD, _ := rates.Rate(mysql.MetricUninstalls, mysql.ComparisonDayOverDay)
	switch {
	case uninstallsDOD > 50:
		insights = append(insights, fmt.Sprintf("Uninstalls jumped %.1f%%, watch for churn", uninstallsDOD))
	case uninstallsDOD < -30:
		insights = append(insights, fmt.Sprintf("Uninstalls fell %.1f%%, retention is improving", uninstallsDOD))
	case uninstallsDOD > 20:
		insights = append(insights, fmt.Sprintf("Uninstalls grew %.1f%%", uninstallsDOD))
	}

	devicesDOD, _ := rates.Rate(mysql.MetricUniqueDevices, mysql.ComparisonDayOverDay)
	switch {
	case devicesDOD > 25:
		insights = append(insights, fmt.Sprintf("Active devices grew sharply, up %.1f%%", devicesDOD))
	case devicesDOD < -15:
		insights = append(insights, fmt.Sprintf("Active devices declined %.1f%%", devicesDOD))
	case devicesDOD > 10:
		insights = append(insights, fmt.Sprintf("Active devices grew a steady %.1f%%", devicesDOD))
	}

	insights = append(insights, a.trendInsights(ctx, appID)...)
	insights = append(insights, channelInsights(current, rates)...)

	if len(insights) == 0 {
		insights = append(insights, "Metrics are within their normal range")
	}
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

func (a *Analyzer) trendInsights(ctx context.Context, appID int64) []string {
	var insights []string

	downloads, err := a.AnalyzeTrend(ctx, appID, 7, mysql.MetricDownloads)
	if err != nil {
		logger.Warnf("download trend analysis failed for app %d: %v", appID, err)
	} else if downloads.Confidence > trendMinConfidence {
		switch downloads.Trend {
		case model.TrendIncreasing:
			insights = append(insights, "Downloads trended upward over the past week")
		case model.TrendDecreasing:
			insights = append(insights, "Downloads trended downward over the past week")
		}
	}

	uninstalls, err := a.AnalyzeTrend(ctx, appID, 7, mysql.MetricUninstalls)
	if err != nil {
		logger.Warnf("uninstall trend analysis failed for app %d: %v", appID, err)
	} else if uninstalls.Confidence > trendMinConfidence {
		switch uninstalls.Trend {
		case model.TrendIncreasing:
			insights = append(insights, "Uninstalls trended upward over the past week, worth a look")
		case model.TrendDecreasing:
			insights = append(insights, "Uninstalls trended downward over the past week, retention looks healthy")
		}
	}

	return insights
}

func channelInsights(current *mysql.MetricRecord, rates model.GrowthRates) []string {
	var insights []string

	searchDOD, _ := rates.Rate(mysql.MetricSearchDownloads, mysql.ComparisonDayOverDay)
	switch {
	case searchDOD > 30:
		insights = append(insights, fmt.Sprintf("App Store search downloads grew %.1f%%, search placement is paying off", searchDOD))
	case searchDOD < -30:
		insights = append(insights, fmt.Sprintf("App Store search downloads fell %.1f%%, store listing may need work", searchDOD))
	}

	webDOD, _ := rates.Rate(mysql.MetricWebReferrerDownloads, mysql.ComparisonDayOverDay)
	appDOD, _ := rates.Rate(mysql.MetricAppReferrerDownloads, mysql.ComparisonDayOverDay)
	if webDOD > 50 {
		insights = append(insights, fmt.Sprintf("Web referral downloads spiked %.1f%%, external promotion is working", webDOD))
	} else if appDOD > 50 {
		insights = append(insights, fmt.Sprintf("App referral downloads spiked %.1f%%, cross promotion is working", appDOD))
	}

	if current.Downloads > 0 {
		searchRatio := float64(current.DownloadsAppStoreSearch) / float64(current.Downloads) * 100
		externalRatio := float64(current.DownloadsWebReferrer+current.DownloadsAppReferrer) / float64(current.Downloads) * 100

		if searchRatio > concentrationPercent {
			insights = append(insights, fmt.Sprintf("%.1f%% of downloads come from App Store search, acquisition is highly concentrated", searchRatio))
		} else if externalRatio > diversifiedPercent {
			insights = append(insights, fmt.Sprintf("%.1f%% of downloads come from external referrals, acquisition is well diversified", externalRatio))
		}
	}

	return insights
}
