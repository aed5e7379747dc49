package appstore

import (
	"sort"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
)

// installAccumulator collects per-date counters and the channel breakdown
// across every segment of an installation report.
type installAccumulator struct {
	daily    map[string]*model.DailyTotals
	channels model.ChannelBreakdown
	// targetKey limits channel attribution to a single date. Empty means
	// attribute every row.
	targetKey string
}

func newInstallAccumulator(targetKey string) *installAccumulator {
	return &installAccumulator{
		daily:     make(map[string]*model.DailyTotals),
		targetKey: targetKey,
	}
}

func (a *installAccumulator) day(date string) *model.DailyTotals {
	d, ok := a.daily[date]
	if !ok {
		d = &model.DailyTotals{}
		a.daily[date] = d
	}
	return d
}

// addRow classifies one installation report row into the per-date counters.
func (a *installAccumulator) addRow(row installRow) {
	day := a.day(row.Date)

	if row.Event == "Delete" {
		day.Uninstalls += row.Counts
		return
	}

	// Event is "Install" or unset; the download type decides the bucket.
	switch row.DownloadType {
	case "First-time download":
		day.Installs += row.Counts
		a.attributeChannel(row)
	case "Manual update":
		day.Updates += row.Counts
	case "Auto-download", "Auto-update", "Restore", "Redownload":
		day.Reinstalls += row.Counts
	case "":
		// Rows with no download type carry no installs to count.
	default:
		logger.Warnf("unrecognized download type %q, counting as reinstall", row.DownloadType)
		day.Reinstalls += row.Counts
	}
}

// addDeletions merges only the uninstall counts from the detailed report.
// Its install rows overlap the standard report and would double count.
func (a *installAccumulator) addDeletions(row installRow) {
	if row.Event != "Delete" {
		return
	}
	a.day(row.Date).Uninstalls += row.Counts
}

func (a *installAccumulator) attributeChannel(row installRow) {
	if a.targetKey != "" && row.Date != a.targetKey {
		return
	}
	switch row.SourceType {
	case "":
		// Rows without a source type stay unattributed so the channel
		// breakdown only reflects what the report actually labeled.
	case "App Store search":
		a.channels.AppStoreSearch += row.Counts
	case "Web referrer":
		a.channels.WebReferrer += row.Counts
	case "App referrer":
		a.channels.AppReferrer += row.Counts
	case "App Store browse":
		a.channels.AppStoreBrowse += row.Counts
	case "Institutional purchase":
		a.channels.Institutional += row.Counts
	case "Unavailable", "Other":
		a.channels.Other += row.Counts
	default:
		logger.Debugf("unrecognized source type %q, counting as other", row.SourceType)
		a.channels.Other += row.Counts
	}
}

// addSessions merges a sessions report row into the per-date counters.
func (a *installAccumulator) addSessions(row sessionRow) {
	day := a.day(row.Date)
	day.Sessions += row.Sessions
	day.UniqueDevices += row.UniqueDevices
}

func (a *installAccumulator) dates() []string {
	out := make([]string, 0, len(a.daily))
	for d := range a.daily {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// totalsFor resolves the headline numbers for the target date. When the
// report contains a row for that exact date it wins; otherwise the caller
// gets zeros and a warning with the dates seen. An empty targetKey sums
// every date in the report.
func (a *installAccumulator) totalsFor(targetKey string) model.DailyTotals {
	if targetKey == "" {
		var sum model.DailyTotals
		for _, day := range a.daily {
			sum.Installs += day.Installs
			sum.Updates += day.Updates
			sum.Reinstalls += day.Reinstalls
			sum.Uninstalls += day.Uninstalls
			sum.Sessions += day.Sessions
			sum.UniqueDevices += day.UniqueDevices
		}
		return sum
	}
	if day, ok := a.daily[targetKey]; ok {
		return *day
	}
	logger.Warnf("no report rows for %s, available dates: %v", targetKey, a.dates())
	return model.DailyTotals{}
}

// checkChannelConsistency warns when channel attribution and the install
// total disagree, which points at rows the source map failed to cover.
func (a *installAccumulator) checkChannelConsistency(installs int64) {
	total := a.channels.Total()
	if total != installs {
		logger.Warnf("channel total %d does not match installs %d", total, installs)
	}
}
