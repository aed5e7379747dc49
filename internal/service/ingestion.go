package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storepulse/internal/analytics"
	"storepulse/internal/anomaly"
	"storepulse/internal/model"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"
)

// VendorClient fetches one day of normalized metrics for a store
// identifier (bundle ID or package name).
type VendorClient interface {
	FetchDailyMetrics(ctx context.Context, bundleID string, targetDate time.Time) (*model.VendorMetrics, error)
}

// AppStore lists the apps a run covers.
type AppStore interface {
	Get(ctx context.Context, id int64) (*mysql.App, error)
	ListActive(ctx context.Context) ([]*mysql.App, error)
}

// MetricStore persists and reads per-day metric records.
type MetricStore interface {
	Get(ctx context.Context, appID int64, date time.Time) (*mysql.MetricRecord, error)
	Upsert(ctx context.Context, record *mysql.MetricRecord) error
}

// AlertLogStore records anomalies and their delivery state.
type AlertLogStore interface {
	Create(ctx context.Context, entry *mysql.AlertLog) error
	MarkSent(ctx context.Context, id int64) error
}

// ReportConfigStore resolves an app's daily report destination.
type ReportConfigStore interface {
	GetActiveByApp(ctx context.Context, appID int64) (*mysql.ReportConfig, error)
}

// Notifier delivers reports and alerts.
type Notifier interface {
	SendDailyReport(ctx context.Context, target string, report *analytics.ReportPayload) error
	SendAlert(ctx context.Context, target string, a *anomaly.Anomaly) error
	SendSystemNotification(ctx context.Context, target, title, body, level string) error
}

// IngestionService runs the per-app pipeline: fetch, normalize, persist,
// analyze, detect, notify. One service instance serves every run.
type IngestionService struct {
	apps          AppStore
	records       MetricStore
	alertLogs     AlertLogStore
	reportConfigs ReportConfigStore
	clients       map[string]VendorClient

	analyzer *analytics.Analyzer
	detector *anomaly.Detector
	notifier Notifier

	fetchDelayDays int
}

// NewIngestionService wires the pipeline. clients maps platform names to
// their vendor client; a platform without a client fails per app, not per
// run.
func NewIngestionService(
	apps AppStore,
	records MetricStore,
	alertLogs AlertLogStore,
	reportConfigs ReportConfigStore,
	clients map[string]VendorClient,
	analyzer *analytics.Analyzer,
	detector *anomaly.Detector,
	notifier Notifier,
	fetchDelayDays int,
) *IngestionService {
	return &IngestionService{
		apps:           apps,
		records:        records,
		alertLogs:      alertLogs,
		reportConfigs:  reportConfigs,
		clients:        clients,
		analyzer:       analyzer,
		detector:       detector,
		notifier:       notifier,
		fetchDelayDays: fetchDelayDays,
	}
}

// DefaultTargetDate is the day a run processes when no date is given.
// Vendors finalize a day's numbers with a delay, so runs trail by the
// configured number of days.
func (s *IngestionService) DefaultTargetDate(now time.Time) time.Time {
	d := now.AddDate(0, 0, -s.fetchDelayDays)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// RunOptions parameterizes a single pipeline run.
type RunOptions struct {
	// AppID restricts the run to one app; nil covers all active apps.
	AppID *int64
	// TargetDate is the day to collect.
	TargetDate time.Time
	// SkipNotifications suppresses alert and report delivery while still
	// persisting records and alert logs.
	SkipNotifications bool
	// DryRun fetches and analyzes without persisting or notifying. Detected
	// anomalies are still counted in the summary.
	DryRun bool
}

// Run executes the pipeline for one app (appID set) or every active app.
// Per-app failures are isolated: they are counted and listed in the
// summary without stopping sibling apps. The returned summary is always
// complete, even on partial failure.
func (s *IngestionService) Run(ctx context.Context, appID *int64, targetDate time.Time) *model.RunSummary {
	return s.RunWithOptions(ctx, RunOptions{AppID: appID, TargetDate: targetDate})
}

// RunWithOptions is Run with notification suppression and dry-run
// available to schedules that collect silently and to manual previews.
func (s *IngestionService) RunWithOptions(ctx context.Context, opts RunOptions) *model.RunSummary {
	targetDate := opts.TargetDate
	summary := &model.RunSummary{
		RunID:      uuid.NewString(),
		TargetDate: model.DateKey(targetDate),
	}

	apps, err := s.resolveApps(ctx, opts.AppID)
	if err != nil {
		summary.ErrorCount = 1
		summary.Errors = append(summary.Errors, err.Error())
		logger.Errorf("failed to resolve apps for run: %v", err)
		return summary
	}
	summary.TotalApps = len(apps)
	if len(apps) == 0 {
		logger.Warn("no active apps to process")
		return summary
	}
	logger.Infof("run %s: processing %d apps for %s", summary.RunID, len(apps), summary.TargetDate)

	for _, app := range apps {
		if ctx.Err() != nil {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", app.Name, ctx.Err()))
			continue
		}

		if err := s.processApp(ctx, app, opts, summary); err != nil {
			summary.ErrorCount++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", app.Name, err))
			logger.Errorf("failed to process app %s: %v", app.Name, err)
			if !opts.DryRun && !opts.SkipNotifications {
				s.notifySystem(ctx, fmt.Sprintf("Collection failed for %s", app.Name),
					fmt.Sprintf("Processing %s for %s failed: %v", app.Name, summary.TargetDate, err),
					"error")
			}
			continue
		}
		summary.SuccessCount++
	}

	if summary.FullyFailed() {
		logger.Errorf("run for %s fully failed: %v", summary.TargetDate, summary.Errors)
		if !opts.DryRun && !opts.SkipNotifications {
			s.notifySystem(ctx, "Collection run failed",
				fmt.Sprintf("All %d apps failed for %s. First error: %s", summary.TotalApps, summary.TargetDate, summary.Errors[0]),
				"error")
		}
	}

	logger.Infof("run %s finished: %d/%d apps succeeded, %d alerts, %d notifications",
		summary.RunID, summary.SuccessCount, summary.TotalApps, summary.AlertsGenerated, summary.NotificationsSent)
	return summary
}

func (s *IngestionService) resolveApps(ctx context.Context, appID *int64) ([]*mysql.App, error) {
	if appID == nil {
		return s.apps.ListActive(ctx)
	}
	app, err := s.apps.Get(ctx, *appID)
	if err != nil {
		return nil, fmt.Errorf("failed to load app %d: %w", *appID, err)
	}
	if app == nil {
		return nil, fmt.Errorf("app %d not found", *appID)
	}
	return []*mysql.App{app}, nil
}

// processApp runs the ordered pipeline steps for one app. Later steps
// consume earlier outputs, so any failure aborts this app only.
func (s *IngestionService) processApp(ctx context.Context, app *mysql.App, opts RunOptions, summary *model.RunSummary) error {
	targetDate := opts.TargetDate
	client, ok := s.clients[app.Platform]
	if !ok {
		return fmt.Errorf("no vendor client configured for platform %s", app.Platform)
	}

	metrics, err := client.FetchDailyMetrics(ctx, app.BundleID, targetDate)
	if err != nil {
		return fmt.Errorf("vendor fetch failed: %w", err)
	}
	logger.Infof("app %s: downloads=%d sessions=%d uninstalls=%d", app.Name, metrics.Downloads, metrics.Sessions, metrics.Uninstalls)

	record := NormalizeRecord(app.ID, targetDate, metrics)
	if opts.DryRun {
		logger.Infof("dry run: skipping persistence for %s", app.Name)
	} else {
		if err := s.records.Upsert(ctx, record); err != nil {
			return fmt.Errorf("failed to persist metric record: %w", err)
		}
		s.backfill(ctx, app, targetDate, metrics)
	}

	rates := s.analyzer.ComputeGrowth(ctx, record, app.ID, targetDate)
	insights := s.analyzer.GenerateInsights(ctx, app.ID, record, rates)

	anomalies, err := s.detector.Detect(ctx, app.Name, app.ID, record, rates)
	if err != nil {
		return fmt.Errorf("anomaly detection failed: %w", err)
	}
	s.handleAnomalies(ctx, anomalies, opts, summary)

	if opts.DryRun || opts.SkipNotifications {
		logger.Debugf("notifications suppressed for %s", app.Name)
		return nil
	}
	s.sendDailyReport(ctx, app, record, rates, insights, summary)
	return nil
}

// backfill fills the other dates the vendor delivered alongside the
// target day (bulk sources batch a whole month), up to the max date in the
// file. Existing records are never overwritten; the target day's write
// stays last-write-wins.
func (s *IngestionService) backfill(ctx context.Context, app *mysql.App, targetDate time.Time, metrics *model.VendorMetrics) {
	targetKey := model.DateKey(targetDate)
	for dateKey, totals := range metrics.DailyBreakdown {
		if dateKey == targetKey {
			continue
		}
		date, err := time.Parse("2006-01-02", dateKey)
		if err != nil {
			continue
		}

		existing, err := s.records.Get(ctx, app.ID, date)
		if err != nil {
			logger.Warnf("backfill lookup failed for %s on %s: %v", app.Name, dateKey, err)
			continue
		}
		if existing != nil {
			continue
		}

		record := &mysql.MetricRecord{
			AppID:         app.ID,
			Date:          date,
			Downloads:     totals.Installs,
			Sessions:      totals.Sessions,
			Uninstalls:    totals.Uninstalls,
			UniqueDevices: totals.UniqueDevices,
		}
		if err := s.records.Upsert(ctx, record); err != nil {
			logger.Warnf("backfill upsert failed for %s on %s: %v", app.Name, dateKey, err)
			continue
		}
		logger.Debugf("backfilled %s record for %s", dateKey, app.Name)
	}
}

func (s *IngestionService) handleAnomalies(ctx context.Context, anomalies []anomaly.Anomaly, opts RunOptions, summary *model.RunSummary) {
	for i := range anomalies {
		a := &anomalies[i]
		if opts.DryRun {
			logger.Infof("dry run: would alert on %s/%s (%s)", a.AppName, a.Metric, a.Severity)
			summary.AlertsGenerated++
			continue
		}

		entry := &mysql.AlertLog{
			AppID:          &a.AppID,
			AlertType:      mysql.AlertTypeAnomaly,
			Metric:         a.Metric,
			Severity:       a.Severity,
			Message:        a.Message,
			CurrentValue:   &a.CurrentValue,
			ThresholdValue: &a.ThresholdValue,
		}
		if err := s.alertLogs.Create(ctx, entry); err != nil {
			logger.Errorf("failed to record alert log: %v", err)
			continue
		}
		summary.AlertsGenerated++

		if opts.SkipNotifications || a.WebhookURL == "" {
			continue
		}
		if err := s.notifier.SendAlert(ctx, a.WebhookURL, a); err != nil {
			logger.Errorf("failed to send alert for %s/%s: %v", a.AppName, a.Metric, err)
			continue
		}
		summary.NotificationsSent++
		if err := s.alertLogs.MarkSent(ctx, entry.ID); err != nil {
			logger.Warnf("failed to mark alert %d as sent: %v", entry.ID, err)
		}
	}
}

func (s *IngestionService) sendDailyReport(ctx context.Context, app *mysql.App, record *mysql.MetricRecord, rates model.GrowthRates, insights []string, summary *model.RunSummary) {
	cfg, err := s.reportConfigs.GetActiveByApp(ctx, app.ID)
	if err != nil {
		logger.Warnf("failed to load report config for %s: %v", app.Name, err)
		return
	}
	if cfg == nil {
		logger.Debugf("no daily report configured for %s, skipping", app.Name)
		return
	}

	report := analytics.BuildDailyReport(app.Name, record, rates, insights)
	if err := s.notifier.SendDailyReport(ctx, cfg.WebhookURL, report); err != nil {
		logger.Errorf("failed to send daily report for %s: %v", app.Name, err)
		return
	}
	summary.NotificationsSent++
}

func (s *IngestionService) notifySystem(ctx context.Context, title, body, level string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SendSystemNotification(ctx, "", title, body, level); err != nil {
		logger.Warnf("failed to send system notification: %v", err)
	}
}
