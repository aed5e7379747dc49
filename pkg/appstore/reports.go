package appstore

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
)

// FetchDailyMetrics fetches and aggregates one day of analytics data for a
// bundle ID. The async report pipeline is walked end to end: app lookup,
// ongoing report request, report instances for the processing date, then
// every gzip TSV segment. Individual instance failures are tolerated and
// counted; the fetch only fails when nothing at all can be resolved.
func (c *Client) FetchDailyMetrics(ctx context.Context, bundleID string, targetDate time.Time) (*model.VendorMetrics, error) {
	app, err := c.lookupApp(ctx, bundleID)
	if err != nil {
		return nil, err
	}

	requestID, err := c.ensureReportRequest(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	reports, err := c.listReports(ctx, requestID)
	if err != nil {
		return nil, err
	}

	targetKey := ""
	if !targetDate.IsZero() {
		targetKey = model.DateKey(targetDate)
	}

	acc := newInstallAccumulator(targetKey)
	failedInstances := 0

	for _, report := range reports {
		switch report.Attributes.Name {
		case installReportName:
			failedInstances += c.collectInstallReport(ctx, report, targetDate, acc, false)
		case installDetailedReportName:
			failedInstances += c.collectInstallReport(ctx, report, targetDate, acc, true)
		case sessionReportName:
			failedInstances += c.collectSessionReport(ctx, report, targetDate, acc)
		}
	}

	totals := acc.totalsFor(targetKey)
	acc.checkChannelConsistency(totals.Installs)

	effectiveDate := targetDate
	metrics := &model.VendorMetrics{
		BundleID:        bundleID,
		TargetDate:      targetDate,
		EffectiveDate:   effectiveDate,
		Downloads:       totals.Installs,
		Updates:         totals.Updates,
		Reinstalls:      totals.Reinstalls,
		Uninstalls:      totals.Uninstalls,
		Sessions:        totals.Sessions,
		UniqueDevices:   totals.UniqueDevices,
		Channels:        acc.channels,
		DailyBreakdown:  acc.daily,
		FailedInstances: failedInstances,
		Raw: map[string]interface{}{
			"app_id":   app.ID,
			"app_name": app.Attributes.Name,
		},
	}

	logger.Infof("Fetched App Store metrics for %s on %s: downloads=%d sessions=%d uninstalls=%d (failed instances: %d)",
		bundleID, targetKey, metrics.Downloads, metrics.Sessions, metrics.Uninstalls, failedInstances)
	return metrics, nil
}

// lookupApp resolves a bundle ID to its App Store Connect app resource.
func (c *Client) lookupApp(ctx context.Context, bundleID string) (*appResource, error) {
	params := url.Values{}
	params.Set("filter[bundleId]", bundleID)

	var resp appsResponse
	if err := c.get(ctx, "apps", params, &resp); err != nil {
		return nil, fmt.Errorf("failed to look up app %s: %w", bundleID, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no app found for bundle ID %s", bundleID)
	}
	return &resp.Data[0], nil
}

// ensureReportRequest returns an ONGOING analytics report request for the
// app, reusing an existing one when it is still active and creating a new
// request otherwise. Requests stopped due to inactivity cannot be revived.
func (c *Client) ensureReportRequest(ctx context.Context, appID string) (string, error) {
	params := url.Values{}
	params.Set("filter[accessType]", "ONGOING")

	var resp reportRequestsResponse
	if err := c.get(ctx, fmt.Sprintf("apps/%s/analyticsReportRequests", appID), params, &resp); err != nil {
		return "", fmt.Errorf("failed to list report requests: %w", err)
	}

	for _, rr := range resp.Data {
		if rr.Attributes.AccessType == "ONGOING" && !rr.Attributes.StoppedDueToInactivity {
			logger.Debugf("reusing analytics report request %s", rr.ID)
			return rr.ID, nil
		}
	}

	body := createReportRequestBody{
		Data: createReportRequestData{
			Type:       "analyticsReportRequests",
			Attributes: reportRequestCreateAttrs{AccessType: "ONGOING"},
			Relationships: reportRequestRelationships{
				App: relationship{
					Data: relationshipData{Type: "apps", ID: appID},
				},
			},
		},
	}

	var created createReportRequestResponse
	if err := c.post(ctx, "analyticsReportRequests", body, &created); err != nil {
		return "", fmt.Errorf("failed to create report request: %w", err)
	}
	logger.Infof("created analytics report request %s for app %s", created.Data.ID, appID)
	return created.Data.ID, nil
}

// listReports returns the reports of a report request, following pagination.
func (c *Client) listReports(ctx context.Context, requestID string) ([]reportResource, error) {
	var (
		reports []reportResource
		resp    reportsResponse
	)
	if err := c.get(ctx, fmt.Sprintf("analyticsReportRequests/%s/reports", requestID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	reports = append(reports, resp.Data...)

	for resp.Links.Next != "" {
		next := resp.Links.Next
		resp = reportsResponse{}
		if err := c.getPage(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", err)
		}
		reports = append(reports, resp.Data...)
	}
	return reports, nil
}

// listInstances returns the daily instances of a report. Instances are
// published one processing date behind the data date they cover.
func (c *Client) listInstances(ctx context.Context, reportID string, targetDate time.Time) ([]instanceResource, error) {
	params := url.Values{}
	params.Set("filter[granularity]", "DAILY")
	if !targetDate.IsZero() {
		params.Set("filter[processingDate]", model.DateKey(targetDate.AddDate(0, 0, 1)))
	}

	var (
		instances []instanceResource
		resp      instancesResponse
	)
	if err := c.get(ctx, fmt.Sprintf("analyticsReports/%s/instances", reportID), params, &resp); err != nil {
		return nil, fmt.Errorf("failed to list report instances: %w", err)
	}
	instances = append(instances, resp.Data...)

	for resp.Links.Next != "" {
		next := resp.Links.Next
		resp = instancesResponse{}
		if err := c.getPage(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("failed to list report instances: %w", err)
		}
		instances = append(instances, resp.Data...)
	}
	return instances, nil
}

// listSegments returns the download segments of a report instance.
func (c *Client) listSegments(ctx context.Context, instanceID string) ([]segmentResource, error) {
	var (
		segments []segmentResource
		resp     segmentsResponse
	)
	if err := c.get(ctx, fmt.Sprintf("analyticsReportInstances/%s/segments", instanceID), nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	segments = append(segments, resp.Data...)

	for resp.Links.Next != "" {
		next := resp.Links.Next
		resp = segmentsResponse{}
		if err := c.getPage(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("failed to list segments: %w", err)
		}
		segments = append(segments, resp.Data...)
	}
	return segments, nil
}

// collectInstallReport walks every instance and segment of an installation
// report into the accumulator. When deletionsOnly is set only uninstall
// events are merged, since the detailed report's install rows duplicate the
// standard report. Returns the number of instances that failed.
func (c *Client) collectInstallReport(ctx context.Context, report reportResource, targetDate time.Time, acc *installAccumulator, deletionsOnly bool) int {
	instances, err := c.listInstances(ctx, report.ID, targetDate)
	if err != nil {
		logger.Errorf("failed to list instances for report %q: %v", report.Attributes.Name, err)
		return 1
	}
	if len(instances) == 0 {
		logger.Warnf("no daily instances for report %q on %s", report.Attributes.Name, model.DateKey(targetDate))
		return 0
	}

	failed := 0
	for _, instance := range instances {
		rows, err := c.fetchInstanceRows(ctx, instance.ID)
		if err != nil {
			logger.Errorf("failed to fetch instance %s of report %q: %v", instance.ID, report.Attributes.Name, err)
			failed++
			continue
		}
		for _, row := range rows {
			if deletionsOnly {
				acc.addDeletions(row)
			} else {
				acc.addRow(row)
			}
		}
	}
	return failed
}

// collectSessionReport walks a sessions report into the accumulator.
// Returns the number of instances that failed.
func (c *Client) collectSessionReport(ctx context.Context, report reportResource, targetDate time.Time, acc *installAccumulator) int {
	instances, err := c.listInstances(ctx, report.ID, targetDate)
	if err != nil {
		logger.Errorf("failed to list instances for report %q: %v", report.Attributes.Name, err)
		return 1
	}

	failed := 0
	for _, instance := range instances {
		segments, err := c.listSegments(ctx, instance.ID)
		if err != nil {
			logger.Errorf("failed to list segments of instance %s: %v", instance.ID, err)
			failed++
			continue
		}
		ok := true
		for _, segment := range segments {
			data, err := c.downloadSegment(ctx, segment.Attributes.URL)
			if err != nil {
				logger.Errorf("failed to download segment %s: %v", segment.ID, err)
				ok = false
				break
			}
			rows, err := parseSessionSegment(data)
			if err != nil {
				logger.Errorf("failed to parse segment %s: %v", segment.ID, err)
				ok = false
				break
			}
			for _, row := range rows {
				acc.addSessions(row)
			}
		}
		if !ok {
			failed++
		}
	}
	return failed
}

// fetchInstanceRows downloads and parses every segment of one installation
// report instance.
func (c *Client) fetchInstanceRows(ctx context.Context, instanceID string) ([]installRow, error) {
	segments, err := c.listSegments(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	var rows []installRow
	for _, segment := range segments {
		data, err := c.downloadSegment(ctx, segment.Attributes.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to download segment %s: %w", segment.ID, err)
		}
		parsed, err := parseInstallSegment(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse segment %s: %w", segment.ID, err)
		}
		rows = append(rows, parsed...)
	}
	return rows, nil
}
