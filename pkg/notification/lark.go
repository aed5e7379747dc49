package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"storepulse/internal/analytics"
	"storepulse/internal/anomaly"
	"storepulse/pkg/config"
	"storepulse/pkg/logger"
)

// LarkNotifier sends report and alert cards to Lark (Feishu) webhooks.
// Each message can carry its own webhook target; the configured default is
// used when none is given.
type LarkNotifier struct {
	defaultWebhook string
	client         *http.Client
}

// NewLarkNotifier creates a notifier. Priority: config file > environment
// variable. A missing webhook disables default-target notifications but
// per-rule webhooks still work.
func NewLarkNotifier() *LarkNotifier {
	var webhookURL string
	if config.GlobalConfig != nil && config.GlobalConfig.Notification.LarkWebhook != "" {
		webhookURL = config.GlobalConfig.Notification.LarkWebhook
		logger.Info("Using Lark webhook URL from config file")
	} else {
		webhookURL = os.Getenv("LARK_WEBHOOK_URL")
		if webhookURL != "" {
			logger.Info("Using Lark webhook URL from environment variable")
		}
	}

	if webhookURL == "" {
		logger.Warn("Lark webhook URL not configured (check config file or LARK_WEBHOOK_URL env), default notifications will be disabled")
	}

	return &LarkNotifier{
		defaultWebhook: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *LarkNotifier) resolveTarget(target string) string {
	if target != "" {
		return target
	}
	return n.defaultWebhook
}

// SendDailyReport sends the per-app daily metrics card.
func (n *LarkNotifier) SendDailyReport(ctx context.Context, target string, report *analytics.ReportPayload) error {
	webhook := n.resolveTarget(target)
	if webhook == "" {
		logger.WarnCtx(ctx, "no Lark webhook for daily report of %s, skipping", report.AppName)
		return nil
	}
	return n.send(ctx, webhook, buildDailyReportCard(report))
}

// SendAlert sends one anomaly as an alert card to the rule's webhook.
func (n *LarkNotifier) SendAlert(ctx context.Context, target string, a *anomaly.Anomaly) error {
	webhook := n.resolveTarget(target)
	if webhook == "" {
		logger.WarnCtx(ctx, "no Lark webhook for alert on %s/%s, skipping", a.AppName, a.Metric)
		return nil
	}
	return n.send(ctx, webhook, buildAlertCard(a))
}

// SendSystemNotification sends an operational message (run failures,
// scheduler issues). level is one of info, warning, error.
func (n *LarkNotifier) SendSystemNotification(ctx context.Context, target, title, body, level string) error {
	webhook := n.resolveTarget(target)
	if webhook == "" {
		logger.WarnCtx(ctx, "no Lark webhook for system notification %q, skipping", title)
		return nil
	}

	template := map[string]string{
		"info":    "blue",
		"warning": "orange",
		"error":   "red",
	}[level]
	if template == "" {
		template = "blue"
	}

	return n.send(ctx, webhook, card(template, title, []interface{}{
		markdownBlock(body),
		markdownBlock(fmt.Sprintf("**Time**\n%s", time.Now().Format("2006-01-02 15:04:05"))),
	}))
}

// TestTarget sends a plain text probe so operators can verify a webhook
// before attaching it to a rule or report config.
func (n *LarkNotifier) TestTarget(ctx context.Context, target string) (bool, string) {
	webhook := n.resolveTarget(target)
	if webhook == "" {
		return false, "no webhook URL configured"
	}

	err := n.send(ctx, webhook, map[string]interface{}{
		"msg_type": "text",
		"content": map[string]interface{}{
			"text": "storepulse webhook test: connection OK",
		},
	})
	if err != nil {
		return false, err.Error()
	}
	return true, "test message delivered"
}

// send posts a message payload to a webhook and checks the Lark response
// envelope.
func (n *LarkNotifier) send(ctx context.Context, webhook string, message map[string]interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal Lark message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Lark notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Lark API returned status code: %d", resp.StatusCode)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Code != 0 {
		return fmt.Errorf("Lark API rejected message: code=%d msg=%s", result.Code, result.Msg)
	}

	logger.InfoCtx(ctx, "Lark notification sent")
	return nil
}

func card(template, title string, elements []interface{}) map[string]interface{} {
	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"template": template,
				"title": map[string]interface{}{
					"content": title,
					"tag":     "plain_text",
				},
			},
			"elements": elements,
		},
	}
}

func markdownBlock(content string) map[string]interface{} {
	return map[string]interface{}{
		"tag": "div",
		"text": map[string]interface{}{
			"content": content,
			"tag":     "lark_md",
		},
	}
}

func divider() map[string]interface{} {
	return map[string]interface{}{"tag": "hr"}
}

func buildDailyReportCard(report *analytics.ReportPayload) map[string]interface{} {
	metricLine := func(name string, m analytics.MetricSnapshot) string {
		return fmt.Sprintf("**%s**: %d (DoD %+.1f%%, WoW %+.1f%%)", name, m.Value, m.DODChange, m.WOWChange)
	}

	metrics := strings.Join([]string{
		metricLine("Downloads", report.Downloads),
		metricLine("Sessions", report.Sessions),
		metricLine("Uninstalls", report.Uninstalls),
		metricLine("Active devices", report.UniqueDevices),
	}, "\n")

	sources := strings.Join([]string{
		metricLine("App Store search", report.SourceBreakdown.AppStoreSearch),
		metricLine("Web referrer", report.SourceBreakdown.WebReferrer),
		metricLine("App referrer", report.SourceBreakdown.AppReferrer),
		fmt.Sprintf("**Browse / Institutional / Other**: %d / %d / %d",
			report.SourceBreakdown.AppStoreBrowse, report.SourceBreakdown.Institutional, report.SourceBreakdown.Other),
	}, "\n")

	elements := []interface{}{
		markdownBlock(metrics),
		divider(),
		markdownBlock(sources),
	}
	if len(report.Insights) > 0 {
		elements = append(elements, divider(),
			markdownBlock("**Insights**\n"+strings.Join(report.Insights, "\n")))
	}
	elements = append(elements, divider(), markdownBlock(report.Summary))

	return card("blue", fmt.Sprintf("Daily Report: %s (%s)", report.AppName, report.Date), elements)
}

func buildAlertCard(a *anomaly.Anomaly) map[string]interface{} {
	template := map[string]string{
		anomaly.SeverityCritical: "red",
		anomaly.SeverityHigh:     "orange",
		anomaly.SeverityMedium:   "yellow",
		anomaly.SeverityLow:      "grey",
	}[a.Severity]
	if template == "" {
		template = "yellow"
	}

	return card(template, fmt.Sprintf("Anomaly Alert: %s", a.AppName), []interface{}{
		markdownBlock(a.Message),
		divider(),
		markdownBlock(fmt.Sprintf("**Severity**\n%s", strings.ToUpper(a.Severity))),
	})
}
