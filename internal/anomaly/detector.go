package anomaly

import (
	"context"
	"fmt"
	"math"
	"time"

	"storepulse/internal/model"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"
)

// Trigger directions.
const (
	DirectionBelowMinimum = "below_minimum"
	DirectionAboveMaximum = "above_maximum"
)

// Severity levels, derived from how far the value deviates from the
// breached threshold.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Anomaly is the ephemeral result of one triggered rule. It is converted to
// an alert log entry and a notification by the caller; it is never stored
// as is.
type Anomaly struct {
	RuleID         int64   `json:"rule_id"`
	AppID          int64   `json:"app_id"`
	AppName        string  `json:"app_name"`
	Metric         string  `json:"metric"`
	ComparisonType string  `json:"comparison_type"`
	CurrentValue   float64 `json:"current_value"`
	ThresholdValue float64 `json:"threshold_value"`
	Direction      string  `json:"direction"`
	Severity       string  `json:"severity"`
	Message        string  `json:"message"`
	WebhookURL     string  `json:"webhook_url,omitempty"`
}

// RuleStore lists the active alert rules of an app.
type RuleStore interface {
	ListActiveByApp(ctx context.Context, appID int64) ([]*mysql.AlertRule, error)
}

// Detector evaluates alert rules against current metrics and growth rates.
type Detector struct {
	rules RuleStore
}

// NewDetector creates a detector backed by a rule store.
func NewDetector(rules RuleStore) *Detector {
	return &Detector{rules: rules}
}

// Detect evaluates every active rule of the app. Rules that fail to
// evaluate are skipped, not fatal.
func (d *Detector) Detect(ctx context.Context, appName string, appID int64, current *mysql.MetricRecord, rates model.GrowthRates) ([]Anomaly, error) {
	rules, err := d.rules.ListActiveByApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	logger.Debugf("evaluating %d alert rules for app %d", len(rules), appID)

	var anomalies []Anomaly
	for _, rule := range rules {
		if anomaly := evaluateRule(*rule, appName, current, rates); anomaly != nil {
			logger.Warnf("anomaly detected: %s", anomaly.Message)
			anomalies = append(anomalies, *anomaly)
		}
	}
	return anomalies, nil
}

// evaluateRule checks one rule. Both bounds are evaluated independently;
// when both breach, above-maximum wins because it is evaluated second.
func evaluateRule(rule mysql.AlertRule, appName string, current *mysql.MetricRecord, rates model.GrowthRates) *Anomaly {
	var currentValue float64
	if rule.ComparisonType == mysql.ComparisonAbsolute {
		currentValue, _ = current.MetricValue(rule.Metric)
	} else {
		currentValue, _ = rates.Rate(rule.Metric, rule.ComparisonType)
	}

	triggered := false
	direction := ""
	threshold := 0.0

	if rule.ThresholdMin != nil && currentValue < *rule.ThresholdMin {
		triggered = true
		direction = DirectionBelowMinimum
		threshold = *rule.ThresholdMin
	}
	if rule.ThresholdMax != nil && currentValue > *rule.ThresholdMax {
		triggered = true
		direction = DirectionAboveMaximum
		threshold = *rule.ThresholdMax
	}
	if !triggered {
		return nil
	}

	return &Anomaly{
		RuleID:         rule.ID,
		AppID:          rule.AppID,
		AppName:        appName,
		Metric:         rule.Metric,
		ComparisonType: rule.ComparisonType,
		CurrentValue:   currentValue,
		ThresholdValue: threshold,
		Direction:      direction,
		Severity:       severity(currentValue, threshold),
		Message:        renderMessage(rule, appName, currentValue, threshold, direction),
		WebhookURL:     rule.WebhookURL,
	}
}

// severity grades the relative deviation from the breached threshold. A
// zero threshold with a nonzero value is graded as infinitely deviated.
func severity(currentValue, threshold float64) string {
	var deviation float64
	if threshold == 0 {
		if currentValue == 0 {
			deviation = 0
		} else {
			deviation = math.Inf(1)
		}
	} else {
		deviation = math.Abs(currentValue-threshold) / math.Abs(threshold)
	}

	switch {
	case math.IsNaN(deviation):
		return SeverityMedium
	case deviation >= 2.0:
		return SeverityCritical
	case deviation >= 1.0:
		return SeverityHigh
	case deviation >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func renderMessage(rule mysql.AlertRule, appName string, currentValue, threshold float64, direction string) string {
	comparisonText := map[string]string{
		mysql.ComparisonAbsolute:     "absolute value",
		mysql.ComparisonDayOverDay:   "day over day",
		mysql.ComparisonWeekOverWeek: "week over week",
	}[rule.ComparisonType]

	directionText := "below the minimum of"
	if direction == DirectionAboveMaximum {
		directionText = "above the maximum of"
	}

	var currentStr, thresholdStr string
	if rule.ComparisonType == mysql.ComparisonAbsolute {
		currentStr = formatAbsolute(currentValue)
		thresholdStr = formatAbsolute(threshold)
	} else {
		currentStr = fmt.Sprintf("%+.1f%%", currentValue)
		thresholdStr = fmt.Sprintf("%+.1f%%", threshold)
	}

	return fmt.Sprintf("[%s] %s anomaly (%s): current %s is %s %s, detected at %s",
		appName, rule.Metric, comparisonText, currentStr, directionText, thresholdStr,
		time.Now().Format("2006-01-02 15:04:05"))
}

func formatAbsolute(v float64) string {
	if math.Abs(v) >= 1 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}
