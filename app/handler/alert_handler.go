package handler

import (
	"net/http"
	"strconv"

	"storepulse/pkg/logger"
	"storepulse/pkg/notification"
	"storepulse/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// AlertHandler handles alert rules, logs and webhook checks
type AlertHandler struct {
	rules    *mysql.AlertRuleRepository
	logs     *mysql.AlertLogRepository
	notifier *notification.LarkNotifier
}

// NewAlertHandler creates alert handler
func NewAlertHandler(rules *mysql.AlertRuleRepository, logs *mysql.AlertLogRepository, notifier *notification.LarkNotifier) *AlertHandler {
	return &AlertHandler{rules: rules, logs: logs, notifier: notifier}
}

// CreateRuleRequest is the payload for creating an alert rule
type CreateRuleRequest struct {
	AppID          int64    `json:"app_id" binding:"required"`
	Metric         string   `json:"metric" binding:"required"`
	ComparisonType string   `json:"comparison_type" binding:"required"`
	ThresholdMin   *float64 `json:"threshold_min,omitempty"`
	ThresholdMax   *float64 `json:"threshold_max,omitempty"`
	WebhookURL     string   `json:"webhook_url,omitempty"`
}

// CreateRule creates an alert rule
// @Summary Create alert rule
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body CreateRuleRequest true "Rule"
// @Success 200 {object} mysql.AlertRule
// @Router /alert-rules [post]
func (h *AlertHandler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	switch req.ComparisonType {
	case mysql.ComparisonDayOverDay, mysql.ComparisonWeekOverWeek, mysql.ComparisonAbsolute:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "comparison_type must be dod, wow or absolute"})
		return
	}
	if req.ThresholdMin == nil && req.ThresholdMax == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of threshold_min/threshold_max required"})
		return
	}

	rule := &mysql.AlertRule{
		AppID:          req.AppID,
		Metric:         req.Metric,
		ComparisonType: req.ComparisonType,
		ThresholdMin:   req.ThresholdMin,
		ThresholdMax:   req.ThresholdMax,
		IsActive:       true,
		WebhookURL:     req.WebhookURL,
	}
	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to create alert rule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListRules lists active rules for an app
// @Summary List alert rules
// @Tags alerts
// @Produce json
// @Param id path int true "App ID"
// @Success 200 {array} mysql.AlertRule
// @Router /apps/{id}/alert-rules [get]
func (h *AlertHandler) ListRules(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app id"})
		return
	}

	rules, err := h.rules.ListActiveByApp(c.Request.Context(), appID)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list rules for app %d: %v", appID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// ListLogs lists recent alert deliveries
// @Summary List alert logs
// @Tags alerts
// @Produce json
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} mysql.AlertLog
// @Router /alerts [get]
func (h *AlertHandler) ListLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list alert logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": logs})
}

// TestWebhookRequest is the payload for a webhook connectivity check
type TestWebhookRequest struct {
	WebhookURL string `json:"webhook_url,omitempty"` // empty tests the default webhook
}

// TestWebhook sends a test card to a webhook
// @Summary Test webhook
// @Tags alerts
// @Accept json
// @Produce json
// @Param request body TestWebhookRequest true "Webhook"
// @Success 200 {object} map[string]interface{}
// @Router /webhook/test [post]
func (h *AlertHandler) TestWebhook(c *gin.Context) {
	var req TestWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ok, detail := h.notifier.TestTarget(c.Request.Context(), req.WebhookURL)
	status := http.StatusOK
	if !ok {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"ok": ok, "detail": detail})
}
