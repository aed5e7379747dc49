package handler

import (
	"net/http"
	"strconv"

	"storepulse/internal/analytics"
	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// MetricHandler serves stored metric records and trend analysis
type MetricHandler struct {
	records  *mysql.MetricRecordRepository
	analyzer *analytics.Analyzer
}

// NewMetricHandler creates metric handler
func NewMetricHandler(records *mysql.MetricRecordRepository, analyzer *analytics.Analyzer) *MetricHandler {
	return &MetricHandler{records: records, analyzer: analyzer}
}

// ListRecords lists an app's recent daily records, newest first
// @Summary List metric records
// @Tags metrics
// @Produce json
// @Param id path int true "App ID"
// @Param limit query int false "Max rows (default 30)"
// @Success 200 {array} mysql.MetricRecord
// @Router /apps/{id}/metrics [get]
func (h *MetricHandler) ListRecords(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))

	records, err := h.records.ListRecent(c.Request.Context(), appID, limit)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list records for app %d: %v", appID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

// Trend runs trend analysis over the app's recent history
// @Summary Analyze metric trend
// @Description Correlate a metric against time over the last N days
// @Tags metrics
// @Produce json
// @Param id path int true "App ID"
// @Param metric query string true "Metric name"
// @Param days query int false "Window in days (default 7)"
// @Success 200 {object} model.TrendResult
// @Router /apps/{id}/trend [get]
func (h *MetricHandler) Trend(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app id"})
		return
	}
	metric := c.Query("metric")
	if metric == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "metric required"})
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	if days <= 0 {
		days = 7
	}

	result, err := h.analyzer.AnalyzeTrend(c.Request.Context(), appID, days, metric)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "trend analysis failed for app %d metric %s: %v", appID, metric, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
