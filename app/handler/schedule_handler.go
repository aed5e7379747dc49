package handler

import (
	"net/http"
	"strconv"

	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler handles task schedule management
type ScheduleHandler struct {
	schedules *mysql.ScheduleRepository
}

// NewScheduleHandler creates schedule handler
func NewScheduleHandler(schedules *mysql.ScheduleRepository) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// List lists all schedules
// @Summary List schedules
// @Tags schedules
// @Produce json
// @Success 200 {array} mysql.TaskSchedule
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list schedules: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// CreateScheduleRequest is the payload for creating a schedule
type CreateScheduleRequest struct {
	Name              string `json:"name" binding:"required"`
	AppID             *int64 `json:"app_id,omitempty"`
	Frequency         string `json:"frequency" binding:"required"`
	Hour              int    `json:"hour"`
	Minute            int    `json:"minute"`
	Weekday           *int   `json:"weekday,omitempty"`
	DayOfMonth        *int   `json:"day_of_month,omitempty"`
	SkipNotifications bool   `json:"skip_notifications"`
	RetryCount        int    `json:"retry_count"`
	TimeoutMinutes    int    `json:"timeout_minutes"`
}

// Create creates a schedule
// @Summary Create schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Param request body CreateScheduleRequest true "Schedule"
// @Success 200 {object} mysql.TaskSchedule
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := validateScheduleTiming(req.Frequency, req.Hour, req.Minute, req.Weekday, req.DayOfMonth); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	schedule := &mysql.TaskSchedule{
		Name:              req.Name,
		TaskType:          mysql.TaskTypeDailyCollection,
		AppID:             req.AppID,
		Frequency:         req.Frequency,
		Hour:              req.Hour,
		Minute:            req.Minute,
		Weekday:           req.Weekday,
		DayOfMonth:        req.DayOfMonth,
		IsActive:          true,
		SkipNotifications: req.SkipNotifications,
		RetryCount:        req.RetryCount,
		TimeoutMinutes:    req.TimeoutMinutes,
	}
	if schedule.RetryCount <= 0 {
		schedule.RetryCount = 3
	}
	if schedule.TimeoutMinutes <= 0 {
		schedule.TimeoutMinutes = 30
	}

	if err := h.schedules.Create(c.Request.Context(), schedule); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to create schedule: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// UpdateScheduleRequest is the payload for partial schedule updates
type UpdateScheduleRequest struct {
	Name              *string `json:"name,omitempty"`
	Hour              *int    `json:"hour,omitempty"`
	Minute            *int    `json:"minute,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
	SkipNotifications *bool   `json:"skip_notifications,omitempty"`
	RetryCount        *int    `json:"retry_count,omitempty"`
	TimeoutMinutes    *int    `json:"timeout_minutes,omitempty"`
}

// Update modifies a schedule
// @Summary Update schedule
// @Tags schedules
// @Accept json
// @Param id path int true "Schedule ID"
// @Param request body UpdateScheduleRequest true "Fields to update"
// @Success 200 {object} map[string]string
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Hour != nil {
		updates["hour"] = *req.Hour
	}
	if req.Minute != nil {
		updates["minute"] = *req.Minute
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.SkipNotifications != nil {
		updates["skip_notifications"] = *req.SkipNotifications
	}
	if req.RetryCount != nil {
		updates["retry_count"] = *req.RetryCount
	}
	if req.TimeoutMinutes != nil {
		updates["timeout_minutes"] = *req.TimeoutMinutes
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	if err := h.schedules.Update(c.Request.Context(), id, updates); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to update schedule %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "schedule updated"})
}

func validateScheduleTiming(frequency string, hour, minute int, weekday, dayOfMonth *int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return errInvalidTiming
	}
	switch frequency {
	case mysql.FrequencyDaily:
		return nil
	case mysql.FrequencyWeekly:
		if weekday == nil || *weekday < 0 || *weekday > 6 {
			return errWeekdayRequired
		}
		return nil
	case mysql.FrequencyMonthly:
		if dayOfMonth == nil || *dayOfMonth < 1 || *dayOfMonth > 31 {
			return errDayOfMonthRequired
		}
		return nil
	}
	return errInvalidFrequency
}
