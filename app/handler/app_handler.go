package handler

import (
	"net/http"
	"strconv"

	"storepulse/pkg/logger"
	"storepulse/pkg/store/mysql"

	"github.com/gin-gonic/gin"
)

// AppHandler handles tracked-app management
type AppHandler struct {
	apps *mysql.AppRepository
}

// NewAppHandler creates app handler
func NewAppHandler(apps *mysql.AppRepository) *AppHandler {
	return &AppHandler{apps: apps}
}

// List lists all tracked apps
// @Summary List apps
// @Tags apps
// @Produce json
// @Success 200 {array} mysql.App
// @Router /apps [get]
func (h *AppHandler) List(c *gin.Context) {
	apps, err := h.apps.List(c.Request.Context())
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to list apps: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"apps": apps})
}

// Get retrieves one app
// @Summary Get app
// @Tags apps
// @Produce json
// @Param id path int true "App ID"
// @Success 200 {object} mysql.App
// @Router /apps/{id} [get]
func (h *AppHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app id"})
		return
	}

	app, err := h.apps.Get(c.Request.Context(), id)
	if err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to get app %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if app == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not found"})
		return
	}
	c.JSON(http.StatusOK, app)
}

// CreateAppRequest is the payload for registering an app
type CreateAppRequest struct {
	Name     string `json:"name" binding:"required"`
	Platform string `json:"platform" binding:"required"`
	BundleID string `json:"bundle_id" binding:"required"`
}

// Create registers a new app to track
// @Summary Create app
// @Tags apps
// @Accept json
// @Produce json
// @Param request body CreateAppRequest true "App"
// @Success 200 {object} mysql.App
// @Router /apps [post]
func (h *AppHandler) Create(c *gin.Context) {
	var req CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Platform != mysql.PlatformIOS && req.Platform != mysql.PlatformAndroid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform must be ios or android"})
		return
	}

	app := &mysql.App{
		Name:     req.Name,
		Platform: req.Platform,
		BundleID: req.BundleID,
		IsActive: true,
	}
	if err := h.apps.Create(c.Request.Context(), app); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to create app: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app)
}

// UpdateAppRequest is the payload for partial app updates
type UpdateAppRequest struct {
	Name     *string `json:"name,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Update modifies an app's name or active flag
// @Summary Update app
// @Tags apps
// @Accept json
// @Param id path int true "App ID"
// @Param request body UpdateAppRequest true "Fields to update"
// @Success 200 {object} map[string]string
// @Router /apps/{id} [put]
func (h *AppHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid app id"})
		return
	}

	var req UpdateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
		return
	}

	if err := h.apps.Update(c.Request.Context(), id, updates); err != nil {
		logger.ErrorCtx(c.Request.Context(), "failed to update app %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "app updated"})
}
