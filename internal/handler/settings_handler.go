package handler

import (
	"net/http"

	"github.com/chatbubbles/internal/service"
	"github.com/chatbubbles/internal/view"
	"github.com/gin-gonic/gin"
)

// HealthCheck 提供监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

// GetSettings 返回当前气泡设置与数据版本号。
func (a *API) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	settings, err := a.settings.GetSettings(ctx)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "获取设置失败")
		return
	}
	version, err := a.settings.DataVersion(ctx)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "获取设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"settings":     settings,
		"data_version": version,
	})
}

// UpdateSettings 保存气泡设置，未传入的字段保持不变。
func (a *API) UpdateSettings(c *gin.Context) {
	var payload service.WidgetSettingsInput
	if !bindJSON(c, &payload, "设置数据格式不正确") {
		return
	}

	settings, err := a.settings.UpdateSettings(c.Request.Context(), payload)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "保存设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "设置已保存",
		"settings": settings,
	})
}

// ListIcons 返回主按钮可选的内置图标
func (a *API) ListIcons(c *gin.Context) {
	options := view.IconOptions()
	payload := make([]gin.H, 0, len(options))
	for _, option := range options {
		payload = append(payload, gin.H{
			"key":   option.Key,
			"label": option.Label,
			"url":   a.assets.IconURL(option.File),
		})
	}
	c.JSON(http.StatusOK, gin.H{"icons": payload})
}
