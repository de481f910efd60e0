package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

var mobileSignals = []string{"mobile", "android", "iphone", "ipod", "blackberry", "opera mini", "iemobile"}

// GetWidget 返回前台渲染数据；未启用或当前页面被排除时返回 204。
// 查询参数 page_id 对应排除页面列表中的页面 ID。
func (a *API) GetWidget(c *gin.Context) {
	ctx := c.Request.Context()

	settings, err := a.settings.GetSettings(ctx)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "加载失败")
		return
	}

	pageID, _ := strconv.Atoi(strings.TrimSpace(c.Query("page_id")))
	if !settings.ShouldLoadOnPage(pageID, isMobileRequest(c)) {
		c.Status(http.StatusNoContent)
		return
	}

	projection, err := a.projection.FrontendProjection(ctx)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "加载失败")
		return
	}
	if projection == nil {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"widget":     projection,
		"custom_css": settings.CustomCSS,
	})
}

// GetWidgetItems 返回以条目 ID 为键的精简数据，供前台脚本查找。
func (a *API) GetWidgetItems(c *gin.Context) {
	items, err := a.projection.JSItems(c.Request.Context())
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "加载失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func isMobileRequest(c *gin.Context) bool {
	ua := strings.ToLower(c.GetHeader("User-Agent"))
	if ua == "" {
		return false
	}
	for _, signal := range mobileSignals {
		if strings.Contains(ua, signal) {
			return true
		}
	}
	return false
}
