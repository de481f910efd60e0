package router

import (
	"os"
	"strings"

	"github.com/chatbubbles/internal/handler"
	"github.com/chatbubbles/internal/logging"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config 描述路由层需要的静态资源与会话配置。
type Config struct {
	SessionSecret string
	UploadDir     string
	UploadURL     string
	AssetDir      string
	AssetURL      string
	Logger        *zap.Logger
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg Config) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(logging.Middleware(logger), gin.Recovery())

	// 配置会话中间件
	secret := strings.TrimSpace(cfg.SessionSecret)
	if secret == "" {
		secret = "chatbubbles-dev-secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 7 * 24 * 3600})
	r.Use(sessions.Sessions("chatbubbles_session", store))

	// 上传文件与内置图标
	uploadURL := normalizeMountPath(cfg.UploadURL, "/static/uploads")
	if cfg.UploadDir != "" {
		r.Static(uploadURL, cfg.UploadDir)
		if uploadURL != "/uploads" {
			r.Static("/uploads", cfg.UploadDir)
		}
	}
	if dirExists(cfg.AssetDir) {
		r.Static(normalizeMountPath(cfg.AssetURL, "/assets"), cfg.AssetDir)
	}

	r.GET("/healthz", api.HealthCheck)

	public := r.Group("/api")
	{
		public.GET("/widget", api.GetWidget)
		public.GET("/widget/items", api.GetWidgetItems)
	}

	// 后台管理路由
	admin := r.Group("/admin")
	{
		admin.POST("/login", api.Login)
		admin.GET("/logout", api.Logout)

		// 需要认证的后台接口
		auth := admin.Group("/api")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/items", api.ListItems)
			auth.GET("/platforms", api.ListPlatforms)
			auth.GET("/attachments/:id", api.GetAttachment)
			auth.GET("/settings", api.GetSettings)
			auth.GET("/icons", api.ListIcons)

			writes := auth.Group("")
			writes.Use(api.Limiter().Middleware())
			{
				writes.POST("/items", api.SaveItem)
				writes.DELETE("/items/:id", api.DeleteItem)
				writes.POST("/items/reorder", api.ReorderItems)
				writes.POST("/attachments", api.UploadAttachment)
				writes.PUT("/settings", api.UpdateSettings)
			}
		}
	}

	return r
}

func normalizeMountPath(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		trimmed = fallback
	}
	trimmed = "/" + strings.Trim(trimmed, "/")
	if trimmed == "/" {
		return fallback
	}
	return trimmed
}

func dirExists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
