package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chatbubbles/internal/cache"
	"github.com/chatbubbles/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type handlerTestEnv struct {
	api    *API
	engine *gin.Engine
	cookie string
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func newHandlerTestEnv(t *testing.T, opts Options) *handlerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(t.TempDir(), "uploads")
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryStore()
	}
	api := NewAPI(setupHandlerTestDB(t), opts)

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.GET("/test/session", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(sessionUserIDKey, uint(1))
		session.Save()
		c.Status(http.StatusOK)
	})
	r.GET("/healthz", api.HealthCheck)
	r.GET("/api/widget", api.GetWidget)
	r.GET("/api/widget/items", api.GetWidgetItems)
	r.POST("/admin/login", api.Login)
	r.GET("/admin/logout", api.Logout)

	auth := r.Group("/admin/api", AuthRequired())
	auth.GET("/items", api.ListItems)
	auth.GET("/platforms", api.ListPlatforms)
	auth.GET("/attachments/:id", api.GetAttachment)
	auth.GET("/settings", api.GetSettings)
	auth.GET("/icons", api.ListIcons)
	writes := auth.Group("", api.Limiter().Middleware())
	writes.POST("/items", api.SaveItem)
	writes.DELETE("/items/:id", api.DeleteItem)
	writes.POST("/items/reorder", api.ReorderItems)
	writes.POST("/attachments", api.UploadAttachment)
	writes.PUT("/settings", api.UpdateSettings)

	env := &handlerTestEnv{api: api, engine: r}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/session", nil))
	env.cookie = sessionCookie(w)
	if env.cookie == "" {
		t.Fatal("expected session cookie")
	}
	return env
}

func sessionCookie(w *httptest.ResponseRecorder) string {
	raw := w.Header().Get("Set-Cookie")
	if idx := strings.Index(raw, ";"); idx >= 0 {
		raw = raw[:idx]
	}
	return raw
}

func (e *handlerTestEnv) do(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Cookie", e.cookie)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response failed: %v (body=%q)", err, w.Body.String())
	}
	return payload
}

func TestHealthCheck(t *testing.T) {
	env := newHandlerTestEnv(t, Options{})

	w := env.do(t, http.MethodGet, "/healthz", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decodeBody(t, w)["status"] != "ok" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
