package handler

import (
	"time"

	"github.com/chatbubbles/internal/cache"
	"github.com/chatbubbles/internal/platform"
	"github.com/chatbubbles/internal/service"
	"github.com/chatbubbles/internal/view"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 后台接口默认限制
const (
	DefaultLabelMin     = 2
	DefaultLabelMax     = 50
	DefaultReorderLimit = 50
	DefaultRateLimit    = 20
	DefaultRateWindow   = time.Minute
)

// Options 配置 API 的依赖与限制，零值字段使用默认值。
type Options struct {
	UploadDir string
	UploadURL string
	Assets    view.Assets

	// Cache 为 nil 时前台数据不缓存；Counter 为 nil 时使用进程内计数。
	Cache    cache.Cache
	Counter  cache.Counter
	CacheTTL time.Duration

	LabelMin     int
	LabelMax     int
	ReorderLimit int
	RateLimit    int
	RateWindow   time.Duration

	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.UploadDir == "" {
		o.UploadDir = "web/static/uploads"
	}
	if o.UploadURL == "" {
		o.UploadURL = "/static/uploads"
	}
	if o.Assets.BaseURL == "" {
		o.Assets = view.NewAssets("")
	}
	if o.Counter == nil {
		o.Counter = cache.NewMemoryStore()
	}
	if o.LabelMin <= 0 {
		o.LabelMin = DefaultLabelMin
	}
	if o.LabelMax < o.LabelMin {
		o.LabelMax = DefaultLabelMax
	}
	if o.ReorderLimit <= 0 {
		o.ReorderLimit = DefaultReorderLimit
	}
	if o.RateLimit == 0 {
		o.RateLimit = DefaultRateLimit
	}
	if o.RateWindow <= 0 {
		o.RateWindow = DefaultRateWindow
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	registry   *platform.Registry
	items      *service.ItemService
	settings   *service.WidgetSettingService
	media      *service.LocalMediaService
	projection *service.ProjectionService
	legacy     *service.LegacyImporter
	limiter    *RateLimiter
	assets     view.Assets
	logger     *zap.Logger

	labelMin     int
	labelMax     int
	reorderLimit int
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	opts.applyDefaults()

	registry := platform.NewRegistry()
	settings := service.NewWidgetSettingService(gdb)
	media := service.NewLocalMediaService(gdb, opts.UploadDir, opts.UploadURL, opts.Logger)
	items := service.NewItemService(gdb, registry, media,
		service.WithLogger(opts.Logger),
		service.WithVersionBumper(settings.BumpDataVersion),
	)
	projection := service.NewProjectionService(items, settings, registry, media, service.ProjectionOptions{
		Cache:  opts.Cache,
		TTL:    opts.CacheTTL,
		Assets: opts.Assets,
		Logger: opts.Logger,
	})

	return &API{
		db:           gdb,
		registry:     registry,
		items:        items,
		settings:     settings,
		media:        media,
		projection:   projection,
		legacy:       service.NewLegacyImporter(gdb, items, settings),
		limiter:      NewRateLimiter(opts.Counter, opts.RateLimit, opts.RateWindow, opts.Logger),
		assets:       opts.Assets,
		logger:       opts.Logger,
		labelMin:     opts.LabelMin,
		labelMax:     opts.LabelMax,
		reorderLimit: opts.ReorderLimit,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Items exposes the item store for CLI commands.
func (a *API) Items() *service.ItemService {
	return a.items
}

// Legacy exposes the one-shot legacy importer.
func (a *API) Legacy() *service.LegacyImporter {
	return a.legacy
}

// Limiter returns the admin rate limiter.
func (a *API) Limiter() *RateLimiter {
	return a.limiter
}
