package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chatbubbles/internal/cache"
	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/platform"
	"github.com/chatbubbles/internal/view"
	"go.uber.org/zap"
)

// DefaultProjectionTTL 是前台数据缓存的默认有效期。
const DefaultProjectionTTL = time.Hour

// 空结果同样写入缓存，使用该标记区分
var emptyProjectionMarker = []byte("null")

// ProjectedItem 是前台渲染使用的条目，包含派生的链接、图标和颜色。
type ProjectedItem struct {
	ID           uint   `json:"id"`
	Platform     string `json:"platform"`
	Label        string `json:"label"`
	ContactValue string `json:"contact_value"`
	Enabled      bool   `json:"enabled"`
	QRImageID    uint   `json:"qr_code_id"`
	SortOrder    int    `json:"sort_order"`
	URL          string `json:"url"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	QRCodeURL    string `json:"qr_code_url"`
	HasQR        bool   `json:"has_qr"`
}

// Projection 是前台一次渲染所需的全部数据。
type Projection struct {
	Items       []ProjectedItem `json:"items"`
	Settings    DisplaySettings `json:"settings"`
	SupportIcon string          `json:"support_icon"`
	CancelIcon  string          `json:"cancel_icon"`
}

// JSItem 是前台脚本按 ID 查找条目时使用的精简结构。
type JSItem struct {
	ID       uint   `json:"id"`
	Platform string `json:"platform"`
	Label    string `json:"label"`
	URL      string `json:"url"`
	Icon     string `json:"icon"`
	QRCode   string `json:"qr_code"`
	HasQR    bool   `json:"has_qr"`
}

type itemLister interface {
	ListAll(ctx context.Context, enabledOnly bool) ([]db.ChatItem, error)
}

type settingsSource interface {
	GetSettings(ctx context.Context) (WidgetSettings, error)
	DataVersion(ctx context.Context) (int64, error)
}

// ProjectionOptions 配置 ProjectionService，Cache 为 nil 时每次都重新计算。
type ProjectionOptions struct {
	Cache  cache.Cache
	TTL    time.Duration
	Assets view.Assets
	Logger *zap.Logger
}

// ProjectionService 把启用的条目与展示设置组合成前台数据。
type ProjectionService struct {
	items    itemLister
	settings settingsSource
	registry *platform.Registry
	media    MediaCollaborator
	cache    cache.Cache
	ttl      time.Duration
	assets   view.Assets
	logger   *zap.Logger

	// lastKey 是本实例最近写入的缓存键，换键时删除旧值
	mu      sync.Mutex
	lastKey string
}

// NewProjectionService 构造 ProjectionService
func NewProjectionService(items itemLister, settings settingsSource, registry *platform.Registry, media MediaCollaborator, opts ProjectionOptions) *ProjectionService {
	if registry == nil {
		registry = platform.NewRegistry()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultProjectionTTL
	}
	if opts.Assets.BaseURL == "" {
		opts.Assets = view.NewAssets("")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &ProjectionService{
		items:    items,
		settings: settings,
		registry: registry,
		media:    media,
		cache:    opts.Cache,
		ttl:      opts.TTL,
		assets:   opts.Assets,
		logger:   opts.Logger,
	}
}

// CacheKey 返回当前数据版本与展示设置对应的缓存键
func CacheKey(version int64, settings DisplaySettings) string {
	return fmt.Sprintf("frontend:v%d:s%s", version, settings.Hash())
}

// FrontendProjection 返回前台数据；没有启用的条目时返回 nil。
func (s *ProjectionService) FrontendProjection(ctx context.Context) (*Projection, error) {
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	version, err := s.settings.DataVersion(ctx)
	if err != nil {
		return nil, err
	}
	display := settings.Display()
	key := CacheKey(version, display)

	if projection, ok := s.fromCache(ctx, key); ok {
		return projection, nil
	}

	projection, err := s.build(ctx, display)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, projection)
	return projection, nil
}

// JSItems 返回以条目 ID 为键的精简数据，供前台脚本使用。
func (s *ProjectionService) JSItems(ctx context.Context) (map[uint]JSItem, error) {
	projection, err := s.FrontendProjection(ctx)
	if err != nil {
		return nil, err
	}
	result := make(map[uint]JSItem)
	if projection == nil {
		return result, nil
	}
	for _, item := range projection.Items {
		result[item.ID] = JSItem{
			ID:       item.ID,
			Platform: item.Platform,
			Label:    item.Label,
			URL:      item.URL,
			Icon:     item.Icon,
			QRCode:   item.QRCodeURL,
			HasQR:    item.HasQR,
		}
	}
	return result, nil
}

func (s *ProjectionService) build(ctx context.Context, display DisplaySettings) (*Projection, error) {
	items, err := s.items.ListAll(ctx, true)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	projected := make([]ProjectedItem, 0, len(items))
	for _, item := range items {
		entry := ProjectedItem{
			ID:           item.ID,
			Platform:     item.Platform,
			Label:        item.Label,
			ContactValue: item.ContactValue,
			Enabled:      item.Enabled,
			QRImageID:    item.QRImageID,
			SortOrder:    item.SortOrder,
			URL:          s.registry.URL(item.Platform, item.ContactValue),
			Icon:         s.assets.IconURL(s.registry.IconRef(item.Platform)),
			Color:        s.registry.Color(item.Platform),
		}
		if item.HasQR() && s.media != nil {
			if url, ok := s.media.ResolveImageURL(ctx, item.QRImageID); ok {
				entry.QRCodeURL = url
				entry.HasQR = true
			}
		}
		projected = append(projected, entry)
	}

	supportIcon := s.assets.SupportIcon()
	if display.CustomMainIcon != 0 && s.media != nil {
		if url, ok := s.media.ResolveImageURL(ctx, display.CustomMainIcon); ok {
			supportIcon = url
		}
	}

	return &Projection{
		Items:       projected,
		Settings:    display,
		SupportIcon: supportIcon,
		CancelIcon:  s.assets.CancelIcon(),
	}, nil
}

func (s *ProjectionService) fromCache(ctx context.Context, key string) (*Projection, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("read projection cache failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var projection *Projection
	if err := json.Unmarshal(data, &projection); err != nil {
		s.logger.Warn("decode projection cache failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return projection, true
}

func (s *ProjectionService) store(ctx context.Context, key string, projection *Projection) {
	if s.cache == nil {
		return
	}
	data := emptyProjectionMarker
	if projection != nil {
		encoded, err := json.Marshal(projection)
		if err != nil {
			s.logger.Warn("encode projection failed", zap.Error(err))
			return
		}
		data = encoded
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn("write projection cache failed", zap.String("key", key), zap.Error(err))
		return
	}

	s.mu.Lock()
	previous := s.lastKey
	s.lastKey = key
	s.mu.Unlock()

	if previous != "" && previous != key {
		if err := s.cache.Delete(ctx, previous); err != nil {
			s.logger.Warn("drop stale projection cache failed", zap.String("key", previous), zap.Error(err))
		}
	}
}
