package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/platform"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 气泡可选位置
const (
	PositionBottomRight = "bottom-right"
	PositionBottomLeft  = "bottom-left"
	PositionTopRight    = "top-right"
	PositionTopLeft     = "top-left"
)

var validPositions = map[string]bool{
	PositionBottomRight: true,
	PositionBottomLeft:  true,
	PositionTopRight:    true,
	PositionTopLeft:     true,
}

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// WidgetSettings 描述聊天气泡的全局展示配置。
type WidgetSettings struct {
	Enabled          bool   `json:"enabled"`
	AutoLoad         bool   `json:"auto_load"`
	Position         string `json:"position"`
	MainButtonColor  string `json:"main_button_color"`
	AnimationEnabled bool   `json:"animation_enabled"`
	ShowLabels       bool   `json:"show_labels"`
	CustomCSS        string `json:"custom_css"`
	LoadOnMobile     bool   `json:"load_on_mobile"`
	ExcludePages     []int  `json:"exclude_pages"`
	CustomMainIcon   uint   `json:"custom_main_icon"`
}

// DefaultWidgetSettings 返回未做任何配置时的默认值。
func DefaultWidgetSettings() WidgetSettings {
	return WidgetSettings{
		Enabled:          true,
		AutoLoad:         true,
		Position:         PositionBottomRight,
		MainButtonColor:  platform.DefaultColor,
		AnimationEnabled: true,
		ShowLabels:       true,
		LoadOnMobile:     true,
		ExcludePages:     []int{},
	}
}

// DisplaySettings 是前台渲染需要的配置子集。
type DisplaySettings struct {
	Position         string `json:"position"`
	MainButtonColor  string `json:"main_button_color"`
	AnimationEnabled bool   `json:"animation_enabled"`
	ShowLabels       bool   `json:"show_labels"`
	CustomMainIcon   uint   `json:"custom_main_icon"`
}

// Display 提取展示相关字段
func (w WidgetSettings) Display() DisplaySettings {
	return DisplaySettings{
		Position:         w.Position,
		MainButtonColor:  w.MainButtonColor,
		AnimationEnabled: w.AnimationEnabled,
		ShowLabels:       w.ShowLabels,
		CustomMainIcon:   w.CustomMainIcon,
	}
}

// Hash 返回展示配置的短摘要，用于缓存键。
func (d DisplaySettings) Hash() string {
	raw := strings.Join([]string{
		d.Position,
		d.MainButtonColor,
		strconv.FormatBool(d.AnimationEnabled),
		strconv.FormatBool(d.ShowLabels),
		strconv.FormatUint(uint64(d.CustomMainIcon), 10),
	}, "|")
	sum := md5.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:8]
}

// ShouldLoadOnPage 判断指定页面是否加载气泡，pageID 为 0 表示非页面请求。
func (w WidgetSettings) ShouldLoadOnPage(pageID int, mobile bool) bool {
	if !w.Enabled || !w.AutoLoad {
		return false
	}
	if mobile && !w.LoadOnMobile {
		return false
	}
	if pageID > 0 {
		for _, excluded := range w.ExcludePages {
			if excluded == pageID {
				return false
			}
		}
	}
	return true
}

// WidgetSettingsInput 用于部分更新设置，nil 字段保持不变。
type WidgetSettingsInput struct {
	Enabled          *bool   `json:"enabled"`
	AutoLoad         *bool   `json:"auto_load"`
	Position         *string `json:"position"`
	MainButtonColor  *string `json:"main_button_color"`
	AnimationEnabled *bool   `json:"animation_enabled"`
	ShowLabels       *bool   `json:"show_labels"`
	CustomCSS        *string `json:"custom_css"`
	LoadOnMobile     *bool   `json:"load_on_mobile"`
	ExcludePages     *[]int  `json:"exclude_pages"`
	CustomMainIcon   *uint   `json:"custom_main_icon"`
}

var widgetSettingKeys = []string{
	db.SettingKeyEnabled,
	db.SettingKeyAutoLoad,
	db.SettingKeyPosition,
	db.SettingKeyMainButtonColor,
	db.SettingKeyAnimationEnabled,
	db.SettingKeyShowLabels,
	db.SettingKeyCustomCSS,
	db.SettingKeyLoadOnMobile,
	db.SettingKeyExcludePages,
	db.SettingKeyCustomMainIcon,
}

// WidgetSettingService 提供气泡设置、数据版本号及迁移标记的读写。
type WidgetSettingService struct {
	db *gorm.DB

	versionMu sync.Mutex
}

// NewWidgetSettingService 构造 WidgetSettingService。
func NewWidgetSettingService(gdb *gorm.DB) *WidgetSettingService {
	return &WidgetSettingService{db: gdb}
}

// GetSettings 读取设置，缺失或非法的值回退为默认值。
func (s *WidgetSettingService) GetSettings(ctx context.Context) (WidgetSettings, error) {
	result := DefaultWidgetSettings()

	var records []db.SystemSetting
	if err := s.db.WithContext(ctx).Where("key IN ?", widgetSettingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load widget settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		switch record.Key {
		case db.SettingKeyEnabled:
			result.Enabled = parseBoolSetting(value, result.Enabled)
		case db.SettingKeyAutoLoad:
			result.AutoLoad = parseBoolSetting(value, result.AutoLoad)
		case db.SettingKeyPosition:
			result.Position = normalizePosition(value)
		case db.SettingKeyMainButtonColor:
			result.MainButtonColor = normalizeHexColor(value)
		case db.SettingKeyAnimationEnabled:
			result.AnimationEnabled = parseBoolSetting(value, result.AnimationEnabled)
		case db.SettingKeyShowLabels:
			result.ShowLabels = parseBoolSetting(value, result.ShowLabels)
		case db.SettingKeyCustomCSS:
			result.CustomCSS = record.Value
		case db.SettingKeyLoadOnMobile:
			result.LoadOnMobile = parseBoolSetting(value, result.LoadOnMobile)
		case db.SettingKeyExcludePages:
			result.ExcludePages = parsePageList(value)
		case db.SettingKeyCustomMainIcon:
			if id, err := strconv.ParseUint(value, 10, 64); err == nil {
				result.CustomMainIcon = uint(id)
			}
		}
	}

	return result, nil
}

// UpdateSettings 合并并清洗输入后写入数据库，返回更新后的完整设置。
func (s *WidgetSettingService) UpdateSettings(ctx context.Context, input WidgetSettingsInput) (WidgetSettings, error) {
	current, err := s.GetSettings(ctx)
	if err != nil {
		return current, err
	}

	next := current
	if input.Enabled != nil {
		next.Enabled = *input.Enabled
	}
	if input.AutoLoad != nil {
		next.AutoLoad = *input.AutoLoad
	}
	if input.Position != nil {
		next.Position = normalizePosition(*input.Position)
	}
	if input.MainButtonColor != nil {
		next.MainButtonColor = normalizeHexColor(*input.MainButtonColor)
	}
	if input.AnimationEnabled != nil {
		next.AnimationEnabled = *input.AnimationEnabled
	}
	if input.ShowLabels != nil {
		next.ShowLabels = *input.ShowLabels
	}
	if input.CustomCSS != nil {
		next.CustomCSS = strings.TrimSpace(stripTags(*input.CustomCSS))
	}
	if input.LoadOnMobile != nil {
		next.LoadOnMobile = *input.LoadOnMobile
	}
	if input.ExcludePages != nil {
		next.ExcludePages = normalizePageList(*input.ExcludePages)
	}
	if input.CustomMainIcon != nil {
		next.CustomMainIcon = *input.CustomMainIcon
	}

	values := map[string]string{
		db.SettingKeyEnabled:          strconv.FormatBool(next.Enabled),
		db.SettingKeyAutoLoad:         strconv.FormatBool(next.AutoLoad),
		db.SettingKeyPosition:         next.Position,
		db.SettingKeyMainButtonColor:  next.MainButtonColor,
		db.SettingKeyAnimationEnabled: strconv.FormatBool(next.AnimationEnabled),
		db.SettingKeyShowLabels:       strconv.FormatBool(next.ShowLabels),
		db.SettingKeyCustomCSS:        next.CustomCSS,
		db.SettingKeyLoadOnMobile:     strconv.FormatBool(next.LoadOnMobile),
		db.SettingKeyExcludePages:     formatPageList(next.ExcludePages),
		db.SettingKeyCustomMainIcon:   strconv.FormatUint(uint64(next.CustomMainIcon), 10),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range widgetSettingKeys {
			if err := upsertSetting(tx, key, values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return current, err
	}

	return next, nil
}

// DataVersion 返回当前条目数据版本号，未初始化时为 1。
func (s *WidgetSettingService) DataVersion(ctx context.Context) (int64, error) {
	value, ok, err := s.getValue(ctx, db.SettingKeyDataVersion)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	version, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || version < 1 {
		return 1, nil
	}
	return version, nil
}

// BumpDataVersion 递增条目数据版本号，使前台缓存失效。
func (s *WidgetSettingService) BumpDataVersion(ctx context.Context) error {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()

	current, err := s.DataVersion(ctx)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertSetting(tx, db.SettingKeyDataVersion, strconv.FormatInt(current+1, 10))
	})
}

// LegacyMigrated 返回旧版配置是否已经迁移。
func (s *WidgetSettingService) LegacyMigrated(ctx context.Context) (bool, error) {
	value, ok, err := s.getValue(ctx, db.SettingKeyLegacyMigrated)
	if err != nil || !ok {
		return false, err
	}
	return parseBoolSetting(value, false), nil
}

// MarkLegacyMigrated 保存旧版配置备份并写入迁移标记。
func (s *WidgetSettingService) MarkLegacyMigrated(ctx context.Context, backup string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeyLegacyBackup, backup); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyLegacyMigrated, "true")
	})
}

func (s *WidgetSettingService) getValue(ctx context.Context, key string) (string, bool, error) {
	var record db.SystemSetting
	if err := s.db.WithContext(ctx).Where("key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("load setting %s: %w", key, err)
	}
	return record.Value, true, nil
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func parseBoolSetting(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off", "":
		return false
	}
	return fallback
}

func normalizePosition(value string) string {
	position := strings.ToLower(strings.TrimSpace(value))
	if validPositions[position] {
		return position
	}
	return PositionBottomRight
}

func normalizeHexColor(value string) string {
	color := strings.TrimSpace(value)
	if hexColorPattern.MatchString(color) {
		return color
	}
	return platform.DefaultColor
}

func normalizePageList(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func parsePageList(value string) []int {
	if value == "" {
		return []int{}
	}
	var ids []int
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return normalizePageList(ids)
}

func formatPageList(ids []int) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}
