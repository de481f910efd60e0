package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chatbubbles/internal/platform"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrLegacyAlreadyMigrated 表示旧版配置已经导入过
var ErrLegacyAlreadyMigrated = errors.New("legacy options already migrated")

// legacyFlag 兼容旧版配置中 true/"1"/1 等多种写法
type legacyFlag bool

func (f *legacyFlag) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	*f = legacyFlag(parseBoolSetting(raw, false))
	return nil
}

type legacyPlatform struct {
	Enabled  legacyFlag `json:"enabled"`
	Label    string     `json:"label"`
	Number   string     `json:"number"`
	Username string     `json:"username"`
	ID       string     `json:"id"`
}

func (p legacyPlatform) contact() string {
	for _, candidate := range []string{p.Number, p.Username, p.ID} {
		if value := strings.TrimSpace(candidate); value != "" {
			return value
		}
	}
	return ""
}

type legacyOptions struct {
	Platforms map[string]legacyPlatform `json:"platforms"`
}

// LegacyImportResult 汇总一次导入的结果
type LegacyImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped"`
}

// LegacyImporter 把旧版单一配置格式中的平台转换为条目，只执行一次。
// 条目沿用 ItemService 的校验规则。
type LegacyImporter struct {
	db       *gorm.DB
	items    *ItemService
	settings *WidgetSettingService
}

// NewLegacyImporter 构造 LegacyImporter
func NewLegacyImporter(gdb *gorm.DB, items *ItemService, settings *WidgetSettingService) *LegacyImporter {
	if items == nil {
		items = NewItemService(gdb, nil, nil)
	}
	return &LegacyImporter{db: gdb, items: items, settings: settings}
}

// Import 解析旧版配置并写入条目，成功后保存原文备份与迁移标记。
// 禁用、平台未知或未通过条目校验的平台会被跳过。
func (m *LegacyImporter) Import(ctx context.Context, raw []byte) (LegacyImportResult, error) {
	result := LegacyImportResult{Skipped: []string{}}

	migrated, err := m.settings.LegacyMigrated(ctx)
	if err != nil {
		return result, err
	}
	if migrated {
		return result, ErrLegacyAlreadyMigrated
	}

	var options legacyOptions
	if err := json.Unmarshal(raw, &options); err != nil {
		return result, fmt.Errorf("decode legacy options: %w", err)
	}

	for key := range options.Platforms {
		if !m.items.registry.Supported(key) {
			result.Skipped = append(result.Skipped, key)
		}
	}

	m.items.mu.Lock()
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sortOrder := 0
		// 按注册表顺序导入，保证排序稳定
		for _, key := range platform.Keys() {
			entry, ok := options.Platforms[string(key)]
			if !ok {
				continue
			}
			if !bool(entry.Enabled) {
				result.Skipped = append(result.Skipped, string(key))
				continue
			}

			item, err := m.items.prepareItem(ItemInput{
				Platform:     string(key),
				Label:        entry.Label,
				ContactValue: entry.contact(),
			})
			if err != nil {
				m.items.logger.Warn("skip legacy platform",
					zap.String("platform", string(key)),
					zap.Error(err),
				)
				result.Skipped = append(result.Skipped, string(key))
				continue
			}

			sortOrder++
			item.SortOrder = sortOrder
			if err := createItemInTx(tx, &item); err != nil {
				return fmt.Errorf("import legacy platform %s: %w", key, err)
			}
			result.Imported++
		}
		return nil
	})
	m.items.mu.Unlock()
	if err != nil {
		return LegacyImportResult{Skipped: []string{}}, err
	}

	sort.Strings(result.Skipped)

	if err := m.settings.MarkLegacyMigrated(ctx, string(raw)); err != nil {
		return result, err
	}
	if result.Imported > 0 {
		if err := m.settings.BumpDataVersion(ctx); err != nil {
			return result, err
		}
	}
	return result, nil
}
