package db

import "gorm.io/gorm"

// SystemSetting 存储后台可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyEnabled 表示是否启用聊天气泡。
	SettingKeyEnabled = "enabled"
	// SettingKeyAutoLoad 表示是否自动在前台页面加载。
	SettingKeyAutoLoad = "auto_load"
	// SettingKeyPosition 表示气泡在页面上的位置。
	SettingKeyPosition = "position"
	// SettingKeyMainButtonColor 表示主按钮颜色。
	SettingKeyMainButtonColor = "main_button_color"
	// SettingKeyAnimationEnabled 表示是否启用动画。
	SettingKeyAnimationEnabled = "animation_enabled"
	// SettingKeyShowLabels 表示是否展示条目标签。
	SettingKeyShowLabels = "show_labels"
	// SettingKeyCustomCSS 表示自定义样式。
	SettingKeyCustomCSS = "custom_css"
	// SettingKeyLoadOnMobile 表示移动端是否展示。
	SettingKeyLoadOnMobile = "load_on_mobile"
	// SettingKeyExcludePages 表示不加载气泡的页面 ID 列表（逗号分隔）。
	SettingKeyExcludePages = "exclude_pages"
	// SettingKeyCustomMainIcon 表示自定义主图标的媒体 ID。
	SettingKeyCustomMainIcon = "custom_main_icon"
	// SettingKeyDataVersion 是条目数据版本号，任何条目变更都会递增。
	SettingKeyDataVersion = "data_version"
	// SettingKeyLegacyMigrated 标记旧版配置是否已迁移。
	SettingKeyLegacyMigrated = "legacy_migrated"
	// SettingKeyLegacyBackup 保存迁移前的旧版配置原文。
	SettingKeyLegacyBackup = "legacy_options_backup"
)
