package db

import "time"

// ChatItem 是聊天气泡中的一个联系渠道。
// Platform 创建后不可修改；QRImageID 为 0 表示没有二维码；
// SortOrder 越小越靠前，相同时按 ID 升序。
type ChatItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Platform     string    `gorm:"size:20;not null;index" json:"platform"`
	Enabled      bool      `gorm:"index" json:"enabled"`
	Label        string    `gorm:"size:255;not null" json:"label"`
	ContactValue string    `gorm:"size:255;not null" json:"contact_value"`
	QRImageID    uint      `gorm:"column:qr_code_id;default:0" json:"qr_code_id"`
	SortOrder    int       `gorm:"index" json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 返回自定义表名，与插件原有表保持一致
func (ChatItem) TableName() string {
	return "chat_bubble_items"
}

// HasQR 表示条目是否关联了二维码图片。
func (i ChatItem) HasQR() bool {
	return i.QRImageID != 0
}
