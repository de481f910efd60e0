package db

import "time"

// MediaAttachment 记录上传到本地目录的二维码等图片资源。
type MediaAttachment struct {
	ID           uint   `gorm:"primaryKey"`
	FileName     string `gorm:"size:255;not null;uniqueIndex"`
	OriginalName string `gorm:"size:255"`
	MimeType     string `gorm:"size:50;not null"`
	Size         int64
	Width        int
	Height       int
	CreatedAt    time.Time
}

// TableName 返回自定义表名。
func (MediaAttachment) TableName() string {
	return "media_attachments"
}
