package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chatbubbles/internal/db"
	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

// MaxAttachmentSize 是二维码图片允许的最大字节数。
const MaxAttachmentSize = 2 << 20

var (
	// ErrAttachmentNotFound 在附件不存在时返回
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrAttachmentTooLarge 表示上传文件超过大小限制
	ErrAttachmentTooLarge = errors.New("attachment too large")
	// ErrAttachmentType 表示上传文件不是允许的图片格式
	ErrAttachmentType = errors.New("attachment must be a jpeg, png, gif or webp image")
)

// MediaCollaborator 是条目存储依赖的媒体能力，
// 仅用于释放和解析二维码图片。
type MediaCollaborator interface {
	ReleaseImage(ctx context.Context, ref uint) error
	ResolveImageURL(ctx context.Context, ref uint) (string, bool)
}

// 解码格式到 MIME 类型与扩展名的映射
var imageFormats = map[string]struct {
	mime string
	ext  string
}{
	"jpeg": {mime: "image/jpeg", ext: ".jpg"},
	"png":  {mime: "image/png", ext: ".png"},
	"gif":  {mime: "image/gif", ext: ".gif"},
	"webp": {mime: "image/webp", ext: ".webp"},
}

// ImageUpload 描述一次图片上传
type ImageUpload struct {
	OriginalName string
	Body         io.Reader
}

// LocalMediaService 把图片保存在本地目录，并在数据库中记录元数据。
type LocalMediaService struct {
	db        *gorm.DB
	uploadDir string
	urlPrefix string
	maxSize   int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewLocalMediaService 构造 LocalMediaService
// urlPrefix 是对外访问上传目录的路径，例如 /uploads
func NewLocalMediaService(gdb *gorm.DB, uploadDir, urlPrefix string, logger *zap.Logger) *LocalMediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalMediaService{
		db:        gdb,
		uploadDir: uploadDir,
		urlPrefix: "/" + strings.Trim(strings.TrimSpace(urlPrefix), "/"),
		maxSize:   MaxAttachmentSize,
		logger:    logger,
		now:       time.Now,
	}
}

// SaveImage 校验并保存一张图片，返回新建的附件记录
func (s *LocalMediaService) SaveImage(ctx context.Context, upload ImageUpload) (*db.MediaAttachment, error) {
	if upload.Body == nil {
		return nil, ErrAttachmentType
	}

	data, err := io.ReadAll(io.LimitReader(upload.Body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrAttachmentTooLarge
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, ErrAttachmentType
	}
	kind, ok := imageFormats[format]
	if !ok {
		return nil, ErrAttachmentType
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s%s", s.now().Format("20060102"), uuid.New().String(), kind.ext)
	filePath := filepath.Join(s.uploadDir, fileName)
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	attachment := db.MediaAttachment{
		FileName:     fileName,
		OriginalName: sanitizeText(filepath.Base(upload.OriginalName)),
		MimeType:     kind.mime,
		Size:         int64(len(data)),
		Width:        cfg.Width,
		Height:       cfg.Height,
	}
	if err := s.db.WithContext(ctx).Create(&attachment).Error; err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("create attachment: %w", err)
	}

	return &attachment, nil
}

// Get 返回附件记录
func (s *LocalMediaService) Get(ctx context.Context, ref uint) (*db.MediaAttachment, error) {
	if ref == 0 {
		return nil, ErrAttachmentNotFound
	}
	var attachment db.MediaAttachment
	if err := s.db.WithContext(ctx).First(&attachment, ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return &attachment, nil
}

// URL 返回附件的公开地址
func (s *LocalMediaService) URL(attachment *db.MediaAttachment) string {
	return path.Join(s.urlPrefix, attachment.FileName)
}

// ResolveImageURL 实现 MediaCollaborator
func (s *LocalMediaService) ResolveImageURL(ctx context.Context, ref uint) (string, bool) {
	if ref == 0 {
		return "", false
	}
	attachment, err := s.Get(ctx, ref)
	if err != nil {
		if !errors.Is(err, ErrAttachmentNotFound) {
			s.logger.Warn("resolve attachment failed", zap.Uint("attachment_id", ref), zap.Error(err))
		}
		return "", false
	}
	return s.URL(attachment), true
}

// ReleaseImage 删除附件文件及记录，ref 为 0 时不做任何事
func (s *LocalMediaService) ReleaseImage(ctx context.Context, ref uint) error {
	if ref == 0 {
		return nil
	}
	attachment, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}

	filePath := filepath.Join(s.uploadDir, attachment.FileName)
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove attachment file: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&db.MediaAttachment{}, ref).Error; err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
