package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/platform"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrItemNotFound 在指定条目不存在时返回
	ErrItemNotFound = errors.New("chat item not found")
	// ErrItemInvalidInput 在必填字段缺失等输入不完整时返回
	ErrItemInvalidInput = errors.New("invalid chat item input")
	// ErrUnsupportedPlatform 表示平台不在注册表中
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	// ErrInvalidContactValue 表示联系方式未通过平台校验
	ErrInvalidContactValue = errors.New("invalid contact value")
	// ErrLabelLength 表示标签长度超出允许范围
	ErrLabelLength = errors.New("label length out of range")
	// ErrEmptyPatch 表示更新请求中没有任何可修改的字段
	ErrEmptyPatch = errors.New("nothing to update")
	// ErrReorderPartial 表示排序时有部分条目更新失败
	ErrReorderPartial = errors.New("reorder partially failed")
)

// IsValidationFailure 判断错误是否属于输入校验失败。
func IsValidationFailure(err error) bool {
	return errors.Is(err, ErrItemInvalidInput) ||
		errors.Is(err, ErrUnsupportedPlatform) ||
		errors.Is(err, ErrInvalidContactValue) ||
		errors.Is(err, ErrLabelLength) ||
		errors.Is(err, ErrEmptyPatch)
}

// 存储层的标签长度限制，后台接口会另行收紧。
const (
	DefaultLabelMin = 2
	DefaultLabelMax = 255
)

// ItemInput 描述新建条目时的字段
// Enabled/SortOrder 使用指针判断是否显式传入
type ItemInput struct {
	Platform     string
	Label        string
	ContactValue string
	QRImageID    uint
	Enabled      *bool
	SortOrder    *int
}

// ItemPatch 描述部分更新，nil 字段保持不变。
// Platform 创建后不可修改，传入时会被忽略。
type ItemPatch struct {
	Platform     *string
	Label        *string
	ContactValue *string
	QRImageID    *uint
	Enabled      *bool
	SortOrder    *int
}

// ItemOption 用于定制 ItemService。
type ItemOption func(*ItemService)

// WithLabelPolicy 设置标签长度范围（按字符计）。
func WithLabelPolicy(min, max int) ItemOption {
	return func(s *ItemService) {
		if min > 0 {
			s.labelMin = min
		}
		if max >= s.labelMin {
			s.labelMax = max
		}
	}
}

// WithLogger 设置日志记录器。
func WithLogger(logger *zap.Logger) ItemOption {
	return func(s *ItemService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithVersionBumper 设置条目变更后的回调，用于递增数据版本。
func WithVersionBumper(fn func(ctx context.Context) error) ItemOption {
	return func(s *ItemService) {
		s.bump = fn
	}
}

// ItemService 负责聊天气泡条目的持久化
// 写操作串行执行，排序值在事务中计算
type ItemService struct {
	db       *gorm.DB
	registry *platform.Registry
	media    MediaCollaborator
	logger   *zap.Logger
	bump     func(ctx context.Context) error
	labelMin int
	labelMax int

	mu sync.Mutex
}

// NewItemService 构造 ItemService，media 可以为 nil
func NewItemService(gdb *gorm.DB, registry *platform.Registry, media MediaCollaborator, opts ...ItemOption) *ItemService {
	if registry == nil {
		registry = platform.NewRegistry()
	}
	svc := &ItemService{
		db:       gdb,
		registry: registry,
		media:    media,
		logger:   zap.NewNop(),
		labelMin: DefaultLabelMin,
		labelMax: DefaultLabelMax,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Registry 返回服务使用的平台注册表。
func (s *ItemService) Registry() *platform.Registry {
	return s.registry
}

// ListAll 返回条目列表，按 sort_order、id 升序
func (s *ItemService) ListAll(ctx context.Context, enabledOnly bool) ([]db.ChatItem, error) {
	query := s.db.WithContext(ctx).Model(&db.ChatItem{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}

	var items []db.ChatItem
	if err := query.Order("sort_order ASC, id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list chat items: %w", err)
	}
	return items, nil
}

// Get 根据主键获取条目
func (s *ItemService) Get(ctx context.Context, id uint) (*db.ChatItem, error) {
	if id == 0 {
		return nil, ErrItemNotFound
	}
	var item db.ChatItem
	if err := s.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get chat item: %w", err)
	}
	return &item, nil
}

// Create 新建条目，未指定排序时追加到末尾
func (s *ItemService) Create(ctx context.Context, input ItemInput) (*db.ChatItem, error) {
	item, err := s.prepareItem(input)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.SortOrder != nil {
			item.SortOrder = *input.SortOrder
		} else {
			next, err := nextItemSortOrder(tx)
			if err != nil {
				return err
			}
			item.SortOrder = next
		}
		return createItemInTx(tx, &item)
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, "create", item.ID)
	return &item, nil
}

// prepareItem 校验并规范化新建条目的字段，不访问数据库。
func (s *ItemService) prepareItem(input ItemInput) (db.ChatItem, error) {
	platformKey := strings.ToLower(strings.TrimSpace(input.Platform))
	label := sanitizeText(input.Label)
	contact := strings.TrimSpace(input.ContactValue)

	if platformKey == "" {
		return db.ChatItem{}, fmt.Errorf("%w: platform is required", ErrItemInvalidInput)
	}
	if label == "" {
		return db.ChatItem{}, fmt.Errorf("%w: label is required", ErrItemInvalidInput)
	}
	if contact == "" {
		return db.ChatItem{}, fmt.Errorf("%w: contact value is required", ErrItemInvalidInput)
	}
	if !s.registry.Supported(platformKey) {
		return db.ChatItem{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, platformKey)
	}
	if err := s.checkContact(platformKey, input.ContactValue); err != nil {
		return db.ChatItem{}, err
	}
	if err := s.checkLabel(label); err != nil {
		return db.ChatItem{}, err
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	return db.ChatItem{
		Platform:     platformKey,
		Enabled:      enabled,
		Label:        label,
		ContactValue: contact,
		QRImageID:    input.QRImageID,
	}, nil
}

func createItemInTx(tx *gorm.DB, item *db.ChatItem) error {
	if err := tx.Create(item).Error; err != nil {
		return fmt.Errorf("create chat item: %w", err)
	}
	return nil
}

// Update 按补丁更新条目，只修改显式传入的字段
func (s *ItemService) Update(ctx context.Context, id uint, patch ItemPatch) (*db.ChatItem, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Platform != nil && !strings.EqualFold(strings.TrimSpace(*patch.Platform), existing.Platform) {
		s.logger.Debug("ignoring platform change on update",
			zap.Uint("item_id", id),
			zap.String("platform", existing.Platform),
			zap.String("requested", *patch.Platform),
		)
	}

	updates := map[string]interface{}{}

	if patch.Label != nil {
		label := sanitizeText(*patch.Label)
		if label == "" {
			return nil, fmt.Errorf("%w: label is required", ErrItemInvalidInput)
		}
		if err := s.checkLabel(label); err != nil {
			return nil, err
		}
		updates["label"] = label
	}
	if patch.ContactValue != nil {
		contact := strings.TrimSpace(*patch.ContactValue)
		if contact == "" {
			return nil, fmt.Errorf("%w: contact value is required", ErrItemInvalidInput)
		}
		if err := s.checkContact(existing.Platform, *patch.ContactValue); err != nil {
			return nil, err
		}
		updates["contact_value"] = contact
	}
	if patch.QRImageID != nil {
		updates["qr_code_id"] = *patch.QRImageID
	}
	if patch.Enabled != nil {
		updates["enabled"] = *patch.Enabled
	}
	if patch.SortOrder != nil {
		updates["sort_order"] = *patch.SortOrder
	}

	if len(updates) == 0 {
		return nil, ErrEmptyPatch
	}

	s.mu.Lock()
	result := s.db.WithContext(ctx).Model(&db.ChatItem{}).Where("id = ?", id).Updates(updates)
	s.mu.Unlock()
	if result.Error != nil {
		return nil, fmt.Errorf("update chat item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrItemNotFound
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, "update", id)
	return updated, nil
}

// Delete 删除条目，先释放关联的二维码图片，再删除记录
// 图片释放失败只记录日志，不影响删除结果
func (s *ItemService) Delete(ctx context.Context, id uint) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if item.HasQR() && s.media != nil {
		if err := s.media.ReleaseImage(ctx, item.QRImageID); err != nil {
			s.logger.Warn("release qr image failed",
				zap.Uint("item_id", id),
				zap.Uint("attachment_id", item.QRImageID),
				zap.Error(err),
			)
		}
	}

	s.mu.Lock()
	result := s.db.WithContext(ctx).Delete(&db.ChatItem{}, id)
	s.mu.Unlock()
	if result.Error != nil {
		return fmt.Errorf("delete chat item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	s.afterMutation(ctx, "delete", id)
	return nil
}

// Reorder 按给定顺序依次赋值 1,2,3...
// 不存在的 ID 会被忽略，单条失败不会回滚其他条目
func (s *ItemService) Reorder(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: item ids are required", ErrItemInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, id := range ids {
			if err := tx.Model(&db.ChatItem{}).Where("id = ?", id).Update("sort_order", index+1).Error; err != nil {
				s.logger.Warn("reorder chat item failed", zap.Uint("item_id", id), zap.Error(err))
				failed = append(failed, id)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reorder chat items: %w", err)
	}

	s.afterMutation(ctx, "reorder", 0)

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d of %d items", ErrReorderPartial, len(failed), len(ids))
	}
	return nil
}

func (s *ItemService) checkContact(platformKey, value string) error {
	if err := s.registry.Check(platformKey, value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContactValue, err)
	}
	return nil
}

func (s *ItemService) checkLabel(label string) error {
	length := utf8.RuneCountInString(label)
	if length < s.labelMin || length > s.labelMax {
		return fmt.Errorf("%w: must be between %d and %d characters", ErrLabelLength, s.labelMin, s.labelMax)
	}
	return nil
}

func (s *ItemService) afterMutation(ctx context.Context, action string, id uint) {
	if s.bump == nil {
		return
	}
	if err := s.bump(ctx); err != nil {
		s.logger.Warn("bump data version failed",
			zap.String("action", action),
			zap.Uint("item_id", id),
			zap.Error(err),
		)
	}
}

func nextItemSortOrder(tx *gorm.DB) (int, error) {
	var maxSort int
	if err := tx.Model(&db.ChatItem{}).Select("COALESCE(MAX(sort_order), 0)").Scan(&maxSort).Error; err != nil {
		return 0, fmt.Errorf("resolve chat item sort order: %w", err)
	}
	return maxSort + 1, nil
}
