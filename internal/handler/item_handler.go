package handler

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/platform"
	"github.com/chatbubbles/internal/service"
	"github.com/gin-gonic/gin"
)

type itemRequest struct {
	ID           uint    `json:"id"`
	Platform     *string `json:"platform"`
	Label        *string `json:"label"`
	ContactValue *string `json:"contact_value"`
	QRImageID    *uint   `json:"qr_code_id"`
	Enabled      *bool   `json:"enabled"`
	SortOrder    *int    `json:"sort_order"`
}

func (r itemRequest) toInput() service.ItemInput {
	input := service.ItemInput{
		Enabled:   r.Enabled,
		SortOrder: r.SortOrder,
	}
	if r.Platform != nil {
		input.Platform = *r.Platform
	}
	if r.Label != nil {
		input.Label = *r.Label
	}
	if r.ContactValue != nil {
		input.ContactValue = *r.ContactValue
	}
	if r.QRImageID != nil {
		input.QRImageID = *r.QRImageID
	}
	return input
}

func (r itemRequest) toPatch() service.ItemPatch {
	return service.ItemPatch{
		Platform:     r.Platform,
		Label:        r.Label,
		ContactValue: r.ContactValue,
		QRImageID:    r.QRImageID,
		Enabled:      r.Enabled,
		SortOrder:    r.SortOrder,
	}
}

type reorderRequest struct {
	IDs []uint `json:"ids"`
}

// ListItems 返回后台管理用的全部条目
func (a *API) ListItems(c *gin.Context) {
	items, err := a.items.ListAll(c.Request.Context(), false)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "获取条目失败")
		return
	}

	payload := make([]gin.H, 0, len(items))
	for _, item := range items {
		payload = append(payload, a.itemPayload(c, item))
	}
	c.JSON(http.StatusOK, gin.H{"items": payload})
}

// SaveItem 没有 id 时新建条目，否则按传入字段更新
func (a *API) SaveItem(c *gin.Context) {
	var payload itemRequest
	if !bindJSON(c, &payload, "条目数据格式不正确") {
		return
	}

	if payload.Label != nil && !a.labelWithinPolicy(*payload.Label) {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("标签长度需在 %d-%d 个字符之间", a.labelMin, a.labelMax))
		return
	}

	ctx := c.Request.Context()
	if payload.ID == 0 {
		if payload.Label == nil {
			respondError(c, http.StatusBadRequest, "请填写标签")
			return
		}
		item, err := a.items.Create(ctx, payload.toInput())
		if err != nil {
			a.handleItemError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "已新增条目",
			"item":    a.itemPayload(c, *item),
		})
		return
	}

	item, err := a.items.Update(ctx, payload.ID, payload.toPatch())
	if err != nil {
		a.handleItemError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "条目已更新",
		"item":    a.itemPayload(c, *item),
	})
}

// DeleteItem 删除指定条目
func (a *API) DeleteItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的条目ID")
		return
	}

	if err := a.items.Delete(c.Request.Context(), id); err != nil {
		a.handleItemError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "条目已删除"})
}

// ReorderItems 更新排序
func (a *API) ReorderItems(c *gin.Context) {
	var payload reorderRequest
	if !bindJSON(c, &payload, "排序数据格式不正确") {
		return
	}
	if len(payload.IDs) == 0 {
		respondError(c, http.StatusBadRequest, "排序数据不能为空")
		return
	}
	if len(payload.IDs) > a.reorderLimit {
		respondError(c, http.StatusBadRequest, fmt.Sprintf("一次最多排序 %d 个条目", a.reorderLimit))
		return
	}

	if err := a.items.Reorder(c.Request.Context(), payload.IDs); err != nil {
		if errors.Is(err, service.ErrReorderPartial) {
			c.Error(err)
			c.JSON(http.StatusOK, gin.H{"message": "部分条目排序失败", "partial": true})
			return
		}
		a.handleItemError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "排序已更新"})
}

// ListPlatforms 返回平台目录，供后台表单渲染
func (a *API) ListPlatforms(c *gin.Context) {
	definitions := a.registry.List()
	payload := make([]gin.H, 0, len(definitions))
	for _, def := range definitions {
		payload = append(payload, gin.H{
			"key":           def.Key,
			"label":         def.Label,
			"contact_field": def.ContactField,
			"placeholder":   def.Placeholder,
			"pattern":       def.Pattern.String(),
			"color":         def.BrandColor,
			"icon":          a.assets.IconURL(def.IconRef),
		})
	}
	c.JSON(http.StatusOK, gin.H{"platforms": payload})
}

// labelWithinPolicy 按入库后的标签计算长度
func (a *API) labelWithinPolicy(label string) bool {
	length := utf8.RuneCountInString(service.SanitizeLabel(label))
	return length >= a.labelMin && length <= a.labelMax
}

func (a *API) itemPayload(c *gin.Context, item db.ChatItem) gin.H {
	payload := gin.H{
		"id":            item.ID,
		"platform":      item.Platform,
		"label":         item.Label,
		"contact_value": item.ContactValue,
		"enabled":       item.Enabled,
		"qr_code_id":    item.QRImageID,
		"sort_order":    item.SortOrder,
		"url":           a.registry.URL(item.Platform, item.ContactValue),
		"icon":          a.assets.IconURL(a.registry.IconRef(item.Platform)),
		"color":         a.registry.Color(item.Platform),
	}
	if item.HasQR() {
		if url, ok := a.media.ResolveImageURL(c.Request.Context(), item.QRImageID); ok {
			payload["qr_code_url"] = url
		}
	}
	return payload
}

func (a *API) handleItemError(c *gin.Context, err error) {
	var verr *platform.ValidationError
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		respondError(c, http.StatusNotFound, "条目不存在")
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "联系方式格式不正确",
			"field":  verr.Field,
			"reason": verr.Reason,
		})
	case errors.Is(err, service.ErrUnsupportedPlatform):
		respondError(c, http.StatusBadRequest, "不支持的平台")
	case errors.Is(err, service.ErrLabelLength):
		respondError(c, http.StatusBadRequest, "标签长度不符合要求")
	case errors.Is(err, service.ErrEmptyPatch):
		respondError(c, http.StatusBadRequest, "没有需要更新的字段")
	case service.IsValidationFailure(err):
		respondError(c, http.StatusBadRequest, "请填写完整的条目信息")
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "操作失败，请稍后再试")
	}
}
