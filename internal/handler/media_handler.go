package handler

import (
	"errors"
	"net/http"

	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/service"
	"github.com/gin-gonic/gin"
)

// UploadAttachment 处理二维码图片上传请求
func (a *API) UploadAttachment(c *gin.Context) {
	// 获取上传的文件
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}
	if file.Size > service.MaxAttachmentSize {
		respondError(c, http.StatusBadRequest, "图片不能超过 2MB")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}
	defer src.Close()

	attachment, err := a.media.SaveImage(c.Request.Context(), service.ImageUpload{
		OriginalName: file.Filename,
		Body:         src,
	})
	if err != nil {
		a.handleAttachmentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "上传成功",
		"attachment": a.attachmentPayload(attachment),
	})
}

// GetAttachment 返回附件地址，用于后台预览二维码
func (a *API) GetAttachment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的附件ID")
		return
	}

	attachment, err := a.media.Get(c.Request.Context(), id)
	if err != nil {
		a.handleAttachmentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachment": a.attachmentPayload(attachment)})
}

func (a *API) attachmentPayload(attachment *db.MediaAttachment) gin.H {
	return gin.H{
		"id":        attachment.ID,
		"url":       a.media.URL(attachment),
		"mime_type": attachment.MimeType,
		"size":      attachment.Size,
		"width":     attachment.Width,
		"height":    attachment.Height,
	}
}

func (a *API) handleAttachmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttachmentNotFound):
		respondError(c, http.StatusNotFound, "附件不存在")
	case errors.Is(err, service.ErrAttachmentTooLarge):
		respondError(c, http.StatusBadRequest, "图片不能超过 2MB")
	case errors.Is(err, service.ErrAttachmentType):
		respondError(c, http.StatusBadRequest, "只允许上传 JPG、PNG、GIF 或 WebP 图片")
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "保存文件失败")
	}
}
