package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// stripTags 去除全部 HTML 标签并还原实体，保留原有空白。
func stripTags(value string) string {
	if value == "" {
		return ""
	}
	return html.UnescapeString(strictPolicy.Sanitize(value))
}

// sanitizeText 用于单行文本字段：去标签、合并空白并去掉首尾空格。
func sanitizeText(value string) string {
	cleaned := stripTags(value)
	return strings.Join(strings.Fields(cleaned), " ")
}

// SanitizeLabel 返回标签入库时的形式，调用方据此校验长度。
func SanitizeLabel(value string) string {
	return sanitizeText(value)
}
