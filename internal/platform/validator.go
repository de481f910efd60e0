package platform

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxContactLength 是联系方式允许的最大字符数。
const MaxContactLength = 100

// 校验失败原因。
const (
	ReasonRequired            = "required"
	ReasonUnsupportedPlatform = "unsupported_platform"
	ReasonTooLong             = "too_long"
	ReasonUnsafeContent       = "unsafe_content"
	ReasonPatternMismatch     = "pattern_mismatch"
)

// unsafeSignals 在格式匹配之前检查，对所有平台一视同仁。
var unsafeSignals = []string{
	"<script",
	"javascript:",
	"vbscript:",
	"onload=",
	"onerror=",
	"onclick=",
	"onmouseover=",
	"expression(",
}

// ValidationError 描述联系方式未通过校验的字段与原因。
type ValidationError struct {
	Field    string
	Platform string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Platform == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s (%s): %s", e.Field, e.Platform, e.Reason)
}

// Validate 判断联系方式是否符合平台要求，无副作用。
func (r *Registry) Validate(key, value string) bool {
	return r.Check(key, value) == nil
}

// Check 与 Validate 规则一致，但返回具体的失败原因。
func (r *Registry) Check(key, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return &ValidationError{Field: "contact_value", Platform: key, Reason: ReasonRequired}
	}

	def, ok := r.Get(key)
	if !ok {
		return &ValidationError{Field: "platform", Platform: key, Reason: ReasonUnsupportedPlatform}
	}

	if utf8.RuneCountInString(value) > MaxContactLength {
		return &ValidationError{Field: "contact_value", Platform: key, Reason: ReasonTooLong}
	}

	if containsUnsafeSignal(value) {
		return &ValidationError{Field: "contact_value", Platform: key, Reason: ReasonUnsafeContent}
	}

	if !def.Pattern.MatchString(trimmed) {
		return &ValidationError{Field: "contact_value", Platform: key, Reason: ReasonPatternMismatch}
	}

	return nil
}

func containsUnsafeSignal(value string) bool {
	lowered := strings.ToLower(value)
	for _, signal := range unsafeSignals {
		if strings.Contains(lowered, signal) {
			return true
		}
	}
	return false
}
