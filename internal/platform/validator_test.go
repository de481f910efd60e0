package platform

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAcceptsPlatformFormats(t *testing.T) {
	registry := NewRegistry()

	tests := map[string][]string{
		"phone":     {"+1234567890", "1234567890", "+1 (234) 567-890", "123-456-7890"},
		"zalo":      {"0123456789", "123456789", "01234567890"},
		"whatsapp":  {"1234567890", "+1234567890", "12345678901234"},
		"viber":     {"+1234567890", "(012) 345 6789"},
		"telegram":  {"username", "user_name", "Username123", "a12345", "abcde"},
		"messenger": {"username", "user.name", "Username123", "a"},
		"line":      {"lineid", "my.line-id_1"},
		"kakaotalk": {"kakao_id", "kakao-id-2"},
	}

	for key, values := range tests {
		for _, value := range values {
			if !registry.Validate(key, value) {
				t.Errorf("expected %s value %q to be valid", key, value)
			}
		}
	}
}

func TestValidateRejectsPlatformFormats(t *testing.T) {
	registry := NewRegistry()

	tests := map[string][]string{
		"phone":     {"123", "abcdefghij", "<script>alert(1)</script>"},
		"zalo":      {"12345678", "123456789012", "+1234567890", "abcdefghi"},
		"whatsapp":  {"123456", "0123456789"},
		"telegram":  {"usr", "1username", "_username", "1abcde"},
		"messenger": {".username", "user name"},
		"line":      {"line id", strings.Repeat("a", 51)},
		"kakaotalk": {"kakao.id"},
	}

	for key, values := range tests {
		for _, value := range values {
			if registry.Validate(key, value) {
				t.Errorf("expected %s value %q to be invalid", key, value)
			}
		}
	}
}

func TestValidateEmptyValue(t *testing.T) {
	registry := NewRegistry()
	for _, key := range Keys() {
		if registry.Validate(string(key), "") {
			t.Errorf("empty value should be invalid for %s", key)
		}
		if registry.Validate(string(key), "   ") {
			t.Errorf("blank value should be invalid for %s", key)
		}
	}
}

func TestValidateUnknownPlatform(t *testing.T) {
	registry := NewRegistry()
	if registry.Validate("unknown_platform", "1234567890") {
		t.Fatal("unknown platform should be rejected")
	}

	err := registry.Check("unknown_platform", "1234567890")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "platform" || verr.Reason != ReasonUnsupportedPlatform {
		t.Fatalf("unexpected validation error: %#v", verr)
	}
}

func TestValidateTooLong(t *testing.T) {
	registry := NewRegistry()
	long := strings.Repeat("1", 101)

	err := registry.Check("phone", long)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonTooLong {
		t.Fatalf("expected too_long error, got %v", err)
	}
}

func TestValidateRejectsUnsafeContent(t *testing.T) {
	registry := NewRegistry()
	attempts := []string{
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"onload=alert(1)",
		"onerror=alert(1)",
		"onclick=alert(1)",
		"onmouseover=alert(1)",
		"expression(alert(1))",
		"vbscript:alert(1)",
		"JavaScript:alert(1)",
	}

	for _, attempt := range attempts {
		for _, key := range Keys() {
			if registry.Validate(string(key), attempt) {
				t.Errorf("expected %q to be rejected for %s", attempt, key)
			}
		}
	}

	err := registry.Check("line", "onclick=x")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Reason != ReasonUnsafeContent {
		t.Fatalf("expected unsafe_content before pattern check, got %v", err)
	}
}

func TestValidateTrimsBeforePatternMatch(t *testing.T) {
	registry := NewRegistry()
	if !registry.Validate("telegram", "  username  ") {
		t.Fatal("expected surrounding whitespace to be ignored")
	}
}
