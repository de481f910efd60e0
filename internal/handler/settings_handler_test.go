package handler

import (
	"net/http"
	"testing"

	"github.com/chatbubbles/internal/view"
)

func TestSettingsRoundTrip(t *testing.T) {
	env := newHandlerTestEnv(t, Options{})

	w := env.do(t, http.MethodGet, "/admin/api/settings", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decodeBody(t, w)
	settings := body["settings"].(map[string]interface{})
	if settings["position"] != "bottom-right" || body["data_version"] != float64(1) {
		t.Fatalf("unexpected defaults: %v", body)
	}

	w = env.do(t, http.MethodPut, "/admin/api/settings", map[string]interface{}{
		"position":          "top-left",
		"main_button_color": "#123456",
		"custom_css":        "<i>.x{}</i>",
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	settings = decodeBody(t, w)["settings"].(map[string]interface{})
	if settings["position"] != "top-left" || settings["main_button_color"] != "#123456" || settings["custom_css"] != ".x{}" {
		t.Fatalf("unexpected saved settings: %v", settings)
	}

	createTestItem(t, env, map[string]interface{}{"platform": "viber", "label": "Viber", "contact_value": "+84901234567"})
	w = env.do(t, http.MethodGet, "/admin/api/settings", nil, true)
	if decodeBody(t, w)["data_version"] != float64(2) {
		t.Fatalf("expected item creation to bump data version: %s", w.Body.String())
	}

	w = env.do(t, http.MethodPut, "/admin/api/settings", "not an object", true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestListIcons(t *testing.T) {
	env := newHandlerTestEnv(t, Options{Assets: view.NewAssets("https://cdn.example.com/widget")})

	if w := env.do(t, http.MethodGet, "/admin/api/icons", nil, false); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/admin/api/icons", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	icons := decodeBody(t, w)["icons"].([]interface{})
	if len(icons) != len(view.IconOptions()) {
		t.Fatalf("expected %d icons, got %d", len(view.IconOptions()), len(icons))
	}
	last := icons[len(icons)-1].(map[string]interface{})
	if last["key"] != "wechat" || last["url"] != "https://cdn.example.com/widget/images/socials/wechat.svg" {
		t.Fatalf("unexpected icon payload: %v", last)
	}
}
