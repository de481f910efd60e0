package view

import (
	"strings"
)

// IconOption describes an icon offered by the admin main-icon picker.
type IconOption struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	File  string `json:"file"`
}

const (
	socialIconDir  = "images/socials"
	supportIconRef = "images/support.svg"
	cancelIconRef  = "images/cancel.svg"
)

var iconDefinitions = []IconOption{
	{Key: "phone", Label: "Phone/Hotline", File: "phone.svg"},
	{Key: "zalo", Label: "Zalo", File: "zalo.svg"},
	{Key: "whatsapp", Label: "WhatsApp", File: "whatsapp.svg"},
	{Key: "viber", Label: "Viber", File: "viber.svg"},
	{Key: "telegram", Label: "Telegram", File: "telegram.svg"},
	{Key: "messenger", Label: "Facebook Messenger", File: "messenger.svg"},
	{Key: "line", Label: "Line", File: "line.svg"},
	{Key: "kakaotalk", Label: "KakaoTalk", File: "kakaotalk.svg"},
	{Key: "facebook", Label: "Facebook", File: "facebook.svg"},
	{Key: "instagram", Label: "Instagram", File: "instagram.svg"},
	{Key: "youtube", Label: "YouTube", File: "youtube.svg"},
	{Key: "tiktok", Label: "TikTok", File: "tiktok.svg"},
	{Key: "wechat", Label: "WeChat", File: "wechat.svg"},
}

// IconOptions exposes the icon catalog, platform icons first.
func IconOptions() []IconOption {
	options := make([]IconOption, len(iconDefinitions))
	copy(options, iconDefinitions)
	return options
}

// Assets builds public URLs for bundled widget assets.
type Assets struct {
	BaseURL string
}

// NewAssets normalizes the base URL, defaulting to /assets.
func NewAssets(baseURL string) Assets {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = "/assets"
	}
	return Assets{BaseURL: base}
}

func (a Assets) join(ref string) string {
	base := strings.TrimRight(a.BaseURL, "/")
	if base == "" {
		base = "/assets"
	}
	return base + "/" + strings.TrimLeft(ref, "/")
}

// IconURL returns the URL of an explicit icon file name.
func (a Assets) IconURL(file string) string {
	return a.join(socialIconDir + "/" + file)
}

// SupportIcon is the default main button icon.
func (a Assets) SupportIcon() string {
	return a.join(supportIconRef)
}

// CancelIcon is shown while the bubble is expanded.
func (a Assets) CancelIcon() string {
	return a.join(cancelIconRef)
}
