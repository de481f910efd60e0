package platform

import "strings"

// PlaceholderURL is returned when no deep link can be produced.
const PlaceholderURL = "#"

// URL maps a contact value to the platform's deep link. The value is used
// verbatim; callers are expected to have validated it already.
func (r *Registry) URL(key, value string) string {
	if strings.TrimSpace(value) == "" {
		return PlaceholderURL
	}
	def, ok := r.Get(key)
	if !ok {
		return PlaceholderURL
	}
	return def.Key.url(value)
}

func (k Key) url(value string) string {
	switch k {
	case Phone:
		return "tel:" + value
	case Zalo:
		return "https://zalo.me/" + value + "?openChat=true"
	case WhatsApp:
		return "https://wa.me/" + value
	case Viber:
		return "viber://contact?number=" + value
	case Telegram:
		return "https://t.me/" + value
	case Messenger:
		return "https://m.me/" + value
	case Line:
		return "https://line.me/ti/p/" + value
	case KakaoTalk:
		// KakaoTalk 没有公开的网页深链接，前端通过锚点展示二维码弹层
		return "#kakaotalk-" + value
	}
	return PlaceholderURL
}
