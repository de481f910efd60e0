// Package platform 定义聊天气泡支持的通讯平台目录，以及联系方式校验与深链接生成。
package platform

import (
	"regexp"
	"strings"
)

// Key 是平台的唯一短标识，取值固定为下方常量之一。
type Key string

const (
	Phone     Key = "phone"
	Zalo      Key = "zalo"
	WhatsApp  Key = "whatsapp"
	Viber     Key = "viber"
	Telegram  Key = "telegram"
	Messenger Key = "messenger"
	Line      Key = "line"
	KakaoTalk Key = "kakaotalk"
)

// ContactFieldKind 描述联系方式字段的语义类型。
type ContactFieldKind string

const (
	FieldNumber   ContactFieldKind = "number"
	FieldUsername ContactFieldKind = "username"
	FieldID       ContactFieldKind = "id"
)

// DefaultColor 为未知平台使用的品牌色。
const DefaultColor = "#52BA00"

// Definition 描述单个平台的展示与校验规则，由 Registry 持有且不可变。
type Definition struct {
	Key          Key              `json:"key"`
	Label        string           `json:"label"`
	ContactField ContactFieldKind `json:"contact_field"`
	Pattern      *regexp.Regexp   `json:"-"`
	Placeholder  string           `json:"placeholder"`
	BrandColor   string           `json:"color"`
	IconRef      string           `json:"icon"`
}

var definitions = []Definition{
	{
		Key:          Phone,
		Label:        "Phone/Hotline",
		ContactField: FieldNumber,
		Pattern:      regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`),
		Placeholder:  "+1234567890",
		BrandColor:   "#52BA00",
		IconRef:      "phone.svg",
	},
	{
		Key:          Zalo,
		Label:        "Zalo",
		ContactField: FieldNumber,
		Pattern:      regexp.MustCompile(`^[0-9]{9,11}$`),
		Placeholder:  "0123456789",
		BrandColor:   "#008BE6",
		IconRef:      "zalo.svg",
	},
	{
		Key:          WhatsApp,
		Label:        "WhatsApp",
		ContactField: FieldNumber,
		Pattern:      regexp.MustCompile(`^\+?[1-9][0-9]{6,15}$`),
		Placeholder:  "1234567890",
		BrandColor:   "#25D366",
		IconRef:      "whatsapp.svg",
	},
	{
		Key:          Viber,
		Label:        "Viber",
		ContactField: FieldNumber,
		Pattern:      regexp.MustCompile(`^\+?[0-9\s\-()]{7,20}$`),
		Placeholder:  "+1234567890",
		BrandColor:   "#665cac",
		IconRef:      "viber.svg",
	},
	{
		Key:          Telegram,
		Label:        "Telegram",
		ContactField: FieldUsername,
		Pattern:      regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{4,31}$`),
		Placeholder:  "username",
		BrandColor:   "#0088cc",
		IconRef:      "telegram.svg",
	},
	{
		Key:          Messenger,
		Label:        "Facebook Messenger",
		ContactField: FieldUsername,
		Pattern:      regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.]{0,49}$`),
		Placeholder:  "username",
		BrandColor:   "#0084ff",
		IconRef:      "messenger.svg",
	},
	{
		Key:          Line,
		Label:        "Line",
		ContactField: FieldID,
		Pattern:      regexp.MustCompile(`^[a-zA-Z0-9._-]{1,50}$`),
		Placeholder:  "your-line-id",
		BrandColor:   "#38cd01",
		IconRef:      "line.svg",
	},
	{
		Key:          KakaoTalk,
		Label:        "KakaoTalk",
		ContactField: FieldID,
		Pattern:      regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`),
		Placeholder:  "your-kakao-id",
		BrandColor:   "#ffeb3b",
		IconRef:      "kakaotalk.svg",
	},
}

// Keys 按目录顺序返回全部平台标识。
func Keys() []Key {
	keys := make([]Key, 0, len(definitions))
	for _, def := range definitions {
		keys = append(keys, def.Key)
	}
	return keys
}

// Registry 是只读的平台目录，进程启动时构造一次后在各服务间共享。
type Registry struct {
	ordered []Definition
	lookup  map[Key]Definition
}

// NewRegistry 构造包含全部内置平台的目录。
func NewRegistry() *Registry {
	lookup := make(map[Key]Definition, len(definitions))
	ordered := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		lookup[def.Key] = def
		ordered = append(ordered, def)
	}
	return &Registry{ordered: ordered, lookup: lookup}
}

// List 返回目录中的全部平台定义（副本），顺序固定。
func (r *Registry) List() []Definition {
	out := make([]Definition, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Get 根据标识查找平台定义。
func (r *Registry) Get(key string) (Definition, bool) {
	def, ok := r.lookup[Key(normalizeKey(key))]
	return def, ok
}

// Supported 判断平台是否在目录中。
func (r *Registry) Supported(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Color 返回平台品牌色，未知平台回退到 DefaultColor。
func (r *Registry) Color(key string) string {
	if def, ok := r.Get(key); ok {
		return def.BrandColor
	}
	return DefaultColor
}

// IconRef 返回平台图标文件名，未知平台回退到 "<key>.svg"。
func (r *Registry) IconRef(key string) string {
	if def, ok := r.Get(key); ok {
		return def.IconRef
	}
	return normalizeKey(key) + ".svg"
}

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}
