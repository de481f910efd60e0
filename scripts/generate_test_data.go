package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chatbubbles/internal/config"
	"github.com/chatbubbles/internal/db"
	"github.com/chatbubbles/internal/platform"
	"github.com/chatbubbles/internal/service"
	"gorm.io/gorm"
)

// 测试数据生成器
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("配置加载失败:", err)
	}

	// 初始化数据库
	gdb, err := db.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	if _, err := db.EnsureUser(gdb, "admin", "admin123"); err != nil {
		log.Fatal("创建管理员失败:", err)
	}

	created, err := createTestItems(context.Background(), gdb)
	if err != nil {
		log.Fatal("创建测试条目失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Println("用户: admin (密码: admin123)")
	fmt.Printf("条目: %d 个聊天渠道\n", created)
}

type demoItem struct {
	platform string
	label    string
	contact  string
	enabled  bool
}

// 每个平台一条示例数据，最后一条默认禁用
var demoItems = []demoItem{
	{platform: string(platform.Phone), label: "Hotline", contact: "+84 901 234 567", enabled: true},
	{platform: string(platform.Zalo), label: "Zalo CSKH", contact: "0901234567", enabled: true},
	{platform: string(platform.WhatsApp), label: "WhatsApp Sales", contact: "84901234567", enabled: true},
	{platform: string(platform.Viber), label: "Viber", contact: "+84901234567", enabled: true},
	{platform: string(platform.Telegram), label: "Telegram Support", contact: "demo_support", enabled: true},
	{platform: string(platform.Messenger), label: "Fanpage", contact: "demo.page", enabled: true},
	{platform: string(platform.Line), label: "Line", contact: "demo-line", enabled: true},
	{platform: string(platform.KakaoTalk), label: "KakaoTalk", contact: "demo_kakao", enabled: false},
}

// createTestItems 在条目表为空时写入示例数据，返回新建数量
func createTestItems(ctx context.Context, gdb *gorm.DB) (int, error) {
	var count int64
	if err := gdb.Model(&db.ChatItem{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		fmt.Println("条目已存在，跳过创建")
		return 0, nil
	}

	settings := service.NewWidgetSettingService(gdb)
	items := service.NewItemService(gdb, platform.NewRegistry(), nil, service.WithVersionBumper(settings.BumpDataVersion))

	created := 0
	for _, demo := range demoItems {
		enabled := demo.enabled
		if _, err := items.Create(ctx, service.ItemInput{
			Platform:     demo.platform,
			Label:        demo.label,
			ContactValue: demo.contact,
			Enabled:      &enabled,
		}); err != nil {
			return created, fmt.Errorf("create %s: %w", demo.platform, err)
		}
		created++
	}
	return created, nil
}
