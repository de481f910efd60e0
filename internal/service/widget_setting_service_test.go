package service

import (
	"context"
	"reflect"
	"testing"

	"github.com/chatbubbles/internal/db"
)

func TestWidgetSettingServiceDefaults(t *testing.T) {
	svc := NewWidgetSettingService(setupServiceTestDB(t))

	settings, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if !reflect.DeepEqual(settings, DefaultWidgetSettings()) {
		t.Fatalf("expected defaults, got %+v", settings)
	}
}

func TestWidgetSettingServiceUpdateSanitizes(t *testing.T) {
	svc := NewWidgetSettingService(setupServiceTestDB(t))
	ctx := context.Background()

	updated, err := svc.UpdateSettings(ctx, WidgetSettingsInput{
		Position:        stringPtr("middle"),
		MainButtonColor: stringPtr("red"),
		CustomCSS:       stringPtr("<b>.bubble{color:red}</b><script>alert(1)</script>"),
		ExcludePages:    &[]int{12, -1, 3, 12, 0},
		ShowLabels:      boolPtr(false),
	})
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if updated.Position != PositionBottomRight {
		t.Fatalf("expected fallback position, got %q", updated.Position)
	}
	if updated.MainButtonColor != "#52BA00" {
		t.Fatalf("expected fallback color, got %q", updated.MainButtonColor)
	}
	if updated.CustomCSS != ".bubble{color:red}" {
		t.Fatalf("expected tags stripped, got %q", updated.CustomCSS)
	}
	if !reflect.DeepEqual(updated.ExcludePages, []int{3, 12}) {
		t.Fatalf("unexpected exclude pages: %v", updated.ExcludePages)
	}

	reloaded, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("get settings failed: %v", err)
	}
	if !reflect.DeepEqual(reloaded, updated) {
		t.Fatalf("expected persisted settings %+v, got %+v", updated, reloaded)
	}
	if reloaded.ShowLabels {
		t.Fatal("expected show_labels=false to persist")
	}

	second, err := svc.UpdateSettings(ctx, WidgetSettingsInput{Position: stringPtr("top-left"), MainButtonColor: stringPtr("#ABC")})
	if err != nil {
		t.Fatalf("update settings failed: %v", err)
	}
	if second.Position != PositionTopLeft || second.MainButtonColor != "#ABC" {
		t.Fatalf("unexpected settings: %+v", second)
	}
	if second.ShowLabels {
		t.Fatal("fields absent from the input must keep their value")
	}
}

func TestWidgetSettingServiceDataVersion(t *testing.T) {
	svc := NewWidgetSettingService(setupServiceTestDB(t))
	ctx := context.Background()

	version, err := svc.DataVersion(ctx)
	if err != nil || version != 1 {
		t.Fatalf("expected initial version 1, got %d (%v)", version, err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.BumpDataVersion(ctx); err != nil {
			t.Fatalf("bump failed: %v", err)
		}
	}
	version, _ = svc.DataVersion(ctx)
	if version != 4 {
		t.Fatalf("expected version 4, got %d", version)
	}
}

func TestWidgetSettingServiceLegacyFlag(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewWidgetSettingService(gdb)
	ctx := context.Background()

	migrated, err := svc.LegacyMigrated(ctx)
	if err != nil || migrated {
		t.Fatalf("expected not migrated, got %v (%v)", migrated, err)
	}
	if err := svc.MarkLegacyMigrated(ctx, `{"platforms":{}}`); err != nil {
		t.Fatalf("mark migrated failed: %v", err)
	}
	migrated, _ = svc.LegacyMigrated(ctx)
	if !migrated {
		t.Fatal("expected migrated flag to be set")
	}

	var backup db.SystemSetting
	if err := gdb.Where("key = ?", db.SettingKeyLegacyBackup).First(&backup).Error; err != nil {
		t.Fatalf("load backup failed: %v", err)
	}
	if backup.Value != `{"platforms":{}}` {
		t.Fatalf("unexpected backup %q", backup.Value)
	}
}

func TestDisplaySettingsHash(t *testing.T) {
	base := DefaultWidgetSettings().Display()
	hash := base.Hash()
	if len(hash) != 8 {
		t.Fatalf("expected 8 char hash, got %q", hash)
	}
	if base.Hash() != hash {
		t.Fatal("hash should be stable")
	}

	changed := base
	changed.Position = PositionTopLeft
	if changed.Hash() == hash {
		t.Fatal("hash should change with position")
	}
	changed = base
	changed.CustomMainIcon = 9
	if changed.Hash() == hash {
		t.Fatal("hash should change with custom icon")
	}
}

func TestWidgetSettingsShouldLoadOnPage(t *testing.T) {
	settings := DefaultWidgetSettings()
	settings.ExcludePages = []int{5}

	if !settings.ShouldLoadOnPage(1, false) {
		t.Fatal("expected widget to load on page 1")
	}
	if settings.ShouldLoadOnPage(5, false) {
		t.Fatal("expected widget to be excluded on page 5")
	}

	settings.LoadOnMobile = false
	if settings.ShouldLoadOnPage(1, true) {
		t.Fatal("expected widget to be hidden on mobile")
	}

	settings = DefaultWidgetSettings()
	settings.AutoLoad = false
	if settings.ShouldLoadOnPage(0, false) {
		t.Fatal("expected auto_load=false to disable loading")
	}
}
