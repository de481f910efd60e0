package db

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesParentDirAndTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chatbubbles.db")

	gdb, err := Open(path)
	if err != nil {
		t.Fatalf("open database failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, model := range []interface{}{&User{}, &ChatItem{}, &MediaAttachment{}, &SystemSetting{}} {
		if !gdb.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T to exist", model)
		}
	}
	if !gdb.Migrator().HasColumn(&ChatItem{}, "qr_code_id") {
		t.Fatal("expected chat items to persist qr_code_id column")
	}
}

func TestEnsureUserAndAuthenticate(t *testing.T) {
	gdb, err := Open(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("open database failed: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	created, err := EnsureUser(gdb, "admin", "secret-pass")
	if err != nil {
		t.Fatalf("ensure user failed: %v", err)
	}
	if !created {
		t.Fatal("expected user to be created")
	}

	created, err = EnsureUser(gdb, "admin", "another")
	if err != nil {
		t.Fatalf("ensure user second call failed: %v", err)
	}
	if created {
		t.Fatal("expected existing user to be kept")
	}

	if _, ok := Authenticate(gdb, "admin", "secret-pass"); !ok {
		t.Fatal("expected authentication to succeed")
	}
	if _, ok := Authenticate(gdb, "admin", "another"); ok {
		t.Fatal("expected authentication with wrong password to fail")
	}

	if created, err := EnsureUser(gdb, " ", "x"); err != nil || created {
		t.Fatalf("expected blank username to be a no-op, got created=%v err=%v", created, err)
	}
}

func TestChatItemHasQR(t *testing.T) {
	if (ChatItem{}).HasQR() {
		t.Fatal("zero QR id should mean no QR")
	}
	if !(ChatItem{QRImageID: 42}).HasQR() {
		t.Fatal("non-zero QR id should report a QR image")
	}
}
