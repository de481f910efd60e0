package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	img.Set(0, 0, color.RGBA{R: 82, G: 186, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png failed: %v", err)
	}
	return buf.Bytes()
}

func newTestMediaService(t *testing.T) *LocalMediaService {
	t.Helper()
	svc := NewLocalMediaService(setupServiceTestDB(t), filepath.Join(t.TempDir(), "uploads"), "/uploads/", nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestLocalMediaServiceSaveAndResolve(t *testing.T) {
	svc := newTestMediaService(t)
	ctx := context.Background()

	attachment, err := svc.SaveImage(ctx, ImageUpload{OriginalName: "../qr code.png", Body: bytes.NewReader(encodeTestPNG(t, 4, 3))})
	if err != nil {
		t.Fatalf("save image failed: %v", err)
	}
	if attachment.MimeType != "image/png" || attachment.Width != 4 || attachment.Height != 3 {
		t.Fatalf("unexpected attachment metadata: %+v", attachment)
	}
	if !strings.HasPrefix(attachment.FileName, "20250309-") || !strings.HasSuffix(attachment.FileName, ".png") {
		t.Fatalf("unexpected file name %q", attachment.FileName)
	}
	if attachment.OriginalName != "qr code.png" {
		t.Fatalf("unexpected original name %q", attachment.OriginalName)
	}
	if _, err := os.Stat(filepath.Join(svc.uploadDir, attachment.FileName)); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}

	url, ok := svc.ResolveImageURL(ctx, attachment.ID)
	if !ok || url != "/uploads/"+attachment.FileName {
		t.Fatalf("unexpected resolved url %q (%v)", url, ok)
	}
	if _, ok := svc.ResolveImageURL(ctx, 0); ok {
		t.Fatal("ref 0 should not resolve")
	}
	if _, ok := svc.ResolveImageURL(ctx, 999); ok {
		t.Fatal("unknown ref should not resolve")
	}
}

func TestLocalMediaServiceRejectsInvalidUploads(t *testing.T) {
	svc := newTestMediaService(t)
	ctx := context.Background()

	if _, err := svc.SaveImage(ctx, ImageUpload{OriginalName: "notes.txt", Body: strings.NewReader("plain text")}); !errors.Is(err, ErrAttachmentType) {
		t.Fatalf("expected ErrAttachmentType, got %v", err)
	}

	svc.maxSize = 16
	if _, err := svc.SaveImage(ctx, ImageUpload{OriginalName: "big.png", Body: bytes.NewReader(encodeTestPNG(t, 8, 8))}); !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("expected ErrAttachmentTooLarge, got %v", err)
	}
}

func TestLocalMediaServiceRelease(t *testing.T) {
	svc := newTestMediaService(t)
	ctx := context.Background()

	attachment, err := svc.SaveImage(ctx, ImageUpload{OriginalName: "qr.png", Body: bytes.NewReader(encodeTestPNG(t, 2, 2))})
	if err != nil {
		t.Fatalf("save image failed: %v", err)
	}

	if err := svc.ReleaseImage(ctx, attachment.ID); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(svc.uploadDir, attachment.FileName)); !os.IsNotExist(err) {
		t.Fatalf("expected file to be removed, got %v", err)
	}
	if _, err := svc.Get(ctx, attachment.ID); !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}

	if err := svc.ReleaseImage(ctx, 0); err != nil {
		t.Fatalf("releasing ref 0 should be a no-op, got %v", err)
	}
	if err := svc.ReleaseImage(ctx, attachment.ID); !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("expected ErrAttachmentNotFound, got %v", err)
	}
}
