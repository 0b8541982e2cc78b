package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadStoresUnderEntityKey(t *testing.T) {
	root := t.TempDir()
	images := NewImages(NewLocalProvider(root), "/uploads/")
	key, err := images.Upload(context.Background(), "block-1", "original", bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key != "block-1/original.png" {
		t.Fatalf("unexpected key %q", key)
	}
	if _, err := os.Stat(filepath.Join(root, "block-1", "original.png")); err != nil {
		t.Fatalf("expected file on disk: %v", err)
	}
	if got := images.URL(key); got != "/uploads/block-1/original.png" {
		t.Fatalf("unexpected url %q", got)
	}
	if images.URL("") != "" {
		t.Fatalf("expected empty url for missing image")
	}
	if err := images.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	images := NewImages(NewLocalProvider(t.TempDir()), "")
	_, err := images.Upload(context.Background(), "npc-1", "original", bytes.NewReader([]byte("plain text")))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected unsupported image, got %v", err)
	}
}

func TestLocalProviderRejectsEscapingKeys(t *testing.T) {
	provider := NewLocalProvider(t.TempDir())
	if err := provider.Put(context.Background(), "../outside.png", bytes.NewReader(pngHeader), "image/png"); err == nil {
		t.Fatalf("expected path escape to be rejected")
	}
}
