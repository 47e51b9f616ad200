package io

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/OFFIS-RIT/stockrag/pkg/loader"
)

func TestGetFileText_Caches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vnm.txt")
	if err := os.WriteFile(path, []byte("VNM thuộc về Vinamilk."), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewIOGraphFileLoader()
	file := loader.NewGraphDocumentFile(loader.NewGraphFileParams{ID: "1", FilePath: path, Loader: l})

	got, err := file.GetText(context.Background())
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if string(got) != "VNM thuộc về Vinamilk." {
		t.Fatalf("unexpected text %q", got)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	again, err := file.GetText(context.Background())
	if err != nil || string(again) != string(got) {
		t.Fatalf("expected cached content, got %q err=%v", again, err)
	}
}

func TestGetFileText_Missing(t *testing.T) {
	l := NewIOGraphFileLoader()
	file := loader.NewGraphDocumentFile(loader.NewGraphFileParams{ID: "1", FilePath: "/does/not/exist", Loader: l})
	if _, err := file.GetText(context.Background()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
