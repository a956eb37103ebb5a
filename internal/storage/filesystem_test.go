package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"studio/internal/domain"
)

func TestSanitizeKey(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "g-rabbi-studio-creation.png", want: "g-rabbi-studio-creation.png"},
		{in: "./out/a.png", want: "out/a.png"},
		{in: "/abs/a.png", want: "abs/a.png"},
		{in: `win\dir\a.png`, want: "win/dir/a.png"},
		{in: "a/../b.png", want: "b.png"},
		{in: "../escape.png", wantErr: true},
		{in: "..", wantErr: true},
		{in: "   ", wantErr: true},
	}
	for _, tc := range cases {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFileStoreSaveKeepsBytes(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	img := domain.NewEncodedImage("image/jpeg", []byte{0xff, 0xd8, 0xff, 0x00})
	if err := store.Save(context.Background(), "g-rabbi-studio-creation.png", img); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "g-rabbi-studio-creation.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != string(img.Data) {
		t.Fatalf("bytes changed: %v", got)
	}
}

func TestFileStoreSaveRejectsEmpty(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Save(context.Background(), "x.png", domain.EncodedImage{}); !errors.Is(err, domain.ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
}

func TestFileStoreWriteHonoursContext(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Write(ctx, "x.png", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
