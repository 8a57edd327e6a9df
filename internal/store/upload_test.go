package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "decorai_projeto_1.png", want: "decorai_projeto_1.png"},
		{in: "/abs/path.png", want: "abs/path.png"},
		{in: "./a/../b.png", want: "b.png"},
		{in: `dir\file.png`, want: "dir/file.png"},
		{in: "../escape.png", wantErr: true},
		{in: "a/../../escape.png", wantErr: true},
		{in: "  ", wantErr: true},
		{in: ".", wantErr: true},
	}
	for _, tt := range tests {
		got, err := sanitizeKey(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("sanitizeKey(%q) err = %v, want ErrInvalidKey", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("sanitizeKey(%q) = (%q, %v), want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestFileStoreUploadAndDownload(t *testing.T) {
	root := t.TempDir()
	s := &FileStore{Root: root}
	png := []byte("\x89PNG\r\n\x1a\n0000")

	if err := s.Upload(context.Background(), UploadParams{Name: "projects/a.png", Data: png, ContentType: "image/png"}); err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "projects", "a.png")); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	data, contentType, err := s.Download(context.Background(), "projects/a.png")
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if string(data) != string(png) || contentType != "image/png" {
		t.Fatalf("Download = (%q, %q)", data, contentType)
	}

	if err := s.Upload(context.Background(), UploadParams{Name: "../x.png", Data: png}); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v, want ErrInvalidKey", err)
	}
}
