package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmorgan81/decorai/internal/log"
	"github.com/samber/do"
)

var ErrInvalidKey = errors.New("invalid storage key")

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

type Downloader interface {
	Download(ctx context.Context, name string) ([]byte, string, error)
}

// FileStore keeps objects under a local directory. Keys are cleaned so they
// cannot escape the root.
type FileStore struct {
	Root string
}

func NewFileStore(i *do.Injector) (*FileStore, error) {
	root := strings.TrimSpace(do.MustInvokeNamed[string](i, "export_dir"))
	if root == "" {
		return nil, errors.New("store: export directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure export directory: %w", err)
	}
	return &FileStore{Root: root}, nil
}

func (s *FileStore) Upload(ctx context.Context, params UploadParams) error {
	key, err := sanitizeKey(params.Name)
	if err != nil {
		return err
	}
	log := log.FromContextOrDiscard(ctx).WithGroup("file").With("root", s.Root)
	log.Info("writing", "file", key, "bytes", len(params.Data))

	path := filepath.Join(s.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, params.Data, 0o600)
}

func (s *FileStore) Download(ctx context.Context, name string) ([]byte, string, error) {
	key, err := sanitizeKey(name)
	if err != nil {
		return nil, "", err
	}
	log.FromContextOrDiscard(ctx).WithGroup("file").Info("reading", "file", key)
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(key)))
	if err != nil {
		return nil, "", err
	}
	return data, http.DetectContentType(data), nil
}

func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimLeft(strings.TrimPrefix(key, "./"), "/")
	if key == "" {
		return "", ErrInvalidKey
	}
	cleaned := filepath.ToSlash(filepath.Clean(key))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}
