package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirBlobStore persists evidence captures under a local directory and
// returns a reference composed from a public base URL. Deployments that
// need object storage mount it behind this directory or swap the
// implementation.
type DirBlobStore struct {
	dir     string
	baseURL string
}

func NewDirBlobStore(dir, baseURL string) (*DirBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &DirBlobStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

var _ BlobStore = (*DirBlobStore)(nil)

func (b *DirBlobStore) Upload(_ context.Context, key string, data []byte, _ string) (string, error) {
	key = filepath.Base(key)
	if err := os.WriteFile(filepath.Join(b.dir, key), data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence %s: %w", key, err)
	}
	return b.baseURL + "/" + key, nil
}
