package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Storage persists tool and upload payloads. Saving to an existing name
// replaces the previous content.
type Storage interface {
	Save(ctx context.Context, data []byte, dir, name string) (string, error)
}

// LocalStorage writes files below the local filesystem.
type LocalStorage struct {
	// Root, when set, prefixes relative directories.
	Root string
}

var _ Storage = (*LocalStorage)(nil)

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{Root: root}
}

// Save writes data to dir/name, creating dir. Only the base of name is used.
func (s *LocalStorage) Save(ctx context.Context, data []byte, dir, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "", errors.Errorf("invalid file name %q", name)
	}
	if dir == "" {
		dir = "."
	}
	if s.Root != "" && !filepath.IsAbs(dir) {
		dir = filepath.Join(s.Root, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create directory %s", dir)
	}
	path := filepath.Join(dir, base)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "could not write %s", path)
	}
	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("stored file")
	return path, nil
}

// CopyFile stores the content of the local file src under dir.
func CopyFile(ctx context.Context, s Storage, src, dir string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", errors.Wrapf(err, "could not read %s", src)
	}
	return s.Save(ctx, data, dir, filepath.Base(src))
}
