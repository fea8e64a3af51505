package filestore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
	"github.com/google/uuid"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the default filestore error class
var Error = errs.Class("filestore")

var _ domain.FileStore = (*Store)(nil)

// Store keeps bitstream content as flat files in one directory. Keys are
// random so uploaded names never reach the filesystem.
type Store struct {
	dir string
	log *zap.Logger
}

// NewAt creates the directory when missing.
func NewAt(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, Error.Wrap(err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Store copies r into a temporary file and renames it into place once the
// copy completes.
func (store *Store) Store(ctx context.Context, name string, r io.Reader) (_ string, _ int64, err error) {
	key := uuid.NewString() + extension(name)

	tmp, err := os.CreateTemp(store.dir, ".upload-*")
	if err != nil {
		return "", 0, Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, ignoreNotExist(os.Remove(tmp.Name())))
		}
	}()

	size, err := io.Copy(tmp, &contextReader{ctx: ctx, r: r})
	if err = errs.Combine(err, tmp.Close()); err != nil {
		return "", 0, Error.Wrap(err)
	}
	if err = os.Rename(tmp.Name(), store.path(key)); err != nil {
		return "", 0, Error.Wrap(err)
	}

	store.log.Debug("stored file", zap.String("key", key), zap.Int64("size", size))
	return key, size, nil
}

func (store *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	file, err := os.Open(store.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound.New("file not found")
		}
		return nil, Error.Wrap(err)
	}
	return file, nil
}

// Remove treats a missing file as already removed.
func (store *Store) Remove(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return Error.Wrap(ignoreNotExist(os.Remove(store.path(key))))
}

func (store *Store) path(key string) string {
	return filepath.Join(store.dir, key)
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") || filepath.Base(key) != key {
		return Error.New("invalid storage key %q", key)
	}
	return nil
}

// extension keeps a short alphanumeric suffix of the uploaded name.
func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func ignoreNotExist(err error) error {
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
