package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileName   = ".media.lock"
	lockRetryDelay = 20 * time.Millisecond
)

// LocalStore keeps blobs under a directory on the local filesystem.
//
// Writes go to a temp file that is renamed into place. Renames and deletes hold an
// exclusive flock on the store's lock file and opens hold a shared one, so a reader
// never observes a half-written blob and a delete never races a rename, across
// goroutines and processes alike.
type LocalStore struct {
	root     string
	lockPath string
}

// NewLocalStore creates the root directory if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{root: abs, lockPath: filepath.Join(abs, lockFileName)}, nil
}

// Root returns the absolute media directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) resolve(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *LocalStore) lock(ctx context.Context, shared bool) (*flock.Flock, error) {
	fl := flock.New(s.lockPath)
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = fl.TryRLockContext(ctx, lockRetryDelay)
	} else {
		ok, err = fl.TryLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock media store: %w", err)
	}
	if !ok {
		return nil, errors.New("lock media store: not acquired")
	}
	return fl, nil
}

// Save streams r to key, creating parent directories as needed.
func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	dst, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return 0, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close blob: %w", err)
	}

	fl, err := s.lock(ctx, false)
	if err != nil {
		return 0, err
	}
	defer fl.Unlock()
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, fmt.Errorf("rename blob: %w", err)
	}
	return n, nil
}

// Open returns the blob at key. The file handle stays valid if the blob is deleted afterwards.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := s.resolve(key)
	if err != nil {
		return nil, 0, err
	}
	fl, err := s.lock(ctx, true)
	if err != nil {
		return nil, 0, err
	}
	defer fl.Unlock()

	f, err := os.Open(p)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, 0, ErrNotExist
	}
	return f, info.Size(), nil
}

// Exists reports whether a regular file is stored at key.
func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.SizeOf(ctx, key)
	if errors.Is(err, ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

// SizeOf returns the blob size in bytes.
func (s *LocalStore) SizeOf(_ context.Context, key string) (int64, error) {
	p, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, ErrNotExist
	}
	return info.Size(), nil
}

// Delete removes the blob at key if present.
func (s *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := s.resolve(key)
	if err != nil {
		return err
	}
	fl, err := s.lock(ctx, false)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
