package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Local is a FileStore on a directory of the local filesystem.
//
// Writes go to a hidden temporary file next to the target, named
// ".<name>.tmp-*", which is renamed over the target on Close. A crash or
// an aborted write never leaves a truncated file under the target name.
type Local struct {
	root string
}

var (
	_ FileStore = (*Local)(nil)
	_ Mover     = (*Local)(nil)
)

// NewLocal creates a Local store rooted at dir, creating dir and its
// parents if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute directory of the store.
func (l *Local) Root() string {
	return l.root
}

// Path returns the absolute filesystem path of the named file.
func (l *Local) Path(name string) string {
	return filepath.Join(l.root, filepath.FromSlash(name))
}

// Read opens the named file. The returned reader is an *os.File and can
// seek.
func (l *Local) Read(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(l.Path(name))
}

// Write implements FileStore.
func (l *Local) Write(_ context.Context, name string) (io.WriteCloser, error) {
	target := l.Path(name)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &localWriter{f: f, target: target}, nil
}

// Delete implements FileStore.
func (l *Local) Delete(_ context.Context, name string) error {
	if err := os.Remove(l.Path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Exists implements FileStore.
func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	switch _, err := os.Stat(l.Path(name)); {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Size returns the size in bytes of the named file.
func (l *Local) Size(_ context.Context, name string) (int64, error) {
	fi, err := os.Stat(l.Path(name))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Move renames src to dst within the store, replacing dst atomically.
func (l *Local) Move(_ context.Context, src, dst string) error {
	to := l.Path(dst)
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return err
	}
	return os.Rename(l.Path(src), to)
}

// localWriter writes a temporary file and publishes it on Close.
type localWriter struct {
	f      *os.File
	target string

	once sync.Once
	err  error
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Seek(offset int64, whence int) (int64, error) {
	return w.f.Seek(offset, whence)
}

// Close flushes the file to disk and renames it over the target.
func (w *localWriter) Close() error {
	w.once.Do(func() {
		w.err = w.f.Sync()
		if err := w.f.Close(); w.err == nil {
			w.err = err
		}
		if w.err == nil {
			w.err = os.Rename(w.f.Name(), w.target)
		}
		if w.err != nil {
			os.Remove(w.f.Name())
		}
	})
	return w.err
}

// Abort removes the temporary file. The target is left as it was.
func (w *localWriter) Abort() error {
	w.once.Do(func() {
		w.f.Close()
		w.err = os.Remove(w.f.Name())
	})
	return w.err
}
