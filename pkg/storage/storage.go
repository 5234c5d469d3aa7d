// Package storage reads and writes whole files on local disk or in an
// object store behind one FileStore interface.
//
// Conversions keep their segment artifacts and final audio in a Local
// store rooted at the destination directory. Finished audio is published
// to an S3Store with S3Store.Upload.
package storage

import (
	"context"
	"io"
)

// FileStore stores named files.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Read opens the named file. A missing file yields an error wrapping
	// fs.ErrNotExist.
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write starts a new version of the named file. The file becomes
	// visible under path when the writer is closed successfully; until
	// then readers see the previous version, if any. Parent directories
	// are created as needed.
	Write(ctx context.Context, path string) (io.WriteCloser, error)

	// Delete removes the named file. Deleting a missing file is not an
	// error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// Mover is implemented by stores that can rename a file in place.
// Move replaces dst if it exists.
type Mover interface {
	Move(ctx context.Context, src, dst string) error
}

// Aborter is implemented by writers returned from FileStore.Write that can
// drop what was written instead of publishing it.
type Aborter interface {
	Abort() error
}

// Abort drops the data written to w when w supports it, and closes w
// otherwise.
func Abort(w io.WriteCloser) error {
	if a, ok := w.(Aborter); ok {
		return a.Abort()
	}
	return w.Close()
}
