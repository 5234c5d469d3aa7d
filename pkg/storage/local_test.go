package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func writeFile(t *testing.T, s FileStore, name, data string) {
	t.Helper()
	w, err := s.Write(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, s FileStore, name string) string {
	t.Helper()
	r, err := s.Read(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	return string(got)
}

// entries lists the names in the store root, hidden files included.
func entries(t *testing.T, s *Local) []string {
	t.Helper()
	des, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, de := range des {
		names = append(names, de.Name())
	}
	return names
}

func TestLocalWriteRead(t *testing.T) {
	s := newTestLocal(t)
	writeFile(t, s, "a/b/book_0001.mp3", "frames")
	if got := readFile(t, s, "a/b/book_0001.mp3"); got != "frames" {
		t.Fatalf("got %q, want %q", got, "frames")
	}

	r, err := s.Read(context.Background(), "a/b/book_0001.mp3")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if _, ok := r.(io.Seeker); !ok {
		t.Fatal("Local readers must seek")
	}
}

func TestLocalWriteVisibleOnClose(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	writeFile(t, s, "book.mp3", "old")

	w, err := s.Write(ctx, "book.mp3")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "new content")
	if got := readFile(t, s, "book.mp3"); got != "old" {
		t.Fatalf("before Close got %q, want old", got)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, s, "book.mp3"); got != "new content" {
		t.Fatalf("after Close got %q", got)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if names := entries(t, s); len(names) != 1 {
		t.Fatalf("entries = %v, want only book.mp3", names)
	}
}

func TestLocalAbort(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	writeFile(t, s, "book.mp3", "old")

	w, err := s.Write(ctx, "book.mp3")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "half")
	if err := Abort(w); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, s, "book.mp3"); got != "old" {
		t.Fatalf("got %q, want old", got)
	}
	if names := entries(t, s); len(names) != 1 {
		t.Fatalf("entries = %v, temporary file left behind", names)
	}
}

func TestLocalWriterSeek(t *testing.T) {
	s := newTestLocal(t)
	w, err := s.Write(context.Background(), "book.wav")
	if err != nil {
		t.Fatal(err)
	}
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		t.Fatal("Local writers must seek")
	}
	io.WriteString(ws, "RIFF....WAVE")
	if _, err := ws.Seek(4, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	io.WriteString(ws, "size")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, s, "book.wav"); got != "RIFFsizeWAVE" {
		t.Fatalf("got %q", got)
	}
}

func TestLocalReadMissing(t *testing.T) {
	s := newTestLocal(t)
	if _, err := s.Read(context.Background(), "missing.mp3"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLocalExistsDelete(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "x"); err != nil || ok {
		t.Fatalf("Exists(missing) = %v, %v", ok, err)
	}
	writeFile(t, s, "x", "1")
	if ok, err := s.Exists(ctx, "x"); err != nil || !ok {
		t.Fatalf("Exists(x) = %v, %v", ok, err)
	}
	for range 2 {
		if err := s.Delete(ctx, "x"); err != nil {
			t.Fatal(err)
		}
	}
	if ok, _ := s.Exists(ctx, "x"); ok {
		t.Fatal("x still exists after Delete")
	}
}

func TestLocalMove(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	writeFile(t, s, "book.mp3", "old")
	writeFile(t, s, "book.mp3.partial", "new")

	if err := s.Move(ctx, "book.mp3.partial", "book.mp3"); err != nil {
		t.Fatal(err)
	}
	if got := readFile(t, s, "book.mp3"); got != "new" {
		t.Fatalf("got %q, want new", got)
	}
	if ok, _ := s.Exists(ctx, "book.mp3.partial"); ok {
		t.Fatal("source still exists after Move")
	}

	if err := s.Move(ctx, "ghost", "book.mp3"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Move(ghost) err = %v", err)
	}
	if got := readFile(t, s, "book.mp3"); got != "new" {
		t.Fatalf("failed Move changed destination to %q", got)
	}
}

func TestLocalPathSize(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	s, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		t.Fatalf("NewLocal did not create %s: %v", dir, err)
	}

	writeFile(t, s, "sub/a.wav", "12345")
	if got, want := s.Path("sub/a.wav"), filepath.Join(dir, "sub", "a.wav"); got != want {
		t.Fatalf("Path = %q, want %q", got, want)
	}
	if n, err := s.Size(context.Background(), "sub/a.wav"); err != nil || n != 5 {
		t.Fatalf("Size = %d, %v", n, err)
	}
}

func TestLocalWriteRenameFailure(t *testing.T) {
	s := newTestLocal(t)
	ctx := context.Background()
	// A directory in the way makes the final rename fail.
	if err := os.Mkdir(s.Path("book.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.Path("book.mp3/x"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := s.Write(ctx, "book.mp3")
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(w, "frames")
	if err := w.Close(); err == nil {
		t.Fatal("Close succeeded over a directory")
	}
	if names := entries(t, s); len(names) != 1 {
		t.Fatalf("entries = %v, temporary file left behind", names)
	}
}
