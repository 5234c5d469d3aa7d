// Package extract reads the text of a document so it can be spoken.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnsupported is returned for documents whose extension has no
	// registered extractor.
	ErrUnsupported = errors.New("extract: unsupported document type")

	// ErrNotUTF8 is returned for text files that are not valid UTF-8.
	ErrNotUTF8 = errors.New("extract: text is not valid UTF-8")
)

// Extractor returns the text content of the document at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc is a function that implements the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract implements the Extractor interface.
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Mux dispatches to an Extractor by the lower-cased file extension.
type Mux struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

var _ Extractor = (*Mux)(nil)

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{extractors: make(map[string]Extractor)}
}

// DefaultMux handles plain text (.txt, .text, .md) and PDF (.pdf).
var DefaultMux = func() *Mux {
	m := NewMux()
	m.Handle(".txt", Text{})
	m.Handle(".text", Text{})
	m.Handle(".md", Text{})
	m.Handle(".pdf", PDF{})
	return m
}()

// Handle registers e for files ending in ext (".pdf"). The leading dot is
// optional and case is ignored.
func (m *Mux) Handle(ext string, e Extractor) {
	ext = normalizeExt(ext)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.extractors[ext]; ok {
		slog.Warn("extract: extractor already registered", "ext", ext)
	}
	m.extractors[ext] = e
}

// Extensions returns the registered extensions, sorted.
func (m *Mux) Extensions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	exts := make([]string, 0, len(m.extractors))
	for ext := range m.extractors {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supports reports whether path has a registered extension.
func (m *Mux) Supports(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.extractors[normalizeExt(filepath.Ext(path))]
	return ok
}

// Extract implements Extractor.
func (m *Mux) Extract(ctx context.Context, path string) (string, error) {
	ext := normalizeExt(filepath.Ext(path))
	m.mu.RLock()
	e, ok := m.extractors[ext]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, filepath.Base(path))
	}
	return e.Extract(ctx, path)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
