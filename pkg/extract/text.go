package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"
)

// Text extracts UTF-8 plain text files verbatim, minus a leading byte order
// mark.
type Text struct{}

// Extract implements Extractor.
func (Text) Extract(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	b = bytes.TrimPrefix(b, []byte("\ufeff"))
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s", ErrNotUTF8, path)
	}
	return string(b), nil
}
