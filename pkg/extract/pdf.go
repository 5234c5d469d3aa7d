package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDF extracts the text of every page of a PDF document, concatenated in
// page order.
type PDF struct{}

// Extract implements Extractor.
func (PDF) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: open pdf: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	n := r.NumPage()
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract: pdf page %d: %w", i, err)
		}
		sb.WriteString(text)
	}
	slog.Debug("extract: pdf", "path", path, "pages", n, "chars", sb.Len())
	return sb.String(), nil
}
