package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// OutputFormat selects how command results are encoded.
type OutputFormat string

const (
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"
)

// Output encodes result to w. A nil w is standard output and an empty
// format is YAML.
func Output(w io.Writer, result any, format OutputFormat) error {
	if w == nil {
		w = os.Stdout
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML, "":
		data, err := yaml.MarshalWithOptions(result, yaml.UseLiteralStyleIfMultiline(true))
		if err != nil {
			return fmt.Errorf("failed to format output: %w", err)
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unsupported output format: %s", format)
}

// PrintSuccess prints a ✓ line to stdout.
func PrintSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stdout, DefaultStyles.Success.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an "Error:" line to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, DefaultStyles.Error.Render("Error: "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a ⚠ line to stderr.
func PrintWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, DefaultStyles.Warning.Render("⚠ "+fmt.Sprintf(format, args...)))
}
