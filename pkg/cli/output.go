package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// OutputFormat is the encoding of a command report.
type OutputFormat string

const (
	// FormatYAML is the default.
	FormatYAML OutputFormat = "yaml"
	FormatJSON OutputFormat = "json"
	// FormatRaw writes strings and byte slices as-is and falls back to YAML.
	FormatRaw OutputFormat = "raw"
)

// ParseOutputFormat validates a --format value. Empty selects YAML.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatYAML, nil
	case FormatYAML, FormatJSON, FormatRaw:
		return f, nil
	}
	return "", InvalidArgument("unsupported output format %q (want yaml, json or raw)", s)
}

// OutputOptions configures Output.
type OutputOptions struct {
	Format OutputFormat

	// File is the output path. Empty writes to Writer, or stdout.
	File string

	// Indent is the JSON indentation, two spaces by default.
	Indent string

	Writer io.Writer
}

// Output encodes result to the configured destination. File takes
// precedence over Writer.
func Output(result any, opts OutputOptions) error {
	enc, ok := encoders[opts.Format]
	if !ok {
		return fmt.Errorf("unsupported output format: %s", opts.Format)
	}
	if opts.File == "" {
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		return enc(w, result, opts)
	}

	f, err := os.Create(opts.File)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.File, err)
	}
	if err := enc(f, result, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type encodeFunc func(w io.Writer, result any, opts OutputOptions) error

var encoders = map[OutputFormat]encodeFunc{
	"":         encodeYAML,
	FormatYAML: encodeYAML,
	FormatJSON: encodeJSON,
	FormatRaw:  encodeRaw,
}

func encodeJSON(w io.Writer, result any, opts OutputOptions) error {
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", indent)
	return enc.Encode(result)
}

func encodeYAML(w io.Writer, result any, _ OutputOptions) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	_, err = w.Write(data)
	return err
}

func encodeRaw(w io.Writer, result any, opts OutputOptions) error {
	var err error
	switch v := result.(type) {
	case []byte:
		_, err = w.Write(v)
	case string:
		_, err = io.WriteString(w, v)
	default:
		err = encodeYAML(w, result, opts)
	}
	return err
}
