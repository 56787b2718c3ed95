package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sigs.k8s.io/yaml"
)

// OutputFormat specifies the output format.
type OutputFormat string

const (
	// FormatYAML outputs in YAML format.
	FormatYAML OutputFormat = "yaml"

	// FormatJSON outputs in JSON format.
	FormatJSON OutputFormat = "json"
)

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// ParseFormat parses a string into an OutputFormat.
func ParseFormat(s string) (OutputFormat, bool) {
	switch strings.ToLower(s) {
	case "yaml", "yml":
		return FormatYAML, true
	case "json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// Write serializes v to w in the given format.
func Write(w io.Writer, v any, format OutputFormat) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	case FormatYAML:
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}
