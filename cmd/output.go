package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// outputFormats are the values accepted by every --format flag.
var outputFormats = []string{"text", "json", "yaml"}

// writeOutput prints v in format. Text output is the given lines.
func writeOutput(w io.Writer, format string, v interface{}, lines []string) error {
	switch strings.ToLower(format) {
	case "", "text":
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(outputFormats, ", "))
	}
}
