package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addFormatFlag registers the shared --format/-f flag on cmd.
func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "format", "f", "text", "Output format (text|json|yaml)")
	AddFlagValidation(cmd, "format", func(format string) error {
		return ValidateFormatWithSuggestion(format, outputFormats)
	})
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(flagName)
	}
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateFormatWithSuggestion rejects formats outside allowed and suggests
// one starting with the same letter.
func ValidateFormatWithSuggestion(format string, allowed []string) error {
	lower := strings.ToLower(format)
	for _, a := range allowed {
		if lower == a {
			return nil
		}
	}
	for _, a := range allowed {
		if lower != "" && lower[0] == a[0] {
			return fmt.Errorf("invalid format %q, did you mean %q?", format, a)
		}
	}
	return fmt.Errorf("invalid format %q (supported: %s)", format, strings.Join(allowed, ", "))
}

// ValidatePort checks a port flag value.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateFileExists checks an optional path flag.
func ValidateFileExists(filename string) error {
	if filename == "" {
		return nil
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", filename)
	}

	return nil
}
