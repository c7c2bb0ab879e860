// Package validation holds the input checks shared by the command line, the
// configuration loader and the preference store.
package validation

import (
	"fmt"
	"path"
	"strings"
)

var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}

// ValidateHost rejects listen hosts carrying shell or markup metacharacters.
func ValidateHost(host string) error {
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}
	if strings.ContainsAny(host, " \t\n\r/") {
		return fmt.Errorf("host %q contains whitespace or a slash", host)
	}
	return nil
}

// ValidateSitePath checks that p is a same-site absolute path such as
// "/tools/luhn". Scheme-relative paths, traversal segments and control
// characters are rejected.
func ValidateSitePath(p string) error {
	if p == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
		return fmt.Errorf("path %q must start with a single /", p)
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return fmt.Errorf("path traversal detected: %s", p)
		}
	}
	if strings.Contains(p, "\\") {
		return fmt.Errorf("path contains a backslash: %s", p)
	}
	for _, r := range p {
		if r < 32 || r == 127 {
			return fmt.Errorf("path contains a control character")
		}
	}

	if clean := path.Clean(p); clean != strings.TrimSuffix(p, "/") && clean != p {
		return fmt.Errorf("path %q is not canonical", p)
	}

	return nil
}

// SanitizeInput removes null bytes and control characters other than common
// whitespace.
func SanitizeInput(input string) string {
	var sanitized strings.Builder
	sanitized.Grow(len(input))
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}
	return sanitized.String()
}
