package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateUpstream parses and checks the origin a proxy forwards to. Only
// http and https origins with a host are accepted; a query or fragment is
// rejected because requests are joined onto the origin's path.
func ValidateUpstream(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("upstream URL cannot be empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	if strings.ContainsAny(rawURL, " \n\r") {
		return nil, fmt.Errorf("URL contains whitespace")
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("URL must have a valid hostname")
	}

	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return nil, fmt.Errorf("upstream URL must not carry a query or fragment")
	}

	return parsed, nil
}

// ValidateOrigin checks a configured CORS origin. "*" is accepted as the
// wildcard; anything else must be a bare scheme://host[:port].
func ValidateOrigin(origin string) error {
	if origin == "*" {
		return nil
	}
	if origin == "" {
		return fmt.Errorf("origin cannot be empty")
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("invalid origin format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid origin scheme '%s': only http and https are allowed", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("origin %q has no host", origin)
	}
	if (parsed.Path != "" && parsed.Path != "/") || parsed.RawQuery != "" || parsed.Fragment != "" {
		return fmt.Errorf("origin %q must not carry a path, query or fragment", origin)
	}

	return nil
}
