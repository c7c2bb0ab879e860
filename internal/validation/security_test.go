package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateHost(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		wantErr bool
	}{
		{name: "empty binds all", host: "", wantErr: false},
		{name: "localhost", host: "localhost", wantErr: false},
		{name: "ipv4", host: "127.0.0.1", wantErr: false},
		{name: "ipv6", host: "::1", wantErr: false},
		{name: "semicolon", host: "localhost; rm -rf /", wantErr: true},
		{name: "backtick", host: "`whoami`", wantErr: true},
		{name: "slash", host: "example.com/x", wantErr: true},
		{name: "space", host: "local host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHost(tt.host)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSitePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "root", path: "/", wantErr: false},
		{name: "tool page", path: "/tools/luhn", wantErr: false},
		{name: "trailing slash", path: "/tools/", wantErr: false},
		{name: "with query", path: "/tools/lorem?paragraphs=2", wantErr: false},
		{name: "empty", path: "", wantErr: true},
		{name: "relative", path: "tools/luhn", wantErr: true},
		{name: "scheme relative", path: "//evil.example", wantErr: true},
		{name: "absolute url", path: "https://evil.example/", wantErr: true},
		{name: "traversal", path: "/tools/../../etc/passwd", wantErr: true},
		{name: "dot segment", path: "/tools/./luhn", wantErr: true},
		{name: "double slash", path: "/tools//luhn", wantErr: true},
		{name: "backslash", path: "/tools\\luhn", wantErr: true},
		{name: "control character", path: "/tools/\x00luhn", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSitePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello world", want: "hello world"},
		{name: "keeps whitespace", input: "a\tb\nc\r", want: "a\tb\nc\r"},
		{name: "drops null", input: "a\x00b", want: "ab"},
		{name: "drops escape", input: "\x1b[31mred", want: "[31mred"},
		{name: "unicode", input: "héllo 世界", want: "héllo 世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeInput(tt.input))
		})
	}
}
