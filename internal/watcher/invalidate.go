package watcher

import (
	"path"
	"path/filepath"
	"strings"
)

// Invalidator drops cached responses for a URL path.
type Invalidator interface {
	Invalidate(path string) int
}

// URLPath maps a file below root to the URL it is served at under
// prefix. It reports false for files outside root.
func URLPath(root, prefix, file string) (string, bool) {
	rel, err := filepath.Rel(root, file)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return path.Join("/", prefix, filepath.ToSlash(rel)), true
}

// InvalidateHandler returns a handler that drops the cached copy of every
// changed file served from root under prefix. Directory indexes are
// dropped with the file, so index.html changes also clear "<dir>/".
func InvalidateHandler(root, prefix string, inv Invalidator, onInvalidate func(urlPath string, removed int)) ChangeHandler {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return func(events []ChangeEvent) error {
		for _, ev := range events {
			urlPath, ok := URLPath(root, prefix, ev.Path)
			if !ok {
				continue
			}
			removed := inv.Invalidate(urlPath)
			if path.Base(urlPath) == "index.html" {
				dir := path.Dir(urlPath)
				if dir != "/" {
					dir += "/"
				}
				removed += inv.Invalidate(dir)
			}
			if onInvalidate != nil {
				onInvalidate(urlPath, removed)
			}
		}
		return nil
	}
}
