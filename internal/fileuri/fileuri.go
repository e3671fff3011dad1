// Package fileuri converts between file:// URIs and filesystem paths.
package fileuri

import (
	"net/url"
	"path/filepath"
)

// ToPath returns the absolute filesystem path for a file URI, or "" when the
// URI uses another scheme or cannot be parsed. Bare paths are accepted.
func ToPath(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	if parsed.Scheme != "" && parsed.Scheme != "file" {
		// Windows drive letters parse as a one-letter scheme.
		if len(parsed.Scheme) != 1 {
			return ""
		}
		return Clean(uri)
	}
	path := parsed.Path
	if parsed.Scheme == "" {
		path = uri
	}
	if unescaped, err := url.PathUnescape(path); err == nil {
		path = unescaped
	}
	return Clean(path)
}

// FromPath returns the file URI of path, made absolute first.
func FromPath(path string) string {
	if path == "" {
		return ""
	}
	path = Clean(path)
	slashed := filepath.ToSlash(path)
	if len(slashed) > 0 && slashed[0] != '/' {
		slashed = "/" + slashed
	}
	u := url.URL{Scheme: "file", Path: slashed}
	return u.String()
}

// Canonical normalizes a document URI so that two spellings of the same
// file compare equal. Non-file URIs are returned unchanged.
func Canonical(uri string) string {
	path := ToPath(uri)
	if path == "" {
		return uri
	}
	return FromPath(path)
}

// Clean returns the absolute, cleaned form of path.
func Clean(path string) string {
	if path == "" {
		return ""
	}
	candidate := filepath.FromSlash(path)
	if abs, err := filepath.Abs(candidate); err == nil {
		candidate = abs
	}
	return filepath.Clean(candidate)
}

// Within reports whether path lies inside root (or equals it).
func Within(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	rel, err := filepath.Rel(Clean(root), Clean(path))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !hasParentPrefix(rel)
}

func hasParentPrefix(rel string) bool {
	prefix := ".." + string(filepath.Separator)
	return len(rel) >= len(prefix) && rel[:len(prefix)] == prefix
}
