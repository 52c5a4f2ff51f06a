package host

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// FileReference builds the data reference for an installable artifact. A
// scoped content reference is used when the host requires one, a raw
// file:// reference otherwise. The choice is made once and never retried.
func FileReference(caps Capabilities, platform Platform, path string) (string, error) {
	if caps.ScopedFileProviderRequired {
		ref, err := platform.ContentReference(path)
		if err != nil {
			return "", fmt.Errorf("content reference for %s: %w", path, err)
		}
		return ref, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

// ContentURI renders content://<authority>/<escaped path>.
func ContentURI(authority, path string) string {
	return (&url.URL{Scheme: "content", Host: authority, Path: "/" + trimLeadingSlash(filepath.ToSlash(path))}).String()
}

func trimLeadingSlash(p string) string {
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
