package domain

import (
	"fmt"
	"path"
	"strings"
)

// ManifestFile is written next to exported code, so generated files may not use it.
const ManifestFile = "codegen-manifest.json"

// CleanFilePath normalizes a generated file path and rejects anything that is
// absolute, escapes its root or collides with the manifest.
func CleanFilePath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	clean := path.Clean(p)
	if p == "" || path.IsAbs(p) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: unsafe file path %q", ErrInvalidInput, p)
	}
	if clean == ManifestFile {
		return "", fmt.Errorf("%w: file path %q is reserved", ErrInvalidInput, p)
	}
	return clean, nil
}

// CleanFiles applies CleanFilePath to every file and rejects duplicates.
func CleanFiles(files []CodeFile) ([]CodeFile, error) {
	out := make([]CodeFile, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		clean, err := CleanFilePath(f.Path)
		if err != nil {
			return nil, err
		}
		if seen[clean] {
			return nil, fmt.Errorf("%w: duplicate file path %q", ErrInvalidInput, clean)
		}
		seen[clean] = true
		out = append(out, CodeFile{Path: clean, Content: f.Content})
	}
	return out, nil
}
