// Package horosafe guards the file names and identifiers that come from
// configuration before they touch the filesystem.
package horosafe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a configured name escapes its base dir.
var ErrPathTraversal = errors.New("horosafe: path traversal detected")

// SafePath joins base and name and verifies the result stays under base.
// Returns the cleaned path or ErrPathTraversal.
func SafePath(base, name string) (string, error) {
	for _, part := range strings.FieldsFunc(name, isSeparator) {
		if part == ".." {
			return "", ErrPathTraversal
		}
	}
	root := filepath.Clean(base)
	cleaned := filepath.Join(root, filepath.Clean("/"+name))
	if cleaned != root && !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// ValidateFileName accepts a single path element: no separators, not "." or
// "..", no control characters.
func ValidateFileName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("horosafe: file name must not be empty")
	case name == "." || name == "..":
		return ErrPathTraversal
	case strings.IndexFunc(name, isSeparator) >= 0:
		return fmt.Errorf("horosafe: file name %q contains a path separator", name)
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return fmt.Errorf("horosafe: control character in file name %q", name)
		}
	}
	return nil
}

// ValidateIdentifier rejects identifiers unsuitable for journal rows, file
// names and config keys. Allows ASCII letters, digits, underscore, hyphen and
// dot.
func ValidateIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("horosafe: identifier must not be empty")
	}
	if len(s) > 128 {
		return fmt.Errorf("horosafe: identifier too long (max 128)")
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("horosafe: invalid character %q in identifier", r)
		}
	}
	return nil
}

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.'
}

func isSeparator(r rune) bool { return r == '/' || r == '\\' }
