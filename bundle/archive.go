package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// maxSuffix bounds the search for a free archive name.
const maxSuffix = 10_000

// Relocate moves src into dir and returns the new path. An existing file of
// the same name is never overwritten: the moved file becomes name_1.ext,
// name_2.ext, and so on.
func Relocate(src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("relocate %s: %w", filepath.Base(src), err)
	}
	dst, err := freePath(dir, filepath.Base(src))
	if err != nil {
		return "", err
	}
	if err := os.Rename(src, dst); err != nil {
		// Rename fails across filesystems; fall back to copy and remove.
		if cerr := copyFile(src, dst); cerr != nil {
			os.Remove(dst)
			return "", fmt.Errorf("relocate %s: %w", filepath.Base(src), errors.Join(err, cerr))
		}
		if rerr := os.Remove(src); rerr != nil {
			return dst, fmt.Errorf("relocate %s: copied but source kept: %w", filepath.Base(src), rerr)
		}
	}
	return dst, nil
}

// freePath returns dir/name, or the first dir/base_N.ext that does not exist.
func freePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	candidate := filepath.Join(dir, name)
	for n := 1; n <= maxSuffix; n++ {
		if _, err := os.Lstat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
		candidate = filepath.Join(dir, base+"_"+strconv.Itoa(n)+ext)
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}
