package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

// Assemble concatenates the pages of paths in list order into out. A single
// path is returned unchanged and out is not written. Nothing is reordered
// or deduplicated.
func Assemble(ctx context.Context, paths []string, out string) (string, error) {
	switch len(paths) {
	case 0:
		return "", errors.New("assemble: no input")
	case 1:
		return paths[0], nil
	}
	if err := concat(ctx, paths, out); err != nil {
		return "", fmt.Errorf("assemble %d files: %w", len(paths), err)
	}
	return out, nil
}

// concat writes the pages of paths to out through a temp file in out's
// directory, so out is either complete or absent.
func concat(ctx context.Context, paths []string, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(out), ".merge-*.pdf")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if len(paths) == 1 {
		err = copyFile(paths[0], tmpPath)
	} else {
		err = api.MergeCreateFile(paths, tmpPath, false, pdfinfo.NewConfiguration())
	}
	if err != nil {
		return err
	}
	return os.Rename(tmpPath, out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
