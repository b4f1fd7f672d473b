package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Soffice converts office documents with a headless LibreOffice.
type Soffice struct {
	// Binary is the soffice executable (default: "soffice" from PATH).
	Binary string
	// Timeout bounds one conversion (default: 2 minutes).
	Timeout time.Duration
	// Logger for debug/error messages.
	Logger *slog.Logger
}

func (s Soffice) binary() string {
	if s.Binary == "" {
		return "soffice"
	}
	return s.Binary
}

func (s Soffice) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// Convert runs soffice --headless --convert-to pdf into outDir.
func (s Soffice) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("stat %s: %w", inputPath, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// A private profile dir keeps parallel conversions from fighting over
	// the user's LibreOffice lock file.
	profile, err := os.MkdirTemp(outDir, "lo-profile-")
	if err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}
	defer os.RemoveAll(profile)

	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(profile),
		"--headless", "--norestore",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	}
	cmd := exec.CommandContext(ctx, s.binary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	s.logger().Debug("converting document", "path", inputPath, "binary", s.binary())
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("soffice timed out after %s: %w", timeout, ctx.Err())
		}
		return "", fmt.Errorf("soffice: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	out := filepath.Join(outDir, base+".pdf")
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("soffice produced no pdf for %s: %w", filepath.Base(inputPath), err)
	}
	s.logger().Debug("converted document", "path", inputPath, "pdf", out, "duration", time.Since(start))
	return out, nil
}
