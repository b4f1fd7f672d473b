// CLAUDE:SUMMARY Converter contract (source file -> PDF path), extension-based format detection, passthrough and routing converters.
// Package convert turns input files into PDFs the rest of the bundle can
// address page by page.
//
// Supported inputs:
//   - .pdf                  passthrough (the source path is returned as is)
//   - .docx .doc .odt .rtf  LibreOffice headless conversion (see Soffice)
//
// Converters never modify their input; results are written under outDir.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a source document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDocx Format = "docx"
	FormatDoc  Format = "doc"
	FormatODT  Format = "odt"
	FormatRTF  Format = "rtf"
)

// Convertible reports whether f needs a converter to become a PDF.
func (f Format) Convertible() bool {
	switch f {
	case FormatDocx, FormatDoc, FormatODT, FormatRTF:
		return true
	}
	return false
}

// ParseFormat validates a format name taken from configuration.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPDF, FormatDocx, FormatDoc, FormatODT, FormatRTF:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %q", s)
}

// Detect returns the document format based on file extension.
func Detect(path string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("no extension: %q", filepath.Base(path))
	}
	return ParseFormat(ext)
}

// SupportedExtensions returns the extensions Detect recognizes.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".doc", ".odt", ".rtf"}
}

// Converter turns inputPath into a PDF and returns the PDF's path.
type Converter interface {
	Convert(ctx context.Context, inputPath, outDir string) (string, error)
}

// Func adapts a plain function to the Converter interface.
type Func func(ctx context.Context, inputPath, outDir string) (string, error)

// Convert calls f.
func (f Func) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	return f(ctx, inputPath, outDir)
}

// Passthrough returns PDF inputs unchanged and rejects everything else.
type Passthrough struct{}

// Convert implements Converter.
func (Passthrough) Convert(_ context.Context, inputPath, _ string) (string, error) {
	f, err := Detect(inputPath)
	if err != nil {
		return "", err
	}
	if f != FormatPDF {
		return "", fmt.Errorf("passthrough: %s is %s, not pdf", filepath.Base(inputPath), f)
	}
	return inputPath, nil
}

// ByFormat routes PDFs to Passthrough and everything convertible to Office.
type ByFormat struct {
	Office Converter
}

// Convert implements Converter.
func (b ByFormat) Convert(ctx context.Context, inputPath, outDir string) (string, error) {
	f, err := Detect(inputPath)
	if err != nil {
		return "", err
	}
	if !f.Convertible() {
		return Passthrough{}.Convert(ctx, inputPath, outDir)
	}
	if b.Office == nil {
		return "", fmt.Errorf("no converter configured for %s", f)
	}
	return b.Office.Convert(ctx, inputPath, outDir)
}
