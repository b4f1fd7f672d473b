package bundle

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/hazyhaar/pdfbundle/convert"
	"github.com/hazyhaar/pdfbundle/internal/pdfgen"
	"github.com/hazyhaar/pdfbundle/pdfinfo"
)

// fixture is a bundle directory layout under t.TempDir().
type fixture struct {
	root, input, watermarks, output string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		root:       root,
		input:      filepath.Join(root, "Input"),
		watermarks: filepath.Join(root, "Watermarks"),
		output:     filepath.Join(root, "Output"),
	}
	for _, d := range []string{f.input, f.watermarks} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return f
}

func writePDF(t *testing.T, path string, pages ...pdfgen.Page) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, pdfgen.Build(pages), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// textPDF writes a one-page A4 PDF showing text.
func (f *fixture) textPDF(t *testing.T, name, text string) string {
	t.Helper()
	return writePDF(t, filepath.Join(f.input, name), pdfgen.TextPage(595, 842, 0, text))
}

func (f *fixture) docx(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(f.input, name)
	if err := os.WriteFile(path, []byte("PK fake docx"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func (f *fixture) watermark(t *testing.T, name string) {
	t.Helper()
	writePDF(t, filepath.Join(f.watermarks, name), pdfgen.BoxPage(595, 842))
}

func (f *fixture) config(types map[string]DocumentType, discovery, merge []string) Config {
	return Config{
		InputDir:       f.input,
		WatermarkDir:   f.watermarks,
		OutputDir:      f.output,
		WorkDir:        f.root,
		Types:          types,
		DiscoveryOrder: discovery,
		MergeOrder:     merge,
	}
}

// fakeOffice "converts" office files into a one-page PDF showing the base
// name of the source.
func fakeOffice() convert.Converter {
	return convert.ByFormat{Office: convert.Func(func(_ context.Context, in, outDir string) (string, error) {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return "", err
		}
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out := filepath.Join(outDir, base+".pdf")
		if err := os.WriteFile(out, pdfgen.Build([]pdfgen.Page{pdfgen.TextPage(595, 842, 0, base)}), 0o644); err != nil {
			return "", err
		}
		return out, nil
	})}
}

// pageTexts returns the decoded content stream of every page of path.
func pageTexts(t *testing.T, path string) []string {
	t.Helper()
	ctx, err := pdfinfo.Open(path, nil)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	out := make([]string, 0, ctx.PageCount)
	for nr := 1; nr <= ctx.PageCount; nr++ {
		r, err := pdfcpu.ExtractPageContent(ctx, nr)
		if err != nil {
			t.Fatalf("page %d: %v", nr, err)
		}
		var b []byte
		if r != nil {
			if b, err = io.ReadAll(r); err != nil {
				t.Fatal(err)
			}
		}
		out = append(out, string(b))
	}
	return out
}

func names(files []InputFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}
