// CLAUDE:SUMMARY Minimal single-pass PDF serializer for synthesized overlays and test fixtures (uncompressed streams, exact xref offsets).
// Package pdfgen writes small, valid PDF files from raw content streams.
//
// It only knows what the bundle needs to synthesize: pages of a given size
// and rotation, one content stream per page and the standard 14 fonts.
// Anything read from disk goes through pdfcpu instead.
package pdfgen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Page describes one page to serialize.
type Page struct {
	Width, Height float64
	Rotate        int
	Content       string
	// Fonts maps resource names (F1) to standard 14 base font names
	// (Helvetica-Bold). All fonts use WinAnsiEncoding.
	Fonts map[string]string
}

// Build serializes pages into a complete PDF document.
func Build(pages []Page) []byte {
	w := &writer{}
	w.b.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// Object numbers: 1 catalog, 2 page tree, then fonts, then page/content pairs.
	fontObj := map[string]int{}
	var baseFonts []string
	for _, p := range pages {
		for _, base := range p.Fonts {
			if _, ok := fontObj[base]; !ok {
				fontObj[base] = 0
				baseFonts = append(baseFonts, base)
			}
		}
	}
	sort.Strings(baseFonts)
	next := 3
	for _, base := range baseFonts {
		fontObj[base] = next
		next++
	}
	pageObj := make([]int, len(pages))
	for i := range pages {
		pageObj[i] = next
		next += 2
	}

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i, nr := range pageObj {
		kids[i] = strconv.Itoa(nr) + " 0 R"
	}
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	for _, base := range baseFonts {
		w.object(fontObj[base], fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /%s /Encoding /WinAnsiEncoding >>", base))
	}

	for i, p := range pages {
		var res strings.Builder
		res.WriteString("<< ")
		if len(p.Fonts) > 0 {
			names := make([]string, 0, len(p.Fonts))
			for name := range p.Fonts {
				names = append(names, name)
			}
			sort.Strings(names)
			res.WriteString("/Font << ")
			for _, name := range names {
				fmt.Fprintf(&res, "/%s %d 0 R ", name, fontObj[p.Fonts[name]])
			}
			res.WriteString(">> ")
		}
		res.WriteString(">>")

		var dict strings.Builder
		fmt.Fprintf(&dict, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s]",
			Num(p.Width), Num(p.Height))
		if p.Rotate != 0 {
			fmt.Fprintf(&dict, " /Rotate %d", p.Rotate)
		}
		fmt.Fprintf(&dict, " /Resources %s /Contents %d 0 R >>", res.String(), pageObj[i]+1)
		w.object(pageObj[i], dict.String())
		w.stream(pageObj[i]+1, p.Content)
	}

	w.trailer(next)
	return []byte(w.b.String())
}

// Num formats a number the way content streams expect it: no exponent, no
// trailing zeros.
func Num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String encodes raw bytes as a PDF literal string, parentheses included.
// Bytes outside printable ASCII are written as octal escapes.
func String(raw []byte) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, c := range raw {
		switch {
		case c == '(' || c == ')' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c < 0x20 || c > 0x7e:
			fmt.Fprintf(&sb, "\\%03o", c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

type writer struct {
	b       strings.Builder
	offsets map[int]int
}

func (w *writer) object(nr int, body string) {
	if w.offsets == nil {
		w.offsets = map[int]int{}
	}
	w.offsets[nr] = w.b.Len()
	fmt.Fprintf(&w.b, "%d 0 obj\n%s\nendobj\n", nr, body)
}

func (w *writer) stream(nr int, content string) {
	if w.offsets == nil {
		w.offsets = map[int]int{}
	}
	w.offsets[nr] = w.b.Len()
	fmt.Fprintf(&w.b, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", nr, len(content), content)
}

func (w *writer) trailer(size int) {
	xref := w.b.Len()
	fmt.Fprintf(&w.b, "xref\n0 %d\n", size)
	w.b.WriteString("0000000000 65535 f \n")
	for nr := 1; nr < size; nr++ {
		fmt.Fprintf(&w.b, "%010d 00000 n \n", w.offsets[nr])
	}
	fmt.Fprintf(&w.b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
}

// TextPage returns a page that shows text in Helvetica near the top-left
// corner of its media box.
func TextPage(width, height float64, rotate int, text string) Page {
	return Page{
		Width:   width,
		Height:  height,
		Rotate:  rotate,
		Content: fmt.Sprintf("BT\n/F1 12 Tf\n72 %s Td\n%s Tj\nET", Num(height-72), String([]byte(text))),
		Fonts:   map[string]string{"F1": "Helvetica"},
	}
}

// BoxPage returns a page with a stroked border inset by 10 units, the shape
// used for watermark fixtures.
func BoxPage(width, height float64) Page {
	return Page{
		Width:   width,
		Height:  height,
		Content: fmt.Sprintf("0.5 0.5 0.5 RG\n10 10 %s %s re\nS", Num(width-20), Num(height-20)),
	}
}
