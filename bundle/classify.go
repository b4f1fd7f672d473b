package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/hazyhaar/pdfbundle/convert"
)

var separators = strings.NewReplacer("-", " ", "_", " ")

// Normalize folds case and maps '-' and '_' to spaces, so "ESt-Erklärung",
// "ESt_Erklärung" and "est erklärung" compare equal. Names are brought to
// NFC first so decomposed umlauts (macOS file names) match composed ones.
// Normalize is idempotent.
func Normalize(name string) string {
	return separators.Replace(norm.NFC.String(cases.Fold().String(norm.NFC.String(name))))
}

// Classify binds each file to the first type in order whose prefixes match
// its normalized name and whose exclusions do not. Files matching no type
// are left out. Per-type lists keep the order of files.
func Classify(files []InputFile, types map[string]DocumentType, order []string) ClassifiedSet {
	normalized := make([]string, len(files))
	for i, f := range files {
		normalized[i] = Normalize(f.Name)
	}

	set := ClassifiedSet{}
	bound := make(map[string]bool, len(files))
	for _, id := range order {
		dt, ok := types[id]
		if !ok {
			continue
		}
		if _, done := set[id]; done {
			continue
		}
		prefixes := normalizeAll(dt.Prefixes)
		exclude := normalizeAll(dt.Exclude)
		for i, f := range files {
			if bound[f.Path] {
				continue
			}
			if !containsAny(normalized[i], prefixes) || containsAny(normalized[i], exclude) {
				continue
			}
			bound[f.Path] = true
			set[id] = append(set[id], f)
		}
	}
	return set
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Discover lists the candidate input files of dir sorted by name: regular
// files with a supported extension, skipping hidden files and office lock
// files ("~$BaM.docx"). Subdirectories are not descended into.
func Discover(dir string) ([]InputFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	var files []InputFile
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if _, err := convert.Detect(name); err != nil {
			continue
		}
		files = append(files, InputFile{Path: filepath.Join(abs, name), Name: name})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
