package bundle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func inputs(names ...string) []InputFile {
	out := make([]InputFile, len(names))
	for i, n := range names {
		out[i] = InputFile{Path: "/in/" + n, Name: n}
	}
	return out
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ESt-Erklärung", "est erklärung"},
		{"ESt_Erklärung", "est erklärung"},
		{"KSt Erklärung", "kst erklärung"},
		{"BaM_Anschreiben", "bam anschreiben"},
		{"Ja\u0308hrlich", "j\u00e4hrlich"}, // decomposed umlaut
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, s := range []string{
		"BaM Übersendung JA digital 2024.docx",
		"KSt_Erklärung-Freizeichnungsdokument 2024.PDF",
		"Straße ÄÖÜ",
		"Jährlich",
		"",
	} {
		once := Normalize(s)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func kstTypes() map[string]DocumentType {
	return map[string]DocumentType{
		"anschreiben":       {ID: "anschreiben", Prefixes: []string{"BaM"}},
		"kst_freizeichnung": {ID: "kst_freizeichnung", Prefixes: []string{"KSt Erklärung Freizeichnungsdokument"}},
		"kst":               {ID: "kst", Prefixes: []string{"KSt"}, Exclude: []string{"Freizeichnungsdokument"}},
	}
}

func TestClassify_Scenario(t *testing.T) {
	// WHAT: the Freizeichnung file goes to kst_freizeichnung, the other KSt
	// file to kst, the letter to anschreiben.
	files := inputs("BaM_Anschreiben.docx", "KSt Erklärung 2024.pdf", "KSt Erklärung Freizeichnungsdokument 2024.pdf")
	got := Classify(files, kstTypes(), []string{"kst_freizeichnung", "kst", "anschreiben"})

	want := map[string][]string{
		"anschreiben":       {"BaM_Anschreiben.docx"},
		"kst":               {"KSt Erklärung 2024.pdf"},
		"kst_freizeichnung": {"KSt Erklärung Freizeichnungsdokument 2024.pdf"},
	}
	gotNames := map[string][]string{}
	for id, fs := range got {
		gotNames[id] = names(fs)
	}
	if diff := cmp.Diff(want, gotNames); diff != "" {
		t.Fatalf("classified (-want +got):\n%s", diff)
	}
}

func TestClassify_Priority(t *testing.T) {
	// WHAT: a file matching two types goes to the one earlier in order.
	types := map[string]DocumentType{
		"deckblatt_steuererklaerung": {Prefixes: []string{"Deckblatt Einkommensteuer"}},
		"deckblatt":                  {Prefixes: []string{"Deckblatt"}},
	}
	files := inputs("Deckblatt Einkommensteuer 2024.docx", "Deckblatt 2024.docx")

	got := Classify(files, types, []string{"deckblatt_steuererklaerung", "deckblatt"})
	if diff := cmp.Diff([]string{"Deckblatt Einkommensteuer 2024.docx"}, names(got["deckblatt_steuererklaerung"])); diff != "" {
		t.Errorf("specific type (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Deckblatt 2024.docx"}, names(got["deckblatt"])); diff != "" {
		t.Errorf("generic type (-want +got):\n%s", diff)
	}

	// Reversed order: the generic type swallows both.
	got = Classify(files, types, []string{"deckblatt", "deckblatt_steuererklaerung"})
	if len(got["deckblatt"]) != 2 {
		t.Errorf("generic first should bind both, got %v", names(got["deckblatt"]))
	}
	if _, ok := got["deckblatt_steuererklaerung"]; ok {
		t.Error("empty type must be absent")
	}
}

func TestClassify_ExclusionFallsThrough(t *testing.T) {
	// WHAT: an excluded file stays available for later types.
	files := inputs("KSt Erklärung Freizeichnungsdokument 2024.pdf")
	got := Classify(files, kstTypes(), []string{"kst", "kst_freizeichnung"})
	if _, ok := got["kst"]; ok {
		t.Fatal("excluded file bound to kst")
	}
	if len(got["kst_freizeichnung"]) != 1 {
		t.Fatalf("file should fall through to kst_freizeichnung: %v", got)
	}
}

func TestClassify_SeparatorsAndCase(t *testing.T) {
	types := map[string]DocumentType{"est": {Prefixes: []string{"ESt Erklärung"}}}
	files := inputs("ESt-Erklärung 2024.pdf", "est_erklärung_2023.pdf", "ESTERKLÄRUNG.pdf")
	got := Classify(files, types, []string{"est"})
	if diff := cmp.Diff([]string{"ESt-Erklärung 2024.pdf", "est_erklärung_2023.pdf"}, names(got["est"])); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	files := inputs("BaM 1.docx", "BaM 2.docx", "KSt A.pdf", "KSt B.pdf", "Rechnung.pdf")
	order := []string{"kst_freizeichnung", "kst", "anschreiben"}
	first := Classify(files, kstTypes(), order)
	for i := 0; i < 20; i++ {
		if diff := cmp.Diff(first, Classify(files, kstTypes(), order)); diff != "" {
			t.Fatalf("run %d differs:\n%s", i, diff)
		}
	}
	if diff := cmp.Diff([]string{"BaM 1.docx", "BaM 2.docx"}, names(first["anschreiben"])); diff != "" {
		t.Fatalf("listing order not kept (-want +got):\n%s", diff)
	}
}

func TestClassify_EmptyAndUnknown(t *testing.T) {
	if got := Classify(nil, kstTypes(), []string{"kst"}); len(got) != 0 {
		t.Fatalf("empty input: %v", got)
	}
	// Unknown IDs in order are ignored by the classifier (Validate rejects them).
	got := Classify(inputs("KSt.pdf"), kstTypes(), []string{"nope", "kst"})
	if len(got["kst"]) != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestClassify_DefaultTypes(t *testing.T) {
	// WHAT: the default type set separates ESt, its Freizeichnung document
	// and the ESt cover sheet.
	files := inputs(
		"BaM Übersendung JA digital 2024.docx",
		"Deckblatt Einkommensteuer 2024.docx",
		"ESt Erklärung 2024.pdf",
		"ESt Erklärung Freizeichnungsdokument 2024.pdf",
		"JA 2024.pdf",
	)
	got := Classify(files, DefaultTypes(), DefaultDiscoveryOrder())
	want := map[string][]string{
		"anschreiben":                {"BaM Übersendung JA digital 2024.docx"},
		"deckblatt_steuererklaerung": {"Deckblatt Einkommensteuer 2024.docx"},
		"est":                        {"ESt Erklärung 2024.pdf"},
		"est_freizeichnung":          {"ESt Erklärung Freizeichnungsdokument 2024.pdf"},
		"jahresabschluss":            {"JA 2024.pdf"},
	}
	gotNames := map[string][]string{}
	for id, fs := range got {
		gotNames[id] = names(fs)
	}
	if diff := cmp.Diff(want, gotNames); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"b.pdf", "a.docx", ".hidden.pdf", "~$a.docx", "notes.txt", "c.RTF"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a.docx", "b.pdf", "c.RTF"}, names(files)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("path %q not absolute", f.Path)
		}
	}

	if _, err := Discover(filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing dir")
	}
}
