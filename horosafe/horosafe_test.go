package horosafe

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSafePath(t *testing.T) {
	base := filepath.FromSlash("/data/Watermarks")
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"WZ_Allgemein.pdf", "/data/Watermarks/WZ_Allgemein.pdf", false},
		{"sub/WZ.pdf", "/data/Watermarks/sub/WZ.pdf", false},
		{"WZ..final.pdf", "/data/Watermarks/WZ..final.pdf", false},
		{"../secrets.pdf", "", true},
		{"sub/../../x.pdf", "", true},
		{`..\x.pdf`, "", true},
	}
	for _, tt := range tests {
		got, err := SafePath(base, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q) error=%v, wantErr=%v", tt.name, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrPathTraversal) {
				t.Errorf("SafePath(%q) = %v, want ErrPathTraversal", tt.name, err)
			}
			continue
		}
		if got != filepath.FromSlash(tt.want) {
			t.Errorf("SafePath(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestValidateFileName(t *testing.T) {
	for _, ok := range []string{"WZ_Allgemein.pdf", "Gesamtdokument.pdf", "KSt Erklärung 2024.pdf"} {
		if err := ValidateFileName(ok); err != nil {
			t.Errorf("ValidateFileName(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", ".", "..", "a/b.pdf", `a\b.pdf`, "tab\there.pdf"} {
		if err := ValidateFileName(bad); err == nil {
			t.Errorf("ValidateFileName(%q): expected error", bad)
		}
	}
}

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"kst", "kst_freizeichnung", "deckblatt-2", "ja.v1"} {
		if err := ValidateIdentifier(ok); err != nil {
			t.Errorf("ValidateIdentifier(%q): %v", ok, err)
		}
	}
	for _, bad := range []string{"", "kst erklärung", "a/b", "x;drop"} {
		if err := ValidateIdentifier(bad); err == nil {
			t.Errorf("ValidateIdentifier(%q): expected error", bad)
		}
	}
}
