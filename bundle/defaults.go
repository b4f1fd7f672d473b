package bundle

import (
	"strings"

	"github.com/hazyhaar/pdfbundle/convert"
)

// Watermark resource names of the default type set.
const (
	WatermarkAnschreiben = "WZ_Anschreiben.pdf"
	WatermarkDeckblatt   = "WZ_Deckblatt.pdf"
	WatermarkAllgemein   = "WZ_Allgemein.pdf"
)

// DefaultTypes returns the tax bundle type set: cover letter, cover sheets,
// KSt/USt/ESt returns with their Freizeichnung documents and the annual
// statement.
func DefaultTypes() map[string]DocumentType {
	general := SingleWatermark{Name: WatermarkAllgemein}
	types := map[string]DocumentType{
		"anschreiben": {
			Prefixes:  []string{"BaM"},
			Watermark: SingleWatermark{Name: WatermarkAnschreiben},
			Format:    convert.FormatDocx,
		},
		"deckblatt_steuererklaerung": {
			Prefixes: []string{
				"Deckblatt Einkommensteuer",
				"Deckblatt Körperschaftsteuer",
				"Deckblatt Umsatzsteuer",
				"Deckblatt Steuererklärung",
			},
			Watermark: SingleWatermark{Name: WatermarkDeckblatt},
			Format:    convert.FormatDocx,
		},
		"deckblatt": {
			Prefixes:  []string{"Deckblatt"},
			Watermark: SingleWatermark{Name: WatermarkDeckblatt},
			Format:    convert.FormatDocx,
		},
		"jahresabschluss": {
			Prefixes:  []string{"JA"},
			Watermark: PagedWatermark{First: WatermarkDeckblatt, Rest: WatermarkAllgemein},
			Format:    convert.FormatPDF,
		},
	}
	for _, tax := range []string{"KSt", "USt", "ESt"} {
		id := strings.ToLower(tax)
		types[id+"_freizeichnung"] = DocumentType{
			Prefixes:  []string{tax + " Erklärung Freizeichnungsdokument"},
			Watermark: general,
			Format:    convert.FormatPDF,
		}
		types[id] = DocumentType{
			Prefixes:  []string{tax},
			Exclude:   []string{"Freizeichnungsdokument"},
			Watermark: general,
			Format:    convert.FormatPDF,
		}
	}
	for id, dt := range types {
		dt.ID = id
		types[id] = dt
	}
	return types
}

// DefaultDiscoveryOrder tries the specific patterns before the ones they
// contain ("Deckblatt Einkommensteuer" before "Deckblatt").
func DefaultDiscoveryOrder() []string {
	return []string{
		"anschreiben",
		"deckblatt_steuererklaerung",
		"deckblatt",
		"kst_freizeichnung", "kst",
		"ust_freizeichnung", "ust",
		"est_freizeichnung", "est",
		"jahresabschluss",
	}
}

// DefaultMergeOrder is the order of sections in the output.
func DefaultMergeOrder() []string {
	return []string{
		"anschreiben",
		"deckblatt",
		"deckblatt_steuererklaerung",
		"kst", "kst_freizeichnung",
		"ust", "ust_freizeichnung",
		"est", "est_freizeichnung",
		"jahresabschluss",
	}
}
