package geocoding

import "strings"

// Street-suffix abbreviations known to improve hit rates with the free
// providers. Applied whole-word only: the word must be preceded by a space
// and followed by a space, period or comma, so "Roadside" or a trailing
// "street" at the end of the input are never touched.
var suffixAbbreviations = []struct {
	full   string
	abbrev string
}{
	{"road", "rd"},
	{"street", "st"},
	{"avenue", "ave"},
	{"boulevard", "blvd"},
	{"drive", "dr"},
	{"lane", "ln"},
	{"circle", "cir"},
	{"court", "ct"},
	{"place", "pl"},
	{"terrace", "ter"},
	{"highway", "hwy"},
	{"parkway", "pkwy"},
}

// NormalizeAddress collapses whitespace and abbreviates street suffixes.
// Idempotent: normalizing an already-normalized address returns it unchanged.
func NormalizeAddress(address string) string {
	if address == "" {
		return address
	}

	cleaned := strings.Join(strings.Fields(address), " ")

	for _, r := range suffixAbbreviations {
		cleaned = strings.ReplaceAll(cleaned, " "+r.full+" ", " "+r.abbrev+" ")
		cleaned = strings.ReplaceAll(cleaned, " "+r.full+".", " "+r.abbrev+".")
		cleaned = strings.ReplaceAll(cleaned, " "+r.full+",", " "+r.abbrev+",")
	}

	return cleaned
}
