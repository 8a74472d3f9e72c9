package dispensingparser

import "strings"

// Substitution replaces one mis-decoded sequence with the intended text.
type Substitution struct {
	Broken  string
	Correct string
}

// DefaultSubstitutions covers the Portuguese letters as they look when UTF-8
// bytes were saved after being read as Windows-1252. Longer patterns that
// share a prefix with shorter ones are listed first.
var DefaultSubstitutions = []Substitution{
	{"NÂº", "Nº"},
	{"Ã§", "ç"},
	{"Ã£", "ã"},
	{"Ã¡", "á"},
	{"Ã©", "é"},
	{"Ã\u00ad", "í"},
	{"Ã³", "ó"},
	{"Ãº", "ú"},
	{"Ãª", "ê"},
	{"Ã´", "ô"},
	{"Ãµ", "õ"},
	{"Ã¢", "â"},
	{"Ã\u00a0", "à"},
	{"Ã‡", "Ç"},
	{"Ãƒ", "Ã"},
	{"Ã‰", "É"},
	{"Ã“", "Ó"},
	{"Ãš", "Ú"},
	{"Ã•", "Õ"},
	{"Ã‚", "Â"},
	{"ÃŠ", "Ê"},
	{"Âº", "º"},
	{"Âª", "ª"},
}

// Repairer applies an ordered substitution table to text.
type Repairer struct {
	replacer *strings.Replacer
}

// NewRepairer builds a repairer for the given table, in order.
func NewRepairer(subs []Substitution) *Repairer {
	pairs := make([]string, 0, len(subs)*2)
	for _, s := range subs {
		pairs = append(pairs, s.Broken, s.Correct)
	}
	return &Repairer{replacer: strings.NewReplacer(pairs...)}
}

// Fix returns s with every known broken sequence replaced. A replacement can
// complete a broken sequence with the text after it ("Ãƒ§"), so passes repeat
// until nothing changes. Every substitution shortens the text, which bounds
// the loop.
func (r *Repairer) Fix(s string) string {
	for strings.ContainsAny(s, "ÃÂ") {
		fixed := r.replacer.Replace(s)
		if fixed == s {
			break
		}
		s = fixed
	}
	return s
}

// RepairTable fixes every cell of the table in place.
func (r *Repairer) RepairTable(t *Table) {
	for _, row := range t.Rows {
		for i := range row {
			row[i] = r.Fix(row[i])
		}
	}
}

// RepairMojibake applies subs to every cell of t.
func RepairMojibake(t *Table, subs []Substitution) {
	NewRepairer(subs).RepairTable(t)
}
