package entities

import "strings"

// DrugLookup maps an uppercased raw drug name to its canonical name.
type DrugLookup map[string]string

// Canonical uppercases name and rewrites it through the lookup. Names without
// an entry are returned uppercased.
func (l DrugLookup) Canonical(name string) string {
	upper := strings.ToUpper(name)
	if canonical, ok := l[upper]; ok {
		return canonical
	}
	return upper
}
