package dashboard

import (
	"sort"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

// PatientOptions lists the choices of each patient filter
type PatientOptions struct {
	Facilities  []string `json:"facility"`
	Statuses    []string `json:"status"`
	Drugs       []string `json:"drug"`
	ActionTypes []string `json:"action"`
}

// DistributionOptions lists the choices of each distribution filter
type DistributionOptions struct {
	Destinations []string `json:"destination"`
	Drugs        []string `json:"drug"`
}

// FilterOptions returns the sorted distinct non-empty values of every
// patient filter column
func FilterOptions(records []entities.PatientRecord) PatientOptions {
	facilities, statuses, drugs, actions := newDistinct(), newDistinct(), newDistinct(), newDistinct()
	for _, r := range records {
		facilities.add(r.UnidadeDispensadora)
		statuses.add(r.Status)
		drugs.add(r.Medicamento)
		actions.add(r.TipoAcao)
	}
	return PatientOptions{
		Facilities:  facilities.sorted(),
		Statuses:    statuses.sorted(),
		Drugs:       drugs.sorted(),
		ActionTypes: actions.sorted(),
	}
}

// DistributionFilterOptions does the same for the distribution filters
func DistributionFilterOptions(records []entities.DistributionRecord) DistributionOptions {
	destinations, drugs := newDistinct(), newDistinct()
	for _, r := range records {
		destinations.add(r.UnidadeDestino)
		drugs.add(r.Medicamento)
	}
	return DistributionOptions{
		Destinations: destinations.sorted(),
		Drugs:        drugs.sorted(),
	}
}

type distinct map[string]struct{}

func newDistinct() distinct { return make(distinct) }

func (d distinct) add(v string) {
	if v != "" {
		d[v] = struct{}{}
	}
}

func (d distinct) sorted() []string {
	out := make([]string, 0, len(d))
	for v := range d {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
