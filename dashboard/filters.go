// Package dashboard filters the loaded tables and derives the figures shown
// by each view: the per-drug summary, the headline metrics and the choices
// offered for every filter.
package dashboard

import (
	"strings"
	"time"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

// AllUnits is shown when no facility is selected.
const AllUnits = "Todas as Unidades"

// PatientFilter holds the selections of the patient views. An empty selection
// does not restrict its column.
type PatientFilter struct {
	Facilities  []string
	Statuses    []string
	Drugs       []string
	ActionTypes []string
}

// DistributionFilter holds the selections of the distribution view. Period
// restricts the view only when it holds exactly two dates.
type DistributionFilter struct {
	Destinations []string
	Drugs        []string
	Period       []time.Time
}

type selection map[string]struct{}

func newSelection(values []string) selection {
	if len(values) == 0 {
		return nil
	}
	s := make(selection, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// allows reports whether value passes; a nil selection allows everything
func (s selection) allows(value string) bool {
	if s == nil {
		return true
	}
	_, ok := s[value]
	return ok
}

// FilterPatients returns the records whose values are in every non-empty selection
func FilterPatients(records []entities.PatientRecord, f PatientFilter) []entities.PatientRecord {
	facilities := newSelection(f.Facilities)
	statuses := newSelection(f.Statuses)
	drugs := newSelection(f.Drugs)
	actions := newSelection(f.ActionTypes)

	out := make([]entities.PatientRecord, 0, len(records))
	for _, r := range records {
		if facilities.allows(r.UnidadeDispensadora) &&
			statuses.allows(r.Status) &&
			drugs.allows(r.Medicamento) &&
			actions.allows(r.TipoAcao) {
			out = append(out, r)
		}
	}
	return out
}

// FilterDistributions returns the records matching the destination and drug
// selections and, when a two-date period is given, dated inside it (both ends
// inclusive, by calendar day). Undated rows never match an active period.
func FilterDistributions(records []entities.DistributionRecord, f DistributionFilter) []entities.DistributionRecord {
	destinations := newSelection(f.Destinations)
	drugs := newSelection(f.Drugs)

	var from, to time.Time
	byPeriod := len(f.Period) == 2
	if byPeriod {
		from, to = calendarDay(f.Period[0]), calendarDay(f.Period[1])
	}

	out := make([]entities.DistributionRecord, 0, len(records))
	for _, r := range records {
		if !destinations.allows(r.UnidadeDestino) || !drugs.allows(r.Medicamento) {
			continue
		}
		if byPeriod {
			if r.DataDistribuicao == nil {
				continue
			}
			day := calendarDay(*r.DataDistribuicao)
			if day.Before(from) || day.After(to) {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SelectedUnits renders the facility selection as shown above each view
func SelectedUnits(selected []string) string {
	if len(selected) == 0 {
		return AllUnits
	}
	return strings.Join(selected, ", ")
}
