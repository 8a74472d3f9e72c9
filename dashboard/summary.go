package dashboard

import (
	"sort"
	"strings"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

// ActiveStatus marks the registrations counted by the drug summary
const ActiveStatus = "ATIVO"

// SummarizeByDrug groups the active records by drug. Each row carries the
// number of distinct interested parties, the authorized quantity and the
// 30-day consumption; missing numbers are left out of the sums and records
// without a drug are dropped. Rows are sorted by drug name.
func SummarizeByDrug(records []entities.PatientRecord) []entities.DrugSummary {
	type group struct {
		summary  entities.DrugSummary
		patients map[string]struct{}
	}

	groups := make(map[string]*group)
	for _, r := range records {
		if !strings.EqualFold(strings.TrimSpace(r.Status), ActiveStatus) || r.Medicamento == "" {
			continue
		}

		g, ok := groups[r.Medicamento]
		if !ok {
			g = &group{
				summary:  entities.DrugSummary{Medicamento: r.Medicamento},
				patients: make(map[string]struct{}),
			}
			groups[r.Medicamento] = g
		}

		g.patients[r.Interessado] = struct{}{}
		if r.QuantidadeAutorizada != nil {
			g.summary.Quantidade += *r.QuantidadeAutorizada
		}
		if r.ConsumoMensal != nil {
			g.summary.ConsumoMensal += *r.ConsumoMensal
		}
	}

	summaries := make([]entities.DrugSummary, 0, len(groups))
	for _, g := range groups {
		g.summary.Pacientes = len(g.patients)
		summaries = append(summaries, g.summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Medicamento < summaries[j].Medicamento
	})
	return summaries
}
