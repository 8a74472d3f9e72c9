package dashboard

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// Metric is one headline figure of a view
type Metric struct {
	Label     string  `json:"label"`
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted"`
}

// FormatNumber renders v the Brazilian way with two decimals: 1.234,56
func FormatNumber(v float64) string {
	return ptBR.Sprint(number.Decimal(v, number.Scale(2)))
}

func newMetric(label string, v float64) Metric {
	return Metric{Label: label, Value: v, Formatted: FormatNumber(v)}
}

// PatientMetrics counts distinct patients and drugs of the patient list
func PatientMetrics(records []entities.PatientRecord) []Metric {
	patients := make(map[string]struct{})
	drugs := make(map[string]struct{})
	for _, r := range records {
		if r.Interessado != "" {
			patients[r.Interessado] = struct{}{}
		}
		if r.Medicamento != "" {
			drugs[r.Medicamento] = struct{}{}
		}
	}
	return []Metric{
		newMetric("Total Pacientes", float64(len(patients))),
		newMetric("Total Medicamentos", float64(len(drugs))),
	}
}

// SummaryMetrics totals the summary rows. Patients are summed per drug, so a
// patient on two drugs counts twice.
func SummaryMetrics(rows []entities.DrugSummary) []Metric {
	var patients, quantity, consumption float64
	for _, r := range rows {
		patients += float64(r.Pacientes)
		quantity += r.Quantidade
		consumption += r.ConsumoMensal
	}
	return []Metric{
		newMetric("Total Pacientes", patients),
		newMetric("Total Quantidade", quantity),
		newMetric("Total Consumo 30d", consumption),
	}
}

// DistributionMetrics totals value and quantity and counts distinct
// distribution numbers
func DistributionMetrics(records []entities.DistributionRecord) []Metric {
	var value, quantity float64
	numbers := make(map[string]struct{})
	for _, r := range records {
		if r.ValorTotal != nil {
			value += *r.ValorTotal
		}
		if r.Quantidade != nil {
			quantity += *r.Quantidade
		}
		if r.NumeroDistribuicao != "" {
			numbers[r.NumeroDistribuicao] = struct{}{}
		}
	}
	return []Metric{
		newMetric("Valor Total Distribuído (R$)", value),
		newMetric("Número de Distribuições", float64(len(numbers))),
		newMetric("Quantidade Total Distribuída", quantity),
	}
}
