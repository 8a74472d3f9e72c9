package entities

// DrugSummary aggregates the active patients of one canonical drug.
type DrugSummary struct {
	Medicamento   string  `json:"medicamento"`
	Pacientes     int     `json:"pacientes"`
	Quantidade    float64 `json:"quantidade"`
	ConsumoMensal float64 `json:"consumoMensal"`
}
