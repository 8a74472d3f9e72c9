package entities

import "time"

// DistributionRecord is one row of the distribution exports after cleanup.
// UnidadeOrigem is kept for completeness but never serialized or exported.
type DistributionRecord struct {
	NumeroDistribuicao string     `json:"numeroDistribuicao"`
	UnidadeDestino     string     `json:"unidadeDestino"`
	UnidadeOrigem      string     `json:"-"`
	Medicamento        string     `json:"medicamento"`
	Quantidade         *float64   `json:"quantidade"`
	ValorTotal         *float64   `json:"valorTotal"`
	DataDistribuicao   *time.Time `json:"-"`
}
