package entities

// PatientRecord is one row of the patient registration exports after cleanup.
// Numeric fields are nil when the source cell was empty or not a number.
type PatientRecord struct {
	NumeroProcesso          string   `json:"numeroProcesso"`
	DataEntrada             string   `json:"dataEntrada"`
	Interessado             string   `json:"interessado"`
	Medicamento             string   `json:"medicamento"`
	UnidadeDispensadora     string   `json:"unidadeDispensadora"`
	Status                  string   `json:"status"`
	TipoAcao                string   `json:"tipoAcao"`
	QuantidadeAutorizada    *float64 `json:"quantidadeAutorizada"`
	Frequencia              *float64 `json:"frequenciaDias"`
	PeriodoTratamento       string   `json:"periodoTratamentoMeses"`
	DataPrimeiroAtendimento string   `json:"dataPrimeiroAtendimento"`
	ConsumoMensal           *float64 `json:"consumoMensal30d"`
}
