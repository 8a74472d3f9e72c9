package dispensingparser

import "sort"

// Patient export columns, as written by the registration system.
const (
	ColNumeroProcesso          = "Número do processo"
	ColDataEntrada             = "Data Entrada"
	ColInteressado             = "Interessado"
	ColMedicamento             = "Medicamento"
	ColUnidadeDispensadora     = "Unidade Dispensadora"
	ColStatus                  = "Status"
	ColTipoAcao                = "Tipo Ação"
	ColQuantidadeAutorizada    = "Quantidade Autorizada"
	ColFrequencia              = "Frequência (em dias)"
	ColPeriodoTratamento       = "Período de tratamento (em meses)"
	ColDataPrimeiroAtendimento = "Data Primeiro Atendimento"
	ColConsumoMensal           = "Consumo_Mensal_30d"
)

// Distribution export columns.
const (
	ColNumeroDistribuicao = "Nº Distribuição"
	ColUnidadeDestino     = "Unidade Saúde Destino"
	ColUnidadeOrigem      = "Unidade Saúde Origem"
	ColQuantidade         = "Quantidade"
	ColValorTotal         = "Valor Total R$"
	ColDataDistribuicao   = "Data Distribuição"
)

// PatientColumns is the subset read from patient files.
var PatientColumns = []string{
	ColNumeroProcesso,
	ColDataEntrada,
	ColInteressado,
	ColMedicamento,
	ColUnidadeDispensadora,
	ColStatus,
	ColTipoAcao,
	ColQuantidadeAutorizada,
	ColFrequencia,
	ColPeriodoTratamento,
	ColDataPrimeiroAtendimento,
}

// ColumnVariants maps historical header spellings to the current ones.
var ColumnVariants = map[string]string{
	"Frequencia (em dias)": ColFrequencia,
	"Frequência(em dias)":  ColFrequencia,
	"QuantidadeAutorizada": ColQuantidadeAutorizada,
}

// ExcludedTerms marks nutrition supplements that are registered alongside
// drugs but are not part of the dispensing report.
var ExcludedTerms = []string{
	"ALIMENTO", "DIETA", "LEITE", "MODULO", "ESPESSANTE",
	"GLUTAMINA", "FORMULA", "SUPLEMENTO", "FRESUBIN",
	"NOVAMIL", "ISOSOURCE", "PEPTAMEN", "FORMULA INFANTIL",
	"NUTREN", "MODULEN", "NUTRISON",
}

// patientReadColumns includes the variants so they survive projection.
func patientReadColumns() []string {
	variants := make([]string, 0, len(ColumnVariants))
	for variant := range ColumnVariants {
		variants = append(variants, variant)
	}
	sort.Strings(variants)
	return append(append([]string(nil), PatientColumns...), variants...)
}
