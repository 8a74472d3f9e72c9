package dispensingparser

import (
	"strings"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

// LoadDistributions reads every distribution export in dir. Drug names are
// canonicalized but no supplement exclusion applies. Fatal conditions are the
// same as LoadPatients.
func LoadDistributions(dir string, opts Options) ([]entities.DistributionRecord, *entities.LoadReport, error) {
	opts = opts.withDefaults()
	report := newReport(KindDistributions, opts)

	table, err := readSources(KindDistributions, dir, nil, opts.Encodings, report)
	if err != nil {
		return nil, report, err
	}

	cleanTable(table, opts)
	canonicalizeDrugs(table, opts.Lookup)

	records := make([]entities.DistributionRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := entities.DistributionRecord{
			NumeroDistribuicao: table.Cell(row, ColNumeroDistribuicao),
			UnidadeDestino:     table.Cell(row, ColUnidadeDestino),
			UnidadeOrigem:      table.Cell(row, ColUnidadeOrigem),
			Medicamento:        table.Cell(row, ColMedicamento),
			Quantidade:         coerceNumber(table.Cell(row, ColQuantidade), parseNumber, &report.InvalidNumbers),
			ValorTotal:         coerceNumber(table.Cell(row, ColValorTotal), ParseCurrency, &report.InvalidNumbers),
		}

		date := table.Cell(row, ColDataDistribuicao)
		rec.DataDistribuicao = ParseDayFirst(date)
		if rec.DataDistribuicao == nil && strings.TrimSpace(date) != "" {
			report.InvalidDates++
		}

		records = append(records, rec)
	}

	finishReport(report, len(records))
	return records, report, nil
}
