package dispensingparser

import (
	"strings"

	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/logging"
)

// LoadPatients reads every registration export in dir and returns the cleaned
// patient records. A missing directory, an empty directory or an unreadable
// file fails the whole load with a ConfigError.
func LoadPatients(dir string, opts Options) ([]entities.PatientRecord, *entities.LoadReport, error) {
	opts = opts.withDefaults()
	report := newReport(KindPatients, opts)

	table, err := readSources(KindPatients, dir, patientReadColumns(), opts.Encodings, report)
	if err != nil {
		return nil, report, err
	}

	cleanTable(table, opts)

	if !table.Has(ColInteressado) {
		logging.Warn("Patient files have no interested-party column, every row is dropped", "dir", dir)
	}
	report.BlankInterested = table.Filter(func(row []string) bool {
		return !isMissingName(table.Cell(row, ColInteressado))
	})

	canonicalizeDrugs(table, opts.Lookup)

	report.ExcludedSupplements = table.Filter(func(row []string) bool {
		return !isExcluded(table.Cell(row, ColMedicamento), opts.ExcludedTerms)
	})

	table.Rename(ColumnVariants)

	hasQuantity := table.Has(ColQuantidadeAutorizada)
	hasFrequency := table.Has(ColFrequencia)

	records := make([]entities.PatientRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		rec := entities.PatientRecord{
			NumeroProcesso:          table.Cell(row, ColNumeroProcesso),
			DataEntrada:             table.Cell(row, ColDataEntrada),
			Interessado:             table.Cell(row, ColInteressado),
			Medicamento:             table.Cell(row, ColMedicamento),
			UnidadeDispensadora:     table.Cell(row, ColUnidadeDispensadora),
			Status:                  table.Cell(row, ColStatus),
			TipoAcao:                table.Cell(row, ColTipoAcao),
			PeriodoTratamento:       table.Cell(row, ColPeriodoTratamento),
			DataPrimeiroAtendimento: table.Cell(row, ColDataPrimeiroAtendimento),
		}

		if hasQuantity {
			rec.QuantidadeAutorizada = coerceNumber(table.Cell(row, ColQuantidadeAutorizada), parseNumber, &report.InvalidNumbers)
		}
		if hasFrequency {
			rec.Frequencia = coerceNumber(table.Cell(row, ColFrequencia), parseNumber, &report.InvalidNumbers)
		}

		if hasQuantity && hasFrequency {
			rec.ConsumoMensal = MonthlyConsumption(rec.QuantidadeAutorizada, rec.Frequencia)
		} else {
			zero := 0.0
			rec.ConsumoMensal = &zero
		}

		records = append(records, rec)
	}

	finishReport(report, len(records))
	return records, report, nil
}

// isExcluded reports whether a drug name contains one of the supplement terms.
// Missing names are never excluded.
func isExcluded(drug string, terms []string) bool {
	if drug == "" {
		return false
	}
	upper := strings.ToUpper(drug)
	for _, term := range terms {
		if strings.Contains(upper, strings.ToUpper(term)) {
			return true
		}
	}
	return false
}
