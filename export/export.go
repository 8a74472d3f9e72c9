// Package export writes the dashboard views as ;-separated CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/giygas/dispensacao-api/dispensingparser"
	"github.com/giygas/dispensacao-api/dispensingparser/entities"
)

// Export encodings
const (
	UTF8BOM = "utf-8-sig"
	UTF8    = "utf-8"
	Latin1  = "latin1"
)

// Download file names
const (
	PatientsFile      = "lista_pacientes.csv"
	SummaryFile       = "resumo_medicamentos.csv"
	DistributionsFile = "distribuicoes.csv"
)

const dateLayout = "02/01/2006"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Summary export columns
var SummaryHeader = []string{"Medicamento", "Pacientes", "Quantidade", "Consumo_Mensal"}

// Distribution export columns; the origin facility is never exported
var DistributionHeader = []string{
	dispensingparser.ColNumeroDistribuicao,
	dispensingparser.ColUnidadeDestino,
	dispensingparser.ColMedicamento,
	dispensingparser.ColQuantidade,
	dispensingparser.ColValorTotal,
	dispensingparser.ColDataDistribuicao,
}

// PatientHeader lists the patient export columns
var PatientHeader = append(append([]string(nil), dispensingparser.PatientColumns...), dispensingparser.ColConsumoMensal)

// WriteCSV writes header and rows to w in the given encoding. latin1 replaces
// characters outside ISO-8859-1.
func WriteCSV(w io.Writer, header []string, rows [][]string, enc string) error {
	var out io.Writer = w
	var closer io.Closer

	switch normalizeEncoding(enc) {
	case UTF8BOM:
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	case UTF8:
	case Latin1:
		tw := transform.NewWriter(w, encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder()))
		out, closer = tw, tw
	default:
		return fmt.Errorf("unsupported export encoding %q", enc)
	}

	cw := csv.NewWriter(out)
	cw.Comma = dispensingparser.Separator

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to flush encoder: %w", err)
		}
	}
	return nil
}

func normalizeEncoding(enc string) string {
	switch strings.ToLower(strings.TrimSpace(enc)) {
	case "utf-8-sig", "utf8-sig", "":
		return UTF8BOM
	case "utf-8", "utf8":
		return UTF8
	case "latin1", "latin-1", "iso-8859-1":
		return Latin1
	}
	return enc
}

// ContentType returns the Content-Type of a download in enc
func ContentType(enc string) string {
	if normalizeEncoding(enc) == Latin1 {
		return "text/csv; charset=iso-8859-1"
	}
	return "text/csv; charset=utf-8"
}

// ContentDisposition returns an attachment header for filename
func ContentDisposition(filename string) string {
	return "attachment; filename*=UTF-8''" + url.PathEscape(filename)
}

// PatientRows renders the patient list
func PatientRows(records []entities.PatientRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.NumeroProcesso,
			r.DataEntrada,
			r.Interessado,
			r.Medicamento,
			r.UnidadeDispensadora,
			r.Status,
			r.TipoAcao,
			formatOptional(r.QuantidadeAutorizada),
			formatOptional(r.Frequencia),
			r.PeriodoTratamento,
			r.DataPrimeiroAtendimento,
			formatOptional(r.ConsumoMensal),
		})
	}
	return rows
}

// SummaryRows renders the drug summary
func SummaryRows(summaries []entities.DrugSummary) [][]string {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			s.Medicamento,
			strconv.Itoa(s.Pacientes),
			formatNumber(s.Quantidade),
			formatNumber(s.ConsumoMensal),
		})
	}
	return rows
}

// DistributionRows renders the distribution ledger with dd/mm/yyyy dates
func DistributionRows(records []entities.DistributionRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.NumeroDistribuicao,
			r.UnidadeDestino,
			r.Medicamento,
			formatOptional(r.Quantidade),
			formatOptional(r.ValorTotal),
			FormatDate(r.DataDistribuicao),
		})
	}
	return rows
}

// FormatDate renders a date as dd/mm/yyyy, or "" when missing
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatNumber(*v)
}
