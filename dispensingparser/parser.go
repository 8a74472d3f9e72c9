// Package dispensingparser reads the patient-registration and distribution
// exports of the dispensing program and turns them into clean records.
package dispensingparser

import (
	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/interfaces"
)

// Compile-time check to ensure DispensingParser implements Parser interface
var _ interfaces.Parser = (*DispensingParser)(nil)

// DispensingParser implements the Parser interface over the configured folders
type DispensingParser struct {
	patientsDir      string
	distributionsDir string
	lookupFile       string
	encodings        []Encoding
	substitutions    []Substitution
	excludedTerms    []string
}

// NewDispensingParser creates a parser for the given source folders and lookup
// workbook. An empty lookupFile disables normalization.
func NewDispensingParser(patientsDir, distributionsDir, lookupFile string, encodings []Encoding) *DispensingParser {
	if len(encodings) == 0 {
		encodings = DefaultEncodings()
	}
	return &DispensingParser{
		patientsDir:      patientsDir,
		distributionsDir: distributionsDir,
		lookupFile:       lookupFile,
		encodings:        encodings,
		substitutions:    DefaultSubstitutions,
		excludedTerms:    ExcludedTerms,
	}
}

// LoadLookup implements the Parser interface
func (p *DispensingParser) LoadLookup() (entities.DrugLookup, error) {
	if p.lookupFile == "" {
		return entities.DrugLookup{}, nil
	}
	return LoadDrugLookup(p.lookupFile, p.encodings)
}

// LoadPatients implements the Parser interface
func (p *DispensingParser) LoadPatients(lookup entities.DrugLookup) ([]entities.PatientRecord, *entities.LoadReport, error) {
	return LoadPatients(p.patientsDir, p.options(lookup))
}

// LoadDistributions implements the Parser interface
func (p *DispensingParser) LoadDistributions(lookup entities.DrugLookup) ([]entities.DistributionRecord, *entities.LoadReport, error) {
	return LoadDistributions(p.distributionsDir, p.options(lookup))
}

func (p *DispensingParser) options(lookup entities.DrugLookup) Options {
	return Options{
		Encodings:     p.encodings,
		Substitutions: p.substitutions,
		Lookup:        lookup,
		ExcludedTerms: p.excludedTerms,
	}
}
