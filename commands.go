package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/giygas/dispensacao-api/dashboard"
	"github.com/giygas/dispensacao-api/dispensingparser"
	"github.com/giygas/dispensacao-api/dispensingparser/entities"
	"github.com/giygas/dispensacao-api/export"
	"github.com/giygas/dispensacao-api/interfaces"
	"github.com/giygas/dispensacao-api/validation"
)

// Export views
const (
	viewPatients      = "patients"
	viewSummary       = "summary"
	viewDistributions = "distributions"
)

// exportOptions are the flags of the export command
type exportOptions struct {
	out      string
	encoding string

	facilities   []string
	statuses     []string
	drugs        []string
	actions      []string
	destinations []string
	period       []string
}

func exportCmd() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:       "export {patients|summary|distributions}",
		Short:     "Write a filtered view as CSV without starting the server",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{viewPatients, viewSummary, viewDistributions},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			view := args[0]
			if opts.encoding == "" {
				opts.encoding = a.defaultEncoding(view)
			}
			if opts.out == "" {
				opts.out = defaultExportFile(view)
			}

			f, err := os.Create(opts.out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", opts.out, err)
			}

			rows, err := runExport(f, a.container, view, opts)
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
			if err != nil {
				_ = os.Remove(opts.out)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s (%s)\n", rows, opts.out, opts.encoding)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output file (defaults to the view's download name)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "utf-8-sig, utf-8 or latin1 (defaults to the configured encoding)")
	cmd.Flags().StringSliceVar(&opts.facilities, "facility", nil, "Dispensing facility, repeatable")
	cmd.Flags().StringSliceVar(&opts.statuses, "status", nil, "Registration status, repeatable")
	cmd.Flags().StringSliceVar(&opts.drugs, "drug", nil, "Drug name, repeatable")
	cmd.Flags().StringSliceVar(&opts.actions, "action", nil, "Action type, repeatable")
	cmd.Flags().StringSliceVar(&opts.destinations, "destination", nil, "Destination facility, repeatable")
	cmd.Flags().StringSliceVar(&opts.period, "period", nil, "Distribution period as two YYYY-MM-DD dates")

	return cmd
}

func (a *app) defaultEncoding(view string) string {
	switch view {
	case viewPatients:
		return a.cfg.ExportEncodingPatients
	case viewSummary:
		return a.cfg.ExportEncodingSummary
	}
	return a.cfg.ExportEncodingDistributions
}

func defaultExportFile(view string) string {
	switch view {
	case viewPatients:
		return export.PatientsFile
	case viewSummary:
		return export.SummaryFile
	}
	return export.DistributionsFile
}

// runExport validates the filters, loads the table the view needs and writes
// the CSV to w. It returns the number of data rows written.
func runExport(w io.Writer, store interfaces.DataStore, view string, opts *exportOptions) (int, error) {
	validator := validation.NewDataValidator()

	enc, err := validator.ValidateEncoding(opts.encoding)
	if err != nil {
		return 0, err
	}

	selections := map[string][]string{
		"facility":    opts.facilities,
		"status":      opts.statuses,
		"drug":        opts.drugs,
		"action":      opts.actions,
		"destination": opts.destinations,
	}
	for param, values := range selections {
		if err := validator.ValidateSelection(param, values); err != nil {
			return 0, err
		}
	}

	var header []string
	var rows [][]string

	switch view {
	case viewPatients, viewSummary:
		records, err := store.Patients()
		if err != nil {
			return 0, err
		}
		records = dashboard.FilterPatients(records, dashboard.PatientFilter{
			Facilities:  opts.facilities,
			Statuses:    opts.statuses,
			Drugs:       opts.drugs,
			ActionTypes: opts.actions,
		})
		if view == viewPatients {
			header, rows = export.PatientHeader, export.PatientRows(records)
		} else {
			header, rows = export.SummaryHeader, export.SummaryRows(dashboard.SummarizeByDrug(records))
		}

	case viewDistributions:
		period, err := validator.ValidatePeriod(opts.period)
		if err != nil {
			return 0, err
		}
		records, err := store.Distributions()
		if err != nil {
			return 0, err
		}
		records = dashboard.FilterDistributions(records, dashboard.DistributionFilter{
			Destinations: opts.destinations,
			Drugs:        opts.drugs,
			Period:       period,
		})
		header, rows = export.DistributionHeader, export.DistributionRows(records)

	default:
		return 0, fmt.Errorf("unknown view %q", view)
	}

	if err := export.WriteCSV(w, header, rows, enc); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func checkCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Load both tables once and print the load reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(false)
			if err != nil {
				return err
			}
			defer a.Close()

			return runCheck(cmd.OutOrStdout(), a.container, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the reports as JSON")
	return cmd
}

// checkResult is the JSON output of the check command
type checkResult struct {
	Reports []*entities.LoadReport `json:"reports"`
	Errors  map[string]string      `json:"errors,omitempty"`
}

// runCheck reloads both tables and prints what each load did. A configuration
// error is returned so the process exits non-zero.
func runCheck(w io.Writer, store interfaces.DataStore, asJSON bool) error {
	reports, loadErr := store.Refresh()
	loadErrors := store.LoadErrors()

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(checkResult{Reports: reports, Errors: loadErrors}); err != nil {
			return err
		}
	} else if err := printReports(w, reports, loadErrors); err != nil {
		return err
	}

	var cfgErr *dispensingparser.ConfigError
	if errors.As(loadErr, &cfgErr) {
		return loadErr
	}
	if loadErr != nil {
		return fmt.Errorf("load failed: %w", loadErr)
	}
	return nil
}

func printReports(w io.Writer, reports []*entities.LoadReport, loadErrors map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "TABLE\tFILES\tREAD\tLOADED\tBLANK\tSUPPLEMENTS\tSKIPPED\tBAD NUMBERS\tBAD DATES\tMS")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.Kind, len(r.Files), r.RowsRead, r.RowsLoaded, r.BlankInterested,
			r.ExcludedSupplements, r.SkippedLines, r.InvalidNumbers, r.InvalidDates, r.DurationMs)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range reports {
		for _, f := range r.Files {
			fmt.Fprintf(w, "  %s: %s (%s, %d rows)\n", r.Kind, f.Path, f.Encoding, f.Rows)
		}
		if r.LookupWarning != "" {
			fmt.Fprintf(w, "warning: %s\n", r.LookupWarning)
		}
	}

	kinds := make([]string, 0, len(loadErrors))
	for kind := range loadErrors {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "error (%s): %s\n", kind, loadErrors[kind])
	}
	return nil
}
