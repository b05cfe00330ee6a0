// Package output renders migration reports for the terminal or for other tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/agowa/dbatools/pkg/migration"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts table, json and yaml in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", s)
}

// Records flattens the successful records of every report, in report order.
func Records(reports []*migration.Report) []migration.Record {
	records := make([]migration.Record, 0)
	for _, r := range reports {
		records = append(records, r.Records()...)
	}
	return records
}

// Render writes the records of reports to w in the given format.
func Render(w io.Writer, format Format, reports []*migration.Report) error {
	records := Records(reports)

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		return renderTable(w, records)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func renderTable(w io.Writer, records []migration.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No databases checked.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Source\tSource Version\tDestination\tDestination Version\tDatabase\tMigratable\tFeatures In Use\tNotes")
	fmt.Fprintln(tw, "------\t--------------\t-----------\t-------------------\t--------\t----------\t---------------\t-----")

	for _, rec := range records {
		migratable := "No"
		if rec.IsMigratable {
			migratable = "Yes"
		}
		features := rec.FeaturesInUse
		if features == "" {
			features = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.SourceInstance,
			rec.SourceVersion,
			rec.DestinationInstance,
			rec.DestinationVersion,
			rec.Database,
			migratable,
			features,
			rec.Notes)
	}
	return tw.Flush()
}
