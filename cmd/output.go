package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/mohrashard/bizfinder-ai-sub000/internal/model"
	"github.com/mohrashard/bizfinder-ai-sub000/internal/view"
)

// Output formats.
const (
	formatTable = "table"
	formatCSV   = "csv"
	formatXLSX  = "xlsx"
	formatJSON  = "json"
)

func validFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatXLSX, formatJSON:
		return nil
	default:
		return eris.Errorf("--format must be table, csv, xlsx or json (got %q)", format)
	}
}

// writeOutput writes list to path, or stdout when path is empty.
func writeOutput(list []model.Business, format, path string) error {
	if path == "" {
		return writeBusinesses(os.Stdout, list, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := writeBusinesses(f, list, format); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d businesses to %s\n", len(list), path)
	return nil
}

func writeBusinesses(w io.Writer, list []model.Business, format string) error {
	switch format {
	case formatCSV:
		return view.WriteCSV(w, list)
	case formatXLSX:
		return view.WriteXLSX(w, list)
	case formatJSON:
		return view.WriteJSON(w, list)
	default:
		return writeTable(w, list)
	}
}

func writeTable(w io.Writer, list []model.Business) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tRATING\tREVIEWS\tSCORE\tWEBSITE\tEMAIL\tPHONE")
	for _, b := range list {
		rating := "-"
		if b.Rating > 0 {
			rating = strconv.FormatFloat(b.Rating, 'f', 1, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			b.Title, rating, b.Reviews, b.OpportunityScore,
			orDash(b.Website), orDash(b.Email), orDash(b.Phone),
		)
	}
	return eris.Wrap(tw.Flush(), "write table")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
