package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/getmockd/sfrecord/pkg/cli/internal/output"
	"github.com/getmockd/sfrecord/pkg/sobject"
)

// printResult outputs a single operation result.
//
// Contract: when --json is active, ONLY the JSON encoding of data is written
// to w. Human-readable prose (progress messages, hints) must go to stderr
// or be omitted entirely. textFn is called only in text mode.
func printResult(w io.Writer, data any, textFn func()) error {
	if jsonOutput {
		return output.JSON(w, data)
	}
	textFn()
	return nil
}

// printRecords writes records as a table whose columns are the union of
// their fields in first-seen order. Relationship values are summarized.
func printRecords(w io.Writer, records []*sobject.Record) error {
	if jsonOutput {
		return output.JSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No records found")
		return nil
	}

	var columns []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, f := range rec.Fields() {
			if !seen[f] {
				seen[f] = true
				columns = append(columns, f)
			}
		}
	}

	tw := output.Table(w)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, rec := range records {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cell(rec, col)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d record(s)\n", len(records))
	return nil
}

// cell formats one value for table output.
func cell(rec *sobject.Record, field string) string {
	v, ok := rec.Get(field)
	if !ok || v == nil {
		return "-"
	}
	switch val := v.(type) {
	case []*sobject.Record:
		return fmt.Sprintf("[%d records]", len(val))
	case *sobject.Record:
		if name := val.Str("Name"); name != "" {
			return name
		}
		if val.ID() != "" {
			return val.ID()
		}
		return "[" + val.Type() + "]"
	case map[string]any:
		data, err := json.Marshal(val)
		if err != nil {
			return "?"
		}
		return string(data)
	}
	return rec.Str(field)
}

// printRecord writes one record as aligned field/value lines.
func printRecord(w io.Writer, rec *sobject.Record) error {
	if jsonOutput {
		return output.JSON(w, rec)
	}
	tw := output.Table(w)
	fmt.Fprintf(tw, "Type:\t%s\n", rec.Type())
	for _, f := range rec.Fields() {
		fmt.Fprintf(tw, "%s:\t%s\n", f, cell(rec, f))
	}
	return tw.Flush()
}
