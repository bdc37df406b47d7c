package cli

import (
	"encoding/json"
	"fmt"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cli/internal/output"
	"github.com/getmockd/sfrecord/pkg/sobject"
)

var (
	queryJSONPath string
	queryOne      bool
)

var queryCmd = &cobra.Command{
	Use:   "query <soql>",
	Short: "Run a query and print the matching records",
	Long: `Run a query and print the matching records. The query is sent as written;
all result pages are fetched.

With --jsonpath the records are encoded as JSON and the expression is applied
to the resulting array; each match is printed on its own line.`,
	Example: `  sfrecord query "SELECT Id, Name FROM Account ORDER BY Name LIMIT 10"
  sfrecord query --one "SELECT Id FROM Contact WHERE Email = 'jd@example.com'"
  sfrecord query --jsonpath '$[*].Contacts[*].LastName' \
    "SELECT Name, (SELECT LastName FROM Contacts) FROM Account"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryJSONPath, "jsonpath", "", "JSONPath expression applied to the result")
	queryCmd.Flags().BoolVar(&queryOne, "one", false, "Print only the first record; fail when there is none")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	var expr jp.Expr
	if queryJSONPath != "" {
		var err error
		expr, err = jp.ParseString(queryJSONPath)
		if err != nil {
			return fmt.Errorf("invalid --jsonpath: %w", err)
		}
	}

	client := newClient()
	ctx := cmd.Context()

	var records []*sobject.Record
	if queryOne {
		rec, err := client.FindOne(ctx, args[0])
		if err != nil {
			return err
		}
		records = []*sobject.Record{rec}
	} else {
		var err error
		records, err = client.Find(ctx, args[0])
		if err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	if expr != nil {
		return printJSONPath(cmd, expr, records)
	}
	if queryOne {
		return printRecord(w, records[0])
	}
	return printRecords(w, records)
}

// printJSONPath evaluates expr against the JSON encoding of records.
func printJSONPath(cmd *cobra.Command, expr jp.Expr, records []*sobject.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	var doc any
	if err := oj.Unmarshal(data, &doc); err != nil {
		return err
	}

	matches := expr.Get(doc)
	w := cmd.OutOrStdout()
	if jsonOutput {
		return output.JSON(w, matches)
	}
	for _, m := range matches {
		if s, ok := m.(string); ok {
			fmt.Fprintln(w, s)
			continue
		}
		fmt.Fprintln(w, oj.JSON(m))
	}
	return nil
}
