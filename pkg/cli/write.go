package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cli/internal/parse"
	"github.com/getmockd/sfrecord/pkg/sobject"
)

// writeResult is the JSON output of create and update.
type writeResult struct {
	Type   string   `json:"type"`
	ID     string   `json:"id"`
	Fields []string `json:"fields"`
}

var createCmd = &cobra.Command{
	Use:   "create <type> [Field=value | Field:=json]...",
	Short: "Create a record from field assignments",
	Long: `Create a record from field assignments and print the identity the service
assigns. Field=value assigns a string; Field:=json assigns any JSON value.`,
	Example: `  sfrecord create Account Name=Acme Industry=Energy
  sfrecord create Opportunity Name=Renewal Amount:=12500.50 IsPrivate:=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 1 {
			return errUsage(cmd, "create requires a record type")
		}
		rec := sobject.New(args[0])
		if err := assign(rec, args[1:]); err != nil {
			return err
		}
		if err := newClient().Save(cmd.Context(), rec); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		res := writeResult{Type: rec.Type(), ID: rec.ID(), Fields: rec.Fields()}
		return printResult(w, res, func() {
			fmt.Fprintln(w, rec.ID())
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <type> <id> [Field=value | Field:=json]...",
	Short: "Update fields of an existing record",
	Long: `Update fields of an existing record. Only the assigned fields are sent;
the record is not fetched first.`,
	Example: `  sfrecord update Account 001000000000001AAA Industry=Energy
  sfrecord update Contact 003000000000001AAA Phone:=null`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 3 {
			return errUsage(cmd, "update requires a record type, an identity and at least one assignment")
		}
		rec := sobject.Reference(args[0], args[1])
		if err := assign(rec, args[2:]); err != nil {
			return err
		}
		sent := rec.Dirty()
		if err := newClient().Save(cmd.Context(), rec); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		res := writeResult{Type: rec.Type(), ID: rec.ID(), Fields: sent}
		return printResult(w, res, func() {
			fmt.Fprintf(w, "Updated %s %s (%d field(s))\n", rec.Type(), rec.ID(), len(sent))
		})
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
}

// assign parses field assignments and sets them on rec in argument order.
func assign(rec *sobject.Record, args []string) error {
	order, values, err := parse.Assignments(args)
	if err != nil {
		return err
	}
	for _, field := range order {
		if err := rec.Set(field, values[field]); err != nil {
			return err
		}
	}
	return nil
}
