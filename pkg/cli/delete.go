package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/sobject"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <type> <id>...",
	Aliases: []string{"rm"},
	Short:   "Delete records by type and identity",
	Example: `  sfrecord delete Account 001000000000001AAA
  sfrecord delete Contact 003000000000001AAA 003000000000002AAA`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return errUsage(cmd, "delete requires a record type and at least one identity")
		}
		client := newClient()
		deleted := make([]string, 0, len(args)-1)
		for _, id := range args[1:] {
			if err := client.Delete(cmd.Context(), sobject.Reference(args[0], id)); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			deleted = append(deleted, id)
		}
		return printResult(cmd.OutOrStdout(), map[string]any{"deleted": deleted}, func() {
			for _, id := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], id)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
