package cli

import (
	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cli/internal/flags"
)

var getFields flags.StringSlice

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Retrieve one record by type and identity",
	Example: `  sfrecord get Account 001000000000001AAA
  sfrecord get Account 001000000000001AAA --fields Name,Industry`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errUsage(cmd, "get requires a record type and identity")
		}
		rec, err := newClient().Retrieve(cmd.Context(), args[0], args[1], getFields...)
		if err != nil {
			return err
		}
		return printRecord(cmd.OutOrStdout(), rec)
	},
}

func init() {
	getCmd.Flags().Var(&getFields, "fields", "Fields to return (comma-separated or repeated)")
	rootCmd.AddCommand(getCmd)
}
