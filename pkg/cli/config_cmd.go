package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cli/internal/output"
	"github.com/getmockd/sfrecord/pkg/cliconfig"
)

// configEntry is one effective setting and where it came from.
type configEntry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// configPaths is the JSON output of config path.
type configPaths struct {
	Local  string `json:"local,omitempty"`
	Global string `json:"global,omitempty"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the effective configuration and the source of each value: default,
global, local, env or flag. Secrets are never printed; a set secret is shown
as "(set)".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := effectiveConfig(cfg)
		w := cmd.OutOrStdout()
		if jsonOutput {
			return output.JSON(w, entries)
		}
		tw := output.Table(w)
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, e.Value, e.Source)
		}
		return tw.Flush()
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show which configuration files are read",
	RunE: func(cmd *cobra.Command, args []string) error {
		local, err := cliconfig.FindLocalConfig()
		if err != nil {
			return err
		}
		global, err := cliconfig.FindGlobalConfig()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		return printResult(w, configPaths{Local: local, Global: global}, func() {
			fmt.Fprintf(w, "local:  %s\n", orNone(local))
			fmt.Fprintf(w, "global: %s\n", orNone(global))
		})
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// effectiveConfig lists every setting in a fixed order.
func effectiveConfig(c *cliconfig.CLIConfig) []configEntry {
	entry := func(key, value string) configEntry {
		source := c.Sources[key]
		if source == "" {
			source = "-"
		}
		return configEntry{Key: key, Value: value, Source: source}
	}
	return []configEntry{
		entry("instanceUrl", orNone(c.InstanceURL)),
		entry("apiVersion", c.APIVersion),
		entry("accessToken", secret(c.AccessToken)),
		entry("timeout", strconv.Itoa(c.Timeout)),
		entry("loginUrl", c.LoginURL),
		entry("clientId", orNone(c.ClientID)),
		entry("clientSecret", secret(c.ClientSecret)),
		entry("redirectUrl", c.RedirectURL),
		entry("logLevel", c.LogLevel),
		entry("logFormat", c.LogFormat),
		entry("json", strconv.FormatBool(c.JSON)),
	}
}

func secret(s string) string {
	if s == "" {
		return "(none)"
	}
	return "(set)"
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
