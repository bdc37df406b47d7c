package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/sfrecord/pkg/cliconfig"
	"github.com/getmockd/sfrecord/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	flagAccessToken string
	flagInstanceURL string
	flagAPIVersion  string
	flagTimeout     int
	flagLogLevel    string
	flagLogFormat   string
	jsonOutput      bool

	// cfg is the effective configuration, resolved before each command runs.
	cfg *cliconfig.CLIConfig
	// logger is built from cfg.
	logger = logging.Nop()

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sfrecord",
	Short: "sfrecord reads and writes CRM records over the REST API",
	Long: `sfrecord queries, creates, updates and deletes records through the REST API,
sending only the fields that changed.

Configuration can be provided via flags, environment variables (SFRECORD_*), or
configuration files: .sfrecord.yaml in the current directory and
~/.config/sfrecord/config.yaml. The access token is only read from
SFRECORD_ACCESS_TOKEN or --access-token.`,
	// No Run function here means 'sfrecord' with no args will print help text by default.
	SilenceUsage:      true,
	SilenceErrors:     true, // We handle errors in Execute()
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and returns the process exit code.
// This is called by main.main().
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, FormatError(err))
		return 1
	}
	return 0
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagAccessToken, "access-token", "", "Access token (default: $"+cliconfig.EnvAccessToken+")")
	pf.StringVar(&flagInstanceURL, "instance-url", "", "Instance URL, e.g. https://acme.my.salesforce.com")
	pf.StringVar(&flagAPIVersion, "api-version", "", "REST API version (default: "+cliconfig.DefaultAPIVersion+")")
	pf.IntVar(&flagTimeout, "timeout", 0, "HTTP timeout in seconds (0 = none)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default: warn)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text or json (default: text)")
	pf.BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// loadConfig resolves the effective configuration: defaults, files,
// environment, then flags that were set on the command line.
func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := cliconfig.LoadAll()
	if err != nil {
		return err
	}

	flags := &cliconfig.CLIConfig{SetFields: make(map[string]bool)}
	changed := cmd.Flags().Changed
	if changed("access-token") {
		flags.AccessToken = flagAccessToken
	}
	if changed("instance-url") {
		flags.InstanceURL = flagInstanceURL
	}
	if changed("api-version") {
		flags.APIVersion = flagAPIVersion
	}
	if changed("timeout") {
		flags.Timeout = flagTimeout
		flags.SetFields["timeout"] = true
	}
	if changed("log-level") {
		flags.LogLevel = flagLogLevel
	}
	if changed("log-format") {
		flags.LogFormat = flagLogFormat
	}
	if changed("json") {
		flags.JSON = jsonOutput
		flags.SetFields["json"] = true
	}
	cliconfig.MergeConfig(loaded, flags, cliconfig.SourceFlag)

	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	cfg = loaded
	jsonOutput = cfg.JSON
	logger = newLogger(cfg)
	return nil
}

func newLogger(c *cliconfig.CLIConfig) *slog.Logger {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.LogLevel)
	lc.Format = logging.ParseFormat(c.LogFormat)
	return logging.New(lc)
}

// errUsage reports a missing or malformed argument.
func errUsage(cmd *cobra.Command, msg string) error {
	return errors.New(msg + "\n\nUsage: " + cmd.UseLine() + "\n\nRun '" + cmd.CommandPath() + " --help' for more options")
}
