// Package cliconfig provides configuration types and loading for the sfrecord CLI.
package cliconfig

// CLIConfig represents the complete configuration for the sfrecord CLI.
// Configuration values can come from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Local config file (.sfrecord.yaml in current directory)
// 4. Global config file (~/.config/sfrecord/config.yaml)
// 5. Default values (lowest priority)
type CLIConfig struct {
	// Connection settings
	InstanceURL string `yaml:"instanceUrl,omitempty" json:"instanceUrl,omitempty"`
	APIVersion  string `yaml:"apiVersion" json:"apiVersion"`
	// Timeout is the HTTP timeout in seconds. Zero disables it.
	Timeout int `yaml:"timeout" json:"timeout"`

	// AccessToken is only read from the environment or flags, never from files.
	AccessToken string `yaml:"-" json:"-"`

	// OAuth settings
	LoginURL     string `yaml:"loginUrl" json:"loginUrl"`
	ClientID     string `yaml:"clientId,omitempty" json:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty" json:"-"`
	RedirectURL  string `yaml:"redirectUrl" json:"redirectUrl"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// Output settings
	JSON bool `yaml:"json" json:"json"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`

	// SetFields records which keys were present in a loaded file, so an
	// explicit false can be told apart from an absent value.
	SetFields map[string]bool `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceEnv     = "env"
	SourceGlobal  = "global"
	SourceLocal   = "local"
	SourceFlag    = "flag"
)
