package cliconfig

import (
	"github.com/getmockd/sfrecord/pkg/session"
)

// DefaultAPIVersion is the REST API version used when none is configured.
const DefaultAPIVersion = session.DefaultAPIVersion

// DefaultLoginURL is the login host for the OAuth flows.
const DefaultLoginURL = session.DefaultLoginURL

// DefaultRedirectURL is where the local callback listener receives the
// authorization code.
const DefaultRedirectURL = "http://localhost:1717/callback"

// DefaultTimeout is the default HTTP timeout in seconds (0 = none).
const DefaultTimeout = 0

// DefaultLogLevel is the default log level.
const DefaultLogLevel = "warn"

// DefaultLogFormat is the default log format.
const DefaultLogFormat = "text"

// NewDefault creates a new CLIConfig with default values.
func NewDefault() *CLIConfig {
	cfg := &CLIConfig{
		APIVersion:  DefaultAPIVersion,
		LoginURL:    DefaultLoginURL,
		RedirectURL: DefaultRedirectURL,
		Timeout:     DefaultTimeout,
		LogLevel:    DefaultLogLevel,
		LogFormat:   DefaultLogFormat,
		Sources:     make(map[string]string),
	}

	// Mark all as default source
	for _, key := range []string{"apiVersion", "loginUrl", "redirectUrl", "timeout", "logLevel", "logFormat", "json"} {
		cfg.Sources[key] = SourceDefault
	}

	return cfg
}
