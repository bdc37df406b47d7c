package cliconfig

import (
	"os"
	"strconv"
)

// Environment variable names
const (
	EnvInstanceURL  = "SFRECORD_INSTANCE_URL"
	EnvAPIVersion   = "SFRECORD_API_VERSION"
	EnvAccessToken  = "SFRECORD_ACCESS_TOKEN"
	EnvLoginURL     = "SFRECORD_LOGIN_URL"
	EnvClientID     = "SFRECORD_CLIENT_ID"
	EnvClientSecret = "SFRECORD_CLIENT_SECRET"
	EnvRedirectURL  = "SFRECORD_REDIRECT_URL"
	EnvTimeout      = "SFRECORD_TIMEOUT"
	EnvLogLevel     = "SFRECORD_LOG_LEVEL"
	EnvLogFormat    = "SFRECORD_LOG_FORMAT"
	EnvJSON         = "SFRECORD_JSON"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment.
func LoadEnvConfig(cfg *CLIConfig) {
	env := &CLIConfig{
		InstanceURL:  os.Getenv(EnvInstanceURL),
		APIVersion:   os.Getenv(EnvAPIVersion),
		AccessToken:  os.Getenv(EnvAccessToken),
		LoginURL:     os.Getenv(EnvLoginURL),
		ClientID:     os.Getenv(EnvClientID),
		ClientSecret: os.Getenv(EnvClientSecret),
		RedirectURL:  os.Getenv(EnvRedirectURL),
		LogLevel:     os.Getenv(EnvLogLevel),
		LogFormat:    os.Getenv(EnvLogFormat),
		SetFields:    make(map[string]bool),
	}

	// SFRECORD_TIMEOUT
	if v := os.Getenv(EnvTimeout); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			env.Timeout = timeout
			env.SetFields["timeout"] = true
		}
	}

	// SFRECORD_JSON
	if v := os.Getenv(EnvJSON); v != "" {
		env.JSON = v == "true" || v == "1" || v == "yes"
		env.SetFields["json"] = true
	}

	MergeConfig(cfg, env, SourceEnv)
}
