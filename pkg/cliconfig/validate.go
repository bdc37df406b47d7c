package cliconfig

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/getmockd/sfrecord/pkg/logging"
)

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{string(logging.FormatText), string(logging.FormatJSON)}
)

var versionPattern = regexp.MustCompile(`^v?\d+\.\d+$`)

// maxTimeout bounds the HTTP timeout in seconds.
const maxTimeout = 3600

// Validate checks the configuration values for consistency.
func (c *CLIConfig) Validate() error {
	var errs []error

	if c.InstanceURL != "" {
		if err := validateURL("instanceUrl", c.InstanceURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.LoginURL != "" {
		if err := validateURL("loginUrl", c.LoginURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.RedirectURL != "" {
		if err := validateURL("redirectUrl", c.RedirectURL); err != nil {
			errs = append(errs, err)
		}
	}
	if c.APIVersion != "" && !versionPattern.MatchString(c.APIVersion) {
		errs = append(errs, fmt.Errorf("apiVersion %q must look like 59.0", c.APIVersion))
	}
	if c.Timeout < 0 || c.Timeout > maxTimeout {
		errs = append(errs, fmt.Errorf("timeout %d is out of range (0-%d)", c.Timeout, maxTimeout))
	}
	if c.LogLevel != "" && !slices.Contains(logLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("logLevel %q must be one of %s", c.LogLevel, strings.Join(logLevels, ", ")))
	}
	if c.LogFormat != "" && !slices.Contains(logFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, fmt.Errorf("logFormat %q must be one of %s", c.LogFormat, strings.Join(logFormats, ", ")))
	}

	return errors.Join(errs...)
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s %q must be an absolute http(s) URL", key, raw)
	}
	return nil
}
