package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/sfrecord/pkg/cliconfig"
	"github.com/getmockd/sfrecord/pkg/force"
	"github.com/getmockd/sfrecord/pkg/session"
)

// hinter is implemented by errors that carry a suggestion for the user.
type hinter interface {
	Hint() string
}

// FormatError renders an error for the terminal: the message, then a hint
// when one is known.
func FormatError(err error) string {
	var b strings.Builder

	var apiErr *force.RemoteAPIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.ErrorCode != "" {
			fmt.Fprintf(&b, "Error (%d %s): %s", apiErr.StatusCode, apiErr.ErrorCode, apiErr.Message)
		} else {
			fmt.Fprintf(&b, "Error (%d): %s", apiErr.StatusCode, apiErr.Message)
		}
	default:
		fmt.Fprintf(&b, "Error: %v", err)
	}

	if hint := errorHint(err); hint != "" {
		b.WriteString("\n\nHint: ")
		b.WriteString(hint)
	}
	return b.String()
}

func errorHint(err error) string {
	var h hinter
	if errors.As(err, &h) && h.Hint() != "" {
		return h.Hint()
	}
	switch {
	case errors.Is(err, session.ErrNoSession):
		return "Set " + cliconfig.EnvAccessToken + " and " + cliconfig.EnvInstanceURL + ", or run: sfrecord login"
	case errors.Is(err, force.ErrNoRecords):
		return "Check the WHERE clause of the query."
	}
	return ""
}
