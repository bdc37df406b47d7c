package cli

import (
	"time"

	"github.com/getmockd/sfrecord/pkg/force"
	"github.com/getmockd/sfrecord/pkg/session"
)

// currentSession builds the session from the effective configuration.
func currentSession() session.Session {
	return session.Session{
		AccessToken: cfg.AccessToken,
		InstanceURL: cfg.InstanceURL,
		APIVersion:  cfg.APIVersion,
	}
}

// newClient returns a REST client for the configured session.
func newClient() *force.Client {
	return force.New(session.Static(currentSession()),
		force.WithTimeout(time.Duration(cfg.Timeout)*time.Second),
		force.WithLogger(logger),
		force.WithUserAgent("sfrecord/"+Version),
	)
}
