// Package logging provides structured logging configuration for sfrecord.
//
// This package wraps log/slog so the client, the mock backend and the CLI log
// the same way. Library components accept a *slog.Logger through an option
// and fall back to Nop when none is given; they never log tokens or field
// values.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.ParseLevel("debug"),
//	    Format: logging.FormatJSON,
//	})
//	client := force.New(source, force.WithLogger(logger))
package logging
