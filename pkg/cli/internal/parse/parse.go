// Package parse provides string parsing utilities for CLI commands.
package parse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// KeyValue parses a "key:value" or "key=value" string.
// If delimiters are provided, uses the first one found; otherwise defaults to ':'.
// Returns the key, value, and a boolean indicating success.
func KeyValue(s string, delimiters ...rune) (key, value string, ok bool) {
	if len(delimiters) == 0 {
		delimiters = []rune{':'}
	}

	for i, c := range s {
		for _, d := range delimiters {
			if c == d {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// Assignment parses a field assignment. "Field=text" assigns the string
// text; "Field:=json" assigns the decoded JSON value, so numbers, booleans,
// null and objects can be written. Numbers keep their exact text.
func Assignment(s string) (field string, value any, err error) {
	key, raw, ok := KeyValue(s, '=')
	if !ok || key == "" || key == ":" {
		return "", nil, fmt.Errorf("invalid assignment %q: expected Field=value or Field:=json", s)
	}

	field, isJSON := strings.CutSuffix(key, ":")
	if !isJSON {
		return field, raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return "", nil, fmt.Errorf("invalid JSON for %s: %w", field, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", nil, fmt.Errorf("invalid JSON for %s: trailing data", field)
	}
	return field, value, nil
}

// Assignments parses a list of field assignments, keeping their order.
func Assignments(args []string) ([]string, map[string]any, error) {
	order := make([]string, 0, len(args))
	values := make(map[string]any, len(args))
	for _, arg := range args {
		field, value, err := Assignment(arg)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := values[field]; !dup {
			order = append(order, field)
		}
		values[field] = value
	}
	return order, values, nil
}
