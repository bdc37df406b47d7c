package forcemock

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed seed.schema.json
var seedSchemaJSON string

var (
	seedSchemaOnce sync.Once
	seedSchema     *jsonschema.Schema
	seedSchemaErr  error
)

func compiledSeedSchema() (*jsonschema.Schema, error) {
	seedSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("seed.schema.json", strings.NewReader(seedSchemaJSON)); err != nil {
			seedSchemaErr = fmt.Errorf("failed to add seed schema: %w", err)
			return
		}
		seedSchema, seedSchemaErr = compiler.Compile("seed.schema.json")
	})
	return seedSchema, seedSchemaErr
}

// SeedError describes a seed file that failed to load or validate.
type SeedError struct {
	Path   string
	Errors []string
}

func (e *SeedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(e.Errors, "; "))
}

// LoadSeedFiles loads every YAML or JSON file matching pattern, which may use
// ** to match directories recursively, and merges them in path order.
func LoadSeedFiles(pattern string) (Config, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return Config{}, fmt.Errorf("invalid seed pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return Config{}, fmt.Errorf("no seed files match %q", pattern)
	}
	slices.Sort(matches)

	var merged Config
	for _, path := range matches {
		cfg, err := LoadSeedFile(path)
		if err != nil {
			return Config{}, err
		}
		merged.Merge(cfg)
	}
	return merged, nil
}

// LoadSeedFile loads and validates a single seed file.
func LoadSeedFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(path, data)
}

// ParseSeed validates and decodes seed file content. name is used in errors.
func ParseSeed(name string, data []byte) (Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &SeedError{Path: name, Errors: []string{err.Error()}}
	}
	if raw == nil {
		return Config{}, nil
	}

	// Round-trip through JSON so the validator sees JSON types.
	doc, err := json.Marshal(raw)
	if err != nil {
		return Config{}, &SeedError{Path: name, Errors: []string{err.Error()}}
	}
	var instance any
	if err := json.Unmarshal(doc, &instance); err != nil {
		return Config{}, &SeedError{Path: name, Errors: []string{err.Error()}}
	}

	schema, err := compiledSeedSchema()
	if err != nil {
		return Config{}, err
	}
	if err := schema.Validate(instance); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return Config{}, &SeedError{Path: name, Errors: schemaMessages(verr)}
		}
		return Config{}, &SeedError{Path: name, Errors: []string{err.Error()}}
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, &SeedError{Path: name, Errors: []string{err.Error()}}
	}
	return cfg, nil
}

// schemaMessages flattens a validation error into "location: message" lines.
func schemaMessages(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := strings.TrimPrefix(err.InstanceLocation, "/")
		if loc == "" {
			return []string{err.Message}
		}
		return []string{strings.ReplaceAll(loc, "/", ".") + ": " + err.Message}
	}
	var out []string
	for _, cause := range err.Causes {
		out = append(out, schemaMessages(cause)...)
	}
	return out
}

// Merge appends other's objects, clients and records to c. Scalar settings
// from other win when set.
func (c *Config) Merge(other Config) {
	if other.InstanceURL != "" {
		c.InstanceURL = other.InstanceURL
	}
	if other.APIVersion != "" {
		c.APIVersion = other.APIVersion
	}
	if other.BatchSize != 0 {
		c.BatchSize = other.BatchSize
	}
	c.Objects = append(c.Objects, other.Objects...)
	c.Clients = append(c.Clients, other.Clients...)
	c.Records = append(c.Records, other.Records...)
}
