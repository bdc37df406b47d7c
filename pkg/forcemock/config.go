package forcemock

import (
	"errors"
	"fmt"
	"strings"

	"github.com/getmockd/sfrecord/internal/id"
)

// DefaultBatchSize is the number of rows returned per query page.
const DefaultBatchSize = 2000

// DefaultAPIVersion is the version advertised in identity URLs and used when a
// version is needed outside a request.
const DefaultAPIVersion = "59.0"

// Config describes the objects the server knows, the OAuth clients it
// accepts, and the records it starts with.
type Config struct {
	// InstanceURL is returned by the token endpoint. When empty it is derived
	// from the request host.
	InstanceURL string `json:"instanceUrl,omitempty" yaml:"instanceUrl,omitempty"`
	APIVersion  string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	BatchSize   int    `json:"batchSize,omitempty" yaml:"batchSize,omitempty"`

	Objects []ObjectConfig `json:"objects,omitempty" yaml:"objects,omitempty"`
	Clients []ClientConfig `json:"clients,omitempty" yaml:"clients,omitempty"`
	Records []SeedRecord   `json:"records,omitempty" yaml:"records,omitempty"`
}

// ObjectConfig describes one object type.
type ObjectConfig struct {
	Name      string `json:"name" yaml:"name"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
	// Fields lists the writable fields. An object without fields accepts any
	// field name.
	Fields   []string            `json:"fields,omitempty" yaml:"fields,omitempty"`
	Required []string            `json:"required,omitempty" yaml:"required,omitempty"`
	Children []ChildRelationship `json:"children,omitempty" yaml:"children,omitempty"`
	Lookups  []Lookup            `json:"lookups,omitempty" yaml:"lookups,omitempty"`
}

// ChildRelationship is a to-many relationship usable as a subquery: rows of
// Object whose Field holds the parent's identity.
type ChildRelationship struct {
	Name   string `json:"name" yaml:"name"`
	Object string `json:"object" yaml:"object"`
	Field  string `json:"field" yaml:"field"`
}

// Lookup is a to-one relationship usable in dotted field paths: Field holds
// the identity of a row of Object, reachable as Name.Field.
type Lookup struct {
	Name   string `json:"name" yaml:"name"`
	Field  string `json:"field" yaml:"field"`
	Object string `json:"object" yaml:"object"`
}

// ClientConfig is a connected app accepted by the OAuth endpoints.
type ClientConfig struct {
	ClientID     string   `json:"clientId" yaml:"clientId"`
	ClientSecret string   `json:"clientSecret,omitempty" yaml:"clientSecret,omitempty"`
	RedirectURIs []string `json:"redirectUris,omitempty" yaml:"redirectUris,omitempty"`
	// Username is the user sessions are issued for.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	// PublicKey is a PEM-encoded RSA public key that verifies JWT bearer
	// assertions from this client.
	PublicKey string `json:"publicKey,omitempty" yaml:"publicKey,omitempty"`
}

// SeedRecord is a record loaded at startup. Ref names the record so other
// seed records can point at it with "@ref" values.
type SeedRecord struct {
	Type   string         `json:"type" yaml:"type"`
	Ref    string         `json:"ref,omitempty" yaml:"ref,omitempty"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// DefaultObjects returns the standard object set: accounts with contacts, and
// bills of materials with line items.
func DefaultObjects() []ObjectConfig {
	return []ObjectConfig{
		{
			Name:      "Account",
			KeyPrefix: "001",
			Fields:    []string{"Name", "Industry", "Phone", "Website", "BillingCity", "BillingCountry", "AnnualRevenue", "NumberOfEmployees"},
			Required:  []string{"Name"},
			Children: []ChildRelationship{
				{Name: "Contacts", Object: "Contact", Field: "AccountId"},
			},
		},
		{
			Name:      "Contact",
			KeyPrefix: "003",
			Fields:    []string{"FirstName", "LastName", "Email", "Phone", "Title", "AccountId"},
			Required:  []string{"LastName"},
			Lookups: []Lookup{
				{Name: "Account", Field: "AccountId", Object: "Account"},
			},
		},
		{
			Name:      "BOM__c",
			KeyPrefix: "a00",
			Fields:    []string{"Name", "Revision__c", "Status__c", "Product__c"},
			Children: []ChildRelationship{
				{Name: "Line_Items__r", Object: "Line_Item__c", Field: "BOM__c"},
			},
		},
		{
			Name:      "Line_Item__c",
			KeyPrefix: "a01",
			Fields:    []string{"Name", "BOM__c", "Part_Number__c", "Quantity__c", "Reference_Designator__c"},
			Required:  []string{"BOM__c"},
			Lookups: []Lookup{
				{Name: "BOM__r", Field: "BOM__c", Object: "BOM__c"},
			},
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("batchSize must not be negative, got %d", c.BatchSize))
	}

	names := make(map[string]bool)
	prefixes := make(map[string]string)
	for i, obj := range c.Objects {
		if obj.Name == "" {
			errs = append(errs, fmt.Errorf("objects[%d]: name is required", i))
			continue
		}
		key := fold(obj.Name)
		if names[key] {
			errs = append(errs, fmt.Errorf("objects[%d]: duplicate object %q", i, obj.Name))
		}
		names[key] = true

		if err := id.ValidatePrefix(obj.KeyPrefix); err != nil {
			errs = append(errs, fmt.Errorf("objects[%d] %s: %w", i, obj.Name, err))
		} else if other, ok := prefixes[obj.KeyPrefix]; ok {
			errs = append(errs, fmt.Errorf("objects[%d] %s: key prefix %q already used by %s", i, obj.Name, obj.KeyPrefix, other))
		} else {
			prefixes[obj.KeyPrefix] = obj.Name
		}
	}

	for _, obj := range c.Objects {
		for _, child := range obj.Children {
			if !names[fold(child.Object)] {
				errs = append(errs, fmt.Errorf("%s.%s: unknown child object %q", obj.Name, child.Name, child.Object))
			}
			if child.Name == "" || child.Field == "" {
				errs = append(errs, fmt.Errorf("%s: child relationship needs name and field", obj.Name))
			}
		}
		for _, lookup := range obj.Lookups {
			if !names[fold(lookup.Object)] {
				errs = append(errs, fmt.Errorf("%s.%s: unknown lookup object %q", obj.Name, lookup.Name, lookup.Object))
			}
			if lookup.Name == "" || lookup.Field == "" {
				errs = append(errs, fmt.Errorf("%s: lookup needs name and field", obj.Name))
			}
		}
		for _, req := range obj.Required {
			if len(obj.Fields) > 0 && !containsFold(obj.Fields, req) {
				errs = append(errs, fmt.Errorf("%s: required field %q is not declared", obj.Name, req))
			}
		}
	}

	for i, client := range c.Clients {
		if client.ClientID == "" {
			errs = append(errs, fmt.Errorf("clients[%d]: clientId is required", i))
		}
		if client.PublicKey != "" {
			if _, err := parsePublicKey(client.PublicKey); err != nil {
				errs = append(errs, fmt.Errorf("clients[%d]: %w", i, err))
			}
		}
	}

	for i, rec := range c.Records {
		if !names[fold(rec.Type)] {
			errs = append(errs, fmt.Errorf("records[%d]: unknown type %q", i, rec.Type))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) batchSize() int {
	if c.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return c.BatchSize
}

func (c *Config) apiVersion() string {
	if c.APIVersion == "" {
		return DefaultAPIVersion
	}
	return strings.TrimPrefix(c.APIVersion, "v")
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if fold(item) == fold(s) {
			return true
		}
	}
	return false
}
