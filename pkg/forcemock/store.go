package forcemock

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/getmockd/sfrecord/internal/id"
)

// System fields present on every row.
const (
	fieldID           = "Id"
	fieldCreated      = "CreatedDate"
	fieldLastModified = "LastModifiedDate"
)

// timestampLayout is the datetime format of the REST API.
const timestampLayout = "2006-01-02T15:04:05.000-0700"

// fold case-folds a field or object name. Casers keep state, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// row is one stored record. Field keys are canonical names.
type row struct {
	ID       string
	Type     string
	Fields   map[string]any
	Created  time.Time
	Modified time.Time
	Deleted  bool
}

func (r *row) clone() *row {
	c := *r
	c.Fields = maps.Clone(r.Fields)
	return &c
}

// system returns the value of a system field.
func (r *row) system(name string) (any, bool) {
	switch name {
	case fieldID:
		return r.ID, true
	case fieldCreated:
		return r.Created.UTC().Format(timestampLayout), true
	case fieldLastModified:
		return r.Modified.UTC().Format(timestampLayout), true
	}
	return nil, false
}

// collection holds the rows of one object type.
type collection struct {
	mu     sync.RWMutex
	config ObjectConfig
	rows   map[string]*row
	order  []string
	// names maps folded field names to canonical names.
	names map[string]string
}

func newCollection(cfg ObjectConfig) *collection {
	c := &collection{
		config: cfg,
		rows:   make(map[string]*row),
		names:  make(map[string]string),
	}
	for _, f := range []string{fieldID, fieldCreated, fieldLastModified} {
		c.names[fold(f)] = f
	}
	for _, f := range cfg.Fields {
		c.names[fold(f)] = f
	}
	for _, l := range cfg.Lookups {
		c.names[fold(l.Field)] = l.Field
	}
	return c
}

// schemaless reports whether the object accepts any field name.
func (c *collection) schemaless() bool {
	return len(c.config.Fields) == 0
}

// canonical resolves a field name. Schemaless objects learn new names on
// write; learn must only be true under the write lock.
func (c *collection) canonical(name string, learn bool) (string, bool) {
	key := fold(name)
	if canon, ok := c.names[key]; ok {
		return canon, true
	}
	if c.schemaless() {
		if learn {
			c.names[key] = name
		}
		return name, true
	}
	return "", false
}

// fieldNames returns the canonical field names in declaration order, with
// the system fields first.
func (c *collection) fieldNames() []string {
	out := []string{fieldID}
	if !c.schemaless() {
		out = append(out, c.config.Fields...)
		for _, l := range c.config.Lookups {
			if !containsFold(out, l.Field) {
				out = append(out, l.Field)
			}
		}
	} else {
		seen := map[string]bool{fold(fieldID): true, fold(fieldCreated): true, fold(fieldLastModified): true}
		for _, rid := range c.order {
			for _, f := range slices.Sorted(maps.Keys(c.rows[rid].Fields)) {
				if !seen[fold(f)] {
					seen[fold(f)] = true
					out = append(out, f)
				}
			}
		}
	}
	return append(out, fieldCreated, fieldLastModified)
}

// Store holds every collection. It is safe for concurrent use.
type Store struct {
	gen         *id.Generator
	collections map[string]*collection
	byPrefix    map[string]*collection
	now         func() time.Time
}

func newStore(objects []ObjectConfig, gen *id.Generator) *Store {
	s := &Store{
		gen:         gen,
		collections: make(map[string]*collection),
		byPrefix:    make(map[string]*collection),
		now:         time.Now,
	}
	for _, obj := range objects {
		c := newCollection(obj)
		s.collections[fold(obj.Name)] = c
		s.byPrefix[obj.KeyPrefix] = c
	}
	return s
}

func (s *Store) collection(typeName string) (*collection, error) {
	c, ok := s.collections[fold(typeName)]
	if !ok {
		return nil, &APIError{Status: 404, Code: CodeNotFound, Message: fmt.Sprintf("The requested resource does not exist: sObject type '%s' is not supported.", typeName)}
	}
	return c, nil
}

// Types returns the configured object names.
func (s *Store) Types() []string {
	out := make([]string, 0, len(s.collections))
	for _, c := range s.collections {
		out = append(out, c.config.Name)
	}
	slices.Sort(out)
	return out
}

// Insert creates a row and returns its identity.
func (s *Store) Insert(typeName string, fields map[string]any) (string, error) {
	c, err := s.collection(typeName)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.resolveFields(fields, true)
	if err != nil {
		return "", err
	}
	missing := c.missingRequired(values)
	if len(values) == 0 || len(missing) > 0 {
		return "", &APIError{
			Status:  400,
			Code:    CodeRequiredFieldMissing,
			Message: fmt.Sprintf("Required fields are missing: %v", missing),
			Fields:  missing,
		}
	}

	rid, err := s.gen.Next(c.config.KeyPrefix)
	if err != nil {
		return "", err
	}
	now := s.now()
	c.rows[rid] = &row{ID: rid, Type: c.config.Name, Fields: values, Created: now, Modified: now}
	c.order = append(c.order, rid)
	return rid, nil
}

// Update merges fields into an existing row.
func (s *Store) Update(typeName, rid string, fields map[string]any) error {
	c, err := s.collection(typeName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.lookup(rid)
	if err != nil {
		return err
	}
	if r.Deleted {
		return entityDeleted(rid)
	}

	values, err := c.resolveFields(fields, true)
	if err != nil {
		return err
	}
	for _, req := range c.config.Required {
		canon, _ := c.canonical(req, false)
		if v, ok := values[canon]; ok && isBlank(v) {
			return &APIError{Status: 400, Code: CodeRequiredFieldMissing, Message: fmt.Sprintf("Required fields are missing: [%s]", canon), Fields: []string{canon}}
		}
	}

	maps.Copy(r.Fields, values)
	r.Modified = s.now()
	return nil
}

// Delete marks a row deleted. Deleting twice reports ENTITY_IS_DELETED.
func (s *Store) Delete(typeName, rid string) error {
	c, err := s.collection(typeName)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.lookup(rid)
	if err != nil {
		return err
	}
	if r.Deleted {
		return entityDeleted(rid)
	}
	r.Deleted = true
	r.Modified = s.now()
	return nil
}

// get returns a copy of a live row.
func (s *Store) get(typeName, rid string) (*row, error) {
	c, err := s.collection(typeName)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	r, err := c.lookup(rid)
	if err != nil {
		return nil, err
	}
	if r.Deleted {
		return nil, notFound()
	}
	return r.clone(), nil
}

// Fields returns the field values of a live row keyed by canonical name, or
// false when it does not exist.
func (s *Store) Fields(typeName, rid string) (map[string]any, bool) {
	r, err := s.get(typeName, rid)
	if err != nil {
		return nil, false
	}
	out := maps.Clone(r.Fields)
	out[fieldID] = r.ID
	return out, true
}

// Count returns the number of live rows of a type.
func (s *Store) Count(typeName string) int {
	c, err := s.collection(typeName)
	if err != nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, r := range c.rows {
		if !r.Deleted {
			n++
		}
	}
	return n
}

// snapshot returns copies of the live rows in insertion order.
func (c *collection) snapshot() []*row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*row, 0, len(c.order))
	for _, rid := range c.order {
		if r := c.rows[rid]; !r.Deleted {
			out = append(out, r.clone())
		}
	}
	return out
}

// lookup finds a row by 15- or 18-character identity. Callers hold the lock.
func (c *collection) lookup(rid string) (*row, error) {
	norm, err := id.Normalize(rid)
	if err != nil {
		return nil, &APIError{Status: 400, Code: CodeMalformedID, Message: fmt.Sprintf("Invalid id: %s", rid)}
	}
	r, ok := c.rows[norm]
	if !ok {
		return nil, notFound()
	}
	return r, nil
}

// resolveFields maps input names to canonical names and rejects unknown or
// read-only fields.
func (c *collection) resolveFields(fields map[string]any, learn bool) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for name, v := range fields {
		switch fold(name) {
		case fold(fieldID), fold(fieldCreated), fold(fieldLastModified), "attributes":
			return nil, &APIError{
				Status:  400,
				Code:    CodeInvalidFieldForInsertUpdate,
				Message: fmt.Sprintf("Unable to create/update fields: %s. Please check the security settings of this field.", name),
				Fields:  []string{name},
			}
		}
		canon, ok := c.canonical(name, learn)
		if !ok {
			return nil, &APIError{
				Status:  400,
				Code:    CodeInvalidField,
				Message: fmt.Sprintf("No such column '%s' on sobject of type %s", name, c.config.Name),
				Fields:  []string{name},
			}
		}
		out[canon] = v
	}
	return out, nil
}

// missingRequired lists required fields that are absent or blank.
func (c *collection) missingRequired(values map[string]any) []string {
	var missing []string
	for _, req := range c.config.Required {
		canon, _ := c.canonical(req, false)
		if v, ok := values[canon]; !ok || isBlank(v) {
			missing = append(missing, canon)
		}
	}
	return missing
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
