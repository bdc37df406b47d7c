package sobject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// IDField is the name of the identity field.
	IDField = "Id"
	// TypeField is the name of the envelope that carries the type name.
	TypeField = "attributes"
)

// Record is one remote object: a type name, an identity and dynamic fields.
type Record struct {
	typeName string
	id       string
	fields   []string
	values   map[string]any
	dirty    map[string]struct{}
}

// New creates an empty, unsaved record of the given type.
func New(typeName string) *Record {
	return &Record{
		typeName: typeName,
		values:   make(map[string]any),
		dirty:    make(map[string]struct{}),
	}
}

// Reference creates a record that refers to an existing remote object without
// fetching it. It has no fields, so saving it sends only what is set afterwards.
func Reference(typeName, id string) *Record {
	r := New(typeName)
	r.id = id
	return r
}

// Type returns the record's type name. It is empty only while a parsed child
// has not had its envelope read.
func (r *Record) Type() string {
	return r.typeName
}

// ID returns the server-assigned identity, or "" for an unsaved record.
func (r *Record) ID() string {
	return r.id
}

// IsNew reports whether the record has no identity yet.
func (r *Record) IsNew() bool {
	return r.id == ""
}

// Fields returns the known field names in the order they were first seen.
func (r *Record) Fields() []string {
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

// Has reports whether the field is known on this record.
func (r *Record) Has(name string) bool {
	if name == IDField && r.id != "" {
		return true
	}
	_, ok := r.values[name]
	return ok
}

// Get returns the value of a field. The second result is false when the field
// is unset; this is not an error.
func (r *Record) Get(name string) (any, bool) {
	if name == IDField {
		if r.id == "" {
			return nil, false
		}
		return r.id, true
	}
	v, ok := r.values[name]
	return v, ok
}

// Str returns a field's value formatted as a string. Unset and null fields
// yield "".
func (r *Record) Str(name string) string {
	v, ok := r.Get(name)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Child returns the nested record held by a to-one relationship field.
func (r *Record) Child(name string) *Record {
	child, _ := r.values[name].(*Record)
	return child
}

// Children returns the records held by a to-many relationship field.
func (r *Record) Children(name string) []*Record {
	children, _ := r.values[name].([]*Record)
	return children
}

// Set assigns a field and marks it dirty. The identity and type fields are
// reserved and cannot be assigned; the record is left unchanged in that case.
// Field names are case-insensitive on the backend, so a name differing only
// in case from an existing field updates that field under its existing
// spelling.
func (r *Record) Set(name string, value any) error {
	if name == "" {
		return ErrEmptyFieldName
	}
	if IsReserved(name) {
		return &ReservedFieldError{Field: name}
	}
	name = r.canonical(name)
	r.store(name, value)
	r.dirty[name] = struct{}{}
	return nil
}

// SetClean assigns a field without marking it dirty. It is used when a record
// is built from a query response. Setting IDField records the identity.
func (r *Record) SetClean(name string, value any) {
	if name == IDField {
		if id, ok := value.(string); ok && id != "" && r.id == "" {
			r.id = id
		}
		r.addField(name)
		return
	}
	r.store(name, value)
}

// SetType sets the type name read from a response envelope.
func (r *Record) SetType(typeName string) {
	r.typeName = typeName
}

// AssignID records the identity returned by a successful create. An identity
// is set once and never replaced.
func (r *Record) AssignID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty identity", ErrIdentityAssigned)
	}
	if r.id != "" && r.id != id {
		return fmt.Errorf("%w: %s", ErrIdentityAssigned, r.id)
	}
	r.id = id
	return nil
}

// Dirty returns the names of locally modified fields in field order.
func (r *Record) Dirty() []string {
	out := make([]string, 0, len(r.dirty))
	for _, name := range r.fields {
		if _, ok := r.dirty[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// IsDirty reports whether the field was modified locally.
func (r *Record) IsDirty(name string) bool {
	_, ok := r.dirty[name]
	return ok
}

// Changes returns the persistence payload: exactly the dirty fields mapped to
// their current values.
func (r *Record) Changes() map[string]any {
	out := make(map[string]any, len(r.dirty))
	for name := range r.dirty {
		out[name] = r.values[name]
	}
	return out
}

// ClearDirty forgets local modifications after they have been persisted.
func (r *Record) ClearDirty() {
	clear(r.dirty)
}

// MarshalJSON encodes the record in the backend's row shape, with fields in
// order: {"attributes":{"type":T},"Id":...,...}.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	attrs, err := json.Marshal(map[string]string{"type": r.typeName})
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"` + TypeField + `":`)
	buf.Write(attrs)

	if r.id != "" {
		buf.WriteString(`,"` + IDField + `":`)
		id, _ := json.Marshal(r.id)
		buf.Write(id)
	}

	for _, name := range r.fields {
		if name == IDField {
			continue
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsReserved reports whether a field name is reserved. Field names are
// compared case-insensitively, as the backend does.
func IsReserved(name string) bool {
	return strings.EqualFold(name, IDField) || strings.EqualFold(name, TypeField)
}

func (r *Record) store(name string, value any) {
	r.addField(name)
	r.values[name] = value
}

// canonical returns the existing field spelled like name ignoring case, or
// name itself.
func (r *Record) canonical(name string) string {
	if _, ok := r.values[name]; ok {
		return name
	}
	for _, f := range r.fields {
		if strings.EqualFold(f, name) {
			return f
		}
	}
	return name
}

func (r *Record) addField(name string) {
	if _, ok := r.values[name]; ok {
		return
	}
	if name == IDField {
		for _, f := range r.fields {
			if f == IDField {
				return
			}
		}
	}
	r.fields = append(r.fields, name)
}
