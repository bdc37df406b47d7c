package force

import (
	"fmt"

	"github.com/getmockd/sfrecord/pkg/sobject"
)

// recordsKey is the key that holds rows in a query result or a to-many
// relationship container.
const recordsKey = "records"

// ParseRecord builds a Record from one JSON row as returned by the query and
// retrieve endpoints. Nested relationship results are expanded recursively.
// The returned record, and every nested one, has an empty dirty set.
func ParseRecord(data []byte) (*sobject.Record, error) {
	obj, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	return parseRow(obj)
}

// parseRow converts one ordered row into a Record. Values are classified as:
//   - scalars and null, stored as-is
//   - {"records": [...]} containers, expanded into []*Record (to-many)
//   - objects with an "attributes" envelope, expanded into *Record (to-one)
//   - any other object (compound fields such as addresses), stored as a map
func parseRow(row *object) (*sobject.Record, error) {
	rec := sobject.New("")

	typeName, err := envelopeType(row)
	if err != nil {
		return nil, err
	}
	rec.SetType(typeName)

	for _, key := range row.keys {
		if key == sobject.TypeField {
			continue
		}

		switch val := row.values[key].(type) {
		case *object:
			if _, ok := val.get(recordsKey); ok {
				children, err := parseChildren(key, val)
				if err != nil {
					return nil, err
				}
				rec.SetClean(key, children)
				continue
			}
			if _, ok := val.get(sobject.TypeField); ok {
				child, err := parseRow(val)
				if err != nil {
					return nil, fmt.Errorf("relationship %q: %w", key, err)
				}
				rec.SetClean(key, child)
				continue
			}
			rec.SetClean(key, plain(val))

		default:
			rec.SetClean(key, plain(val))
		}
	}

	return rec, nil
}

// parseChildren expands a to-many relationship container, keeping the order
// in which the rows were received.
func parseChildren(key string, container *object) ([]*sobject.Record, error) {
	raw, _ := container.get(recordsKey)
	rows, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: relationship %q: records is not an array", ErrMalformedResponse, key)
	}

	children := make([]*sobject.Record, 0, len(rows))
	for i, item := range rows {
		row, ok := item.(*object)
		if !ok {
			return nil, fmt.Errorf("%w: relationship %q: row %d is not an object", ErrMalformedResponse, key, i)
		}
		child, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("relationship %q row %d: %w", key, i, err)
		}
		children = append(children, child)
	}
	return children, nil
}

// envelopeType reads attributes.type from a row.
func envelopeType(row *object) (string, error) {
	raw, ok := row.get(sobject.TypeField)
	if !ok {
		return "", fmt.Errorf("%w: row has no %q envelope", ErrMalformedResponse, sobject.TypeField)
	}
	attrs, ok := raw.(*object)
	if !ok {
		return "", fmt.Errorf("%w: %q is not an object", ErrMalformedResponse, sobject.TypeField)
	}
	typeName, _ := attrs.values["type"].(string)
	if typeName == "" {
		return "", fmt.Errorf("%w: %q has no type", ErrMalformedResponse, sobject.TypeField)
	}
	return typeName, nil
}
