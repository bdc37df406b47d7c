package forcemock

import (
	"bytes"
	"encoding/json"
)

// document is a JSON object that keeps the order keys were set in, so rows
// come back in projection order.
type document struct {
	keys   []string
	values map[string]any
}

func newDocument() *document {
	return &document{values: make(map[string]any)}
}

func (d *document) set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

func (d *document) get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

func (d *document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// attributes returns the envelope every row starts with.
func attributes(typeName, rid, version string) map[string]string {
	attrs := map[string]string{"type": typeName}
	if rid != "" {
		attrs["url"] = "/services/data/" + version + "/sobjects/" + typeName + "/" + rid
	}
	return attrs
}
