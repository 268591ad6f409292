package jwt

import (
	"bytes"
	"encoding/json"
	"slices"
	"time"
)

// Fields is an insertion-ordered set of named values used for both token
// headers and claims. Setting an existing name replaces its value in place.
type Fields struct {
	keys   []string
	values map[string]any
}

// NewFields returns an empty Fields.
func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

// FieldsOf builds Fields from alternating name/value pairs.
func FieldsOf(kv ...any) *Fields {
	f := NewFields()
	for i := 0; i+1 < len(kv); i += 2 {
		if name, ok := kv[i].(string); ok {
			f.Set(name, kv[i+1])
		}
	}
	return f
}

// Get returns the value stored under name.
func (f *Fields) Get(name string) (any, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[name]
	return v, ok
}

// Has reports whether name is present.
func (f *Fields) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Set stores value under name.
func (f *Fields) Set(name string, value any) {
	if _, ok := f.values[name]; !ok {
		f.keys = append(f.keys, name)
	}
	f.values[name] = value
}

// Delete removes name.
func (f *Fields) Delete(name string) {
	if _, ok := f.values[name]; !ok {
		return
	}
	delete(f.values, name)
	for i, k := range f.keys {
		if k == name {
			f.keys = append(f.keys[:i:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the names in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

// Len returns the number of entries.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Clone returns a copy that shares no slices or maps with f.
func (f *Fields) Clone() *Fields {
	c := &Fields{
		keys:   make([]string, 0, f.Len()),
		values: make(map[string]any, f.Len()),
	}
	if f == nil {
		return c
	}
	c.keys = append(c.keys, f.keys...)
	for k, v := range f.values {
		c.values[k] = copyValue(v)
	}
	return c
}

// copyValue returns v with its slices and maps copied so the result shares
// no mutable state with v.
func copyValue(v any) any {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x)
	case []byte:
		return slices.Clone(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = copyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = copyValue(e)
		}
		return out
	case *Fields:
		return x.Clone()
	default:
		return v
	}
}

// Map returns the entries as a plain map.
func (f *Fields) Map() map[string]any {
	m := make(map[string]any, f.Len())
	for _, k := range f.Keys() {
		m[k] = copyValue(f.values[k])
	}
	return m
}

// MarshalJSON encodes the entries as a JSON object in insertion order.
// time.Time values that reach the encoder unformatted are written as integer
// seconds since the epoch.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for i, k := range f.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')

		v := f.values[k]
		if t, ok := v.(time.Time); ok {
			v = t.Unix()
		}
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// json.Encoder terminates every value with a newline.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}
