package output

import (
	"bytes"
	"encoding/json"
	"slices"
)

// Record is a flat row of string fields that remembers the order in which
// keys were first set. Setting an existing key keeps its position.
type Record struct {
	keys   []string
	values map[string]string
}
type Records []Record

// NewRecord builds a record from alternating keys and values.
func NewRecord(kvs ...string) Record {
	r := Record{}
	for i := 0; i+1 < len(kvs); i += 2 {
		r.Set(kvs[i], kvs[i+1])
	}
	return r
}

func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = map[string]string{}
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value of key, or "" when the record has no such field.
func (r Record) Get(key string) string {
	return r.values[key]
}

func (r Record) Lookup(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

func (r Record) Keys() []string {
	return slices.Clone(r.keys)
}

func (r Record) Len() int {
	return len(r.keys)
}

// Project returns a record holding only columns, in that order, with absent
// fields left empty.
func (r Record) Project(columns []string) Record {
	ret := Record{}
	for _, c := range columns {
		ret.Set(c, r.Get(c))
	}
	return ret
}

func (r Record) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, k); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(buf, r.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

// Columns is the union of all record keys in first-seen order.
func (recs Records) Columns() []string {
	seen := map[string]bool{}
	rets := []string{}
	for _, rec := range recs {
		for _, k := range rec.keys {
			if !seen[k] {
				seen[k] = true
				rets = append(rets, k)
			}
		}
	}
	return rets
}

// TotalFields counts the non-empty cells of recs.
func (recs Records) TotalFields() int {
	numFields := 0
	for _, rec := range recs {
		for _, k := range rec.keys {
			if rec.values[k] != "" {
				numFields++
			}
		}
	}
	return numFields
}

// MergeRecords returns base overlaid with overlay. Keys keep base order,
// then overlay order for new keys; overlay values win on collision.
func MergeRecords(base, overlay Record) Record {
	ret := Record{}
	for _, k := range base.keys {
		ret.Set(k, base.values[k])
	}
	for _, k := range overlay.keys {
		ret.Set(k, overlay.values[k])
	}
	return ret
}
