package minidb

import "encoding/json"

// Row is an unordered mapping from field name to a dynamically-typed scalar.
// A row carries no identity of its own; the table assigns an id on insert.
type Row map[string]Value

// Clone returns a shallow copy of the row (values are immutable).
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Get returns the value of a field, or Null when the field is absent.
func (r Row) Get(field string) Value {
	if v, ok := r[field]; ok {
		return v
	}
	return Null
}

// encodeRow serializes a row as a JSON document. Field order in the output
// is deterministic (encoding/json sorts map keys).
func encodeRow(r Row) ([]byte, error) {
	return json.Marshal(r)
}

// decodeRow parses a JSON document produced by encodeRow. Everything
// representable in JSON round-trips losslessly; timestamps come back as
// strings because JSON has no time type.
func decodeRow(data []byte) (Row, error) {
	var r Row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r == nil {
		r = Row{}
	}
	return r, nil
}
