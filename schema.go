package minidb

import (
	"strconv"
	"time"
)

// Schema validates and coerces a raw row before it is stored. Table calls
// it on every insert and update; a validation failure aborts the operation
// with no side effects on storage.
type Schema interface {
	Validate(row Row) (Row, error)
}

// FieldSpec declares one field of a TableSchema. The zero value is a
// required field; set Optional to allow omission.
type FieldSpec struct {
	Kind     Kind
	Optional bool

	// Default is substituted for an omitted or null optional field. A null
	// Default means the field is simply left out.
	Default Value

	// Numeric bounds, applied after coercion to KindInt.
	MinInt *int64
	MaxInt *int64

	// Length bounds, applied after coercion to KindString.
	MinLen *int
	MaxLen *int

	// AutoNow stamps the field with the current time on every validation;
	// AutoNowAdd only when the field is omitted or null. Both imply KindTime.
	//
	// Do not index an AutoNow field: updates re-stamp it even when it is
	// not among the updated fields, but only updated fields touch their
	// indexes, so such an index goes stale.
	AutoNow    bool
	AutoNowAdd bool
}

// TableSchema is the standard Schema implementation: a set of named field
// specs. Unknown fields are rejected.
type TableSchema struct {
	fields map[string]FieldSpec
}

// NewSchema creates an empty schema.
func NewSchema() *TableSchema {
	return &TableSchema{fields: make(map[string]FieldSpec)}
}

// Field declares (or replaces) a field spec and returns the schema for
// chaining.
func (s *TableSchema) Field(name string, spec FieldSpec) *TableSchema {
	s.fields[name] = spec
	return s
}

// Validate checks row against the declared fields and returns the validated
// (coerced, defaulted) copy. The input row is not modified.
func (s *TableSchema) Validate(row Row) (Row, error) {
	validated := make(Row, len(s.fields))

	for name, spec := range s.fields {
		raw, present := row[name]

		if spec.AutoNow || (spec.AutoNowAdd && (!present || raw.IsNull())) {
			validated[name] = Time(time.Now())
			continue
		}

		if !present {
			if !spec.Optional {
				return nil, validationErrf(name, "missing required field")
			}
			if !spec.Default.IsNull() {
				validated[name] = spec.Default
			}
			continue
		}

		if raw.IsNull() {
			if !spec.Optional {
				return nil, validationErrf(name, "required field cannot be null")
			}
			if !spec.Default.IsNull() {
				validated[name] = spec.Default
			}
			continue
		}

		val, err := coerce(name, raw, spec.Kind)
		if err != nil {
			return nil, err
		}
		if err := checkBounds(name, val, spec); err != nil {
			return nil, err
		}
		validated[name] = val
	}

	for name := range row {
		if _, ok := s.fields[name]; !ok {
			return nil, validationErrf(name, "unknown field")
		}
	}

	return validated, nil
}

// coerce converts v to the declared kind, mirroring lenient scalar
// conversion: numbers parse from strings, everything stringifies, floats
// truncate to ints.
func coerce(field string, v Value, kind Kind) (Value, error) {
	if v.Kind() == kind {
		return v, nil
	}
	switch kind {
	case KindInt:
		switch v.Kind() {
		case KindFloat:
			f, _ := v.Float()
			return Int(int64(f)), nil
		case KindString:
			s, _ := v.Str()
			i, err := strconv.ParseInt(s, 10, 64)
			if err == nil {
				return Int(i), nil
			}
		case KindBool:
			if b, _ := v.Bool(); b {
				return Int(1), nil
			}
			return Int(0), nil
		}
	case KindFloat:
		switch v.Kind() {
		case KindInt:
			i, _ := v.Int()
			return Float(float64(i)), nil
		case KindString:
			s, _ := v.Str()
			f, err := strconv.ParseFloat(s, 64)
			if err == nil {
				return Float(f), nil
			}
		}
	case KindString:
		return String(v.String()), nil
	case KindBool:
		if s, ok := v.Str(); ok {
			b, err := strconv.ParseBool(s)
			if err == nil {
				return Bool(b), nil
			}
		}
	case KindTime:
		if s, ok := v.Str(); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err == nil {
				return Time(t), nil
			}
		}
	}
	return Null, validationErrf(field, "expected %v, got %v", kind, v.Kind())
}

func checkBounds(field string, v Value, spec FieldSpec) error {
	if i, ok := v.Int(); ok {
		if spec.MinInt != nil && i < *spec.MinInt {
			return validationErrf(field, "value %d is less than minimum %d", i, *spec.MinInt)
		}
		if spec.MaxInt != nil && i > *spec.MaxInt {
			return validationErrf(field, "value %d is greater than maximum %d", i, *spec.MaxInt)
		}
	}
	if s, ok := v.Str(); ok {
		if spec.MinLen != nil && len(s) < *spec.MinLen {
			return validationErrf(field, "string length %d is less than minimum %d", len(s), *spec.MinLen)
		}
		if spec.MaxLen != nil && len(s) > *spec.MaxLen {
			return validationErrf(field, "string length %d is greater than maximum %d", len(s), *spec.MaxLen)
		}
	}
	return nil
}
