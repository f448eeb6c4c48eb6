package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

// Wire formats of date and date-time attributes.
const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02T15:04:05-07:00"
)

// MapAssociations returns record with many-to-one values unwrapped: the
// service returns the related record as a one-element list, callers
// expect the record itself. An empty list becomes ir.Null.
func MapAssociations(associations []queryir.Association, record ir.Object) ir.Object {
	var out ir.Object
	for _, a := range associations {
		if a.Kind != queryir.ManyToOne {
			continue
		}
		list, ok := record[a.PropertyName].(ir.List)
		if !ok {
			continue
		}
		if out == nil {
			out = record.Clone()
		}
		if len(list) == 0 {
			out[a.PropertyName] = ir.Null{}
		} else {
			out[a.PropertyName] = list[0]
		}
	}
	if out == nil {
		return record
	}
	return out
}

// UnmapValue converts a Go value into its wire representation for an
// attribute of type t:
//   - nil becomes the empty string (the service clears attributes that way)
//   - time.Time becomes DateFormat or DateTimeFormat text
//   - anything else goes through ir.FromGo
//
// A time.Time for an attribute that is neither a date nor a date-time, or
// outside years 0-9999, fails with a DATE_CONVERSION error.
func UnmapValue(field string, t queryir.FieldType, v any) (ir.Value, error) {
	switch val := v.(type) {
	case nil, ir.Null:
		return ir.String(""), nil
	case time.Time:
		return unmapTime(field, t, val)
	case *time.Time:
		if val == nil {
			return ir.String(""), nil
		}
		return unmapTime(field, t, *val)
	}

	out, err := ir.FromGo(v)
	if err != nil {
		return nil, fmt.Errorf("unmap %s: %w", field, err)
	}
	return out, nil
}

func unmapTime(field string, t queryir.FieldType, v time.Time) (ir.Value, error) {
	var layout string
	switch t {
	case queryir.FieldDate:
		layout = DateFormat
	case queryir.FieldDateTime:
		layout = DateTimeFormat
	default:
		return nil, NewDateConversionError(field, string(t), "attribute has no date format")
	}
	if y := v.Year(); y < 0 || y > 9999 {
		return nil, NewDateConversionError(field, string(t), fmt.Sprintf("year %d out of range", y))
	}
	return ir.String(v.Format(layout)), nil
}

// UnmapRecord converts values into a PUT record using the attribute types
// in fields. Attributes without a declared type are treated as strings.
func UnmapRecord(fields map[string]queryir.FieldType, values map[string]any) (ir.Object, error) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make(ir.Object, len(values))
	for _, name := range names {
		t, ok := fields[name]
		if !ok {
			t = queryir.FieldString
		}
		v, err := UnmapValue(name, t, values[name])
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
