package assoc

import (
	"slices"
	"strings"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

// Extract pulls the value of one association out of a decoded record.
//
// Per kind:
//   - n:1, 1:1: record[referencingKey], or ir.Null when absent
//   - 1:n: record[referencedKey], or an empty ir.List when absent
//   - m:n built-in links: for each entry of record["vazby"] whose
//     typVazbyK is one of the comma-separated JoinResource tags, the first
//     element of entry[referencingKey]
//   - m:n user-defined links: for each entry of
//     record["uzivatelske-vazby"] whose vazbaTyp equals JoinResource, the
//     first element of entry["object"]
//
// Many-to-many results keep source order. Missing attributes are never
// an error; an unknown kind or join key is.
func Extract(a queryir.Association, record ir.Object) (ir.Value, error) {
	switch a.Kind {
	case queryir.ManyToOne, queryir.OneToOne:
		v, ok := record.Get(a.ReferencingKey)
		if !ok || v == nil {
			return ir.Null{}, nil
		}
		return v, nil

	case queryir.OneToMany:
		v, ok := record.Get(a.ReferencedKey)
		if !ok || ir.IsNull(v) {
			return ir.List{}, nil
		}
		return v, nil

	case queryir.ManyToMany:
		switch a.JoinKey {
		case queryir.JoinBuiltinLinks:
			tags := strings.Split(a.JoinResource, ",")
			return collectLinks(record.List(builtinLinksRelation), builtinLinkType, a.ReferencingKey, func(tag string) bool {
				return slices.Contains(tags, tag)
			}), nil

		case queryir.JoinCustomLinks:
			return collectLinks(record.List(customLinksRelation), customLinkType, customLinkSide(a), func(tag string) bool {
				return tag == a.JoinResource
			}), nil

		default:
			return nil, NewUnexpectedJoinKeyError(a)
		}

	default:
		return nil, NewUnsupportedKindError(a)
	}
}

// collectLinks walks link entries in order and gathers the linked record
// of every entry whose type tag matches.
func collectLinks(entries ir.List, typeKey, sideKey string, match func(string) bool) ir.List {
	out := ir.List{}
	for _, e := range entries {
		entry, ok := e.(ir.Object)
		if !ok {
			continue
		}
		tag, ok := entry.Text(typeKey)
		if !ok || !match(tag) {
			continue
		}
		if v, ok := first(entry[sideKey]); ok {
			out = append(out, v)
		}
	}
	return out
}

// first returns the first element of a list, or the value itself when it
// is not a list. Absent values and empty lists report false.
func first(v ir.Value) (ir.Value, bool) {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil, false
	case ir.List:
		if len(val) == 0 {
			return nil, false
		}
		return val[0], true
	default:
		return val, true
	}
}

// Attach returns a copy of record with every association's extracted
// value stored under its property name.
func Attach(associations []queryir.Association, record ir.Object) (ir.Object, error) {
	out := record.Clone()
	for _, a := range associations {
		v, err := Extract(a, record)
		if err != nil {
			return nil, err
		}
		out[a.PropertyName] = v
	}
	return out, nil
}
