package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/flexiq/internal/queryir"
)

// CompileResource parses a CUE value into a ResourceSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the resource struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`resource: "faktura-vydana": { ... }`)
//	spec, err := CompileResource(v.LookupPath(cue.MakePath(cue.Str("resource"), cue.Str("faktura-vydana"))))
//
// Recognized fields:
//
//	primary:     "kod"                               // optional
//	selection:   ["id", "kod", "polozky(id,cenaMj)"] // or one string "id,kod"
//	fields:      { datVyst: "date", lastUpdate: "datetime" }
//	association: {
//	    company: { kind: "n:1", by: ["firma"], target: "adresar", selection: "id,kod" }
//	    items:   { kind: "1:n", by: ["polozkyFaktury"] }
//	    orders:  { kind: "m:n", by: ["vazby", "typVazbyDokl.obchod_zaloha_hla", "a"] }
//	}
//
// "by" lists the keys the kind needs: the referencing key for 1:1 and
// n:1, the referenced key for 1:n, and join key, link type and link side
// for m:n.
func CompileResource(v cue.Value) (*queryir.ResourceSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &queryir.ResourceSpec{}

	// Parse resource name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = selectorName(labels[len(labels)-1])
	}

	primaryVal := v.LookupPath(cue.ParsePath("primary"))
	if primaryVal.Exists() {
		primary, err := primaryVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Primary = primary
	}

	selectionVal := v.LookupPath(cue.ParsePath("selection"))
	if selectionVal.Exists() {
		selection, err := parseSelection(selectionVal, "selection")
		if err != nil {
			return nil, err
		}
		spec.Selection = selection
	}

	fields, err := parseFields(v)
	if err != nil {
		return nil, err
	}
	spec.Fields = fields

	spec.Associations, err = parseAssociations(v, spec.Name)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

// CompileMapping compiles every resource under the "resource" field of v,
// in source order.
func CompileMapping(v cue.Value) ([]queryir.ResourceSpec, error) {
	resourcesVal := v.LookupPath(cue.ParsePath("resource"))
	if !resourcesVal.Exists() {
		return nil, &CompileError{
			Field:   "resource",
			Message: "no resources defined",
			Pos:     v.Pos(),
		}
	}

	iter, err := resourcesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []queryir.ResourceSpec
	for iter.Next() {
		spec, err := CompileResource(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// selectorName returns the unquoted label of a path selector.
// Resource names contain dashes and are written as quoted labels.
func selectorName(sel cue.Selector) string {
	if sel.LabelType() == cue.StringLabel {
		return sel.Unquoted()
	}
	return sel.String()
}

// parseSelection accepts a selection string or a list of selection
// strings and merges them into one tree.
func parseSelection(v cue.Value, field string) (queryir.SelectionTree, error) {
	if s, err := v.String(); err == nil {
		tree, err := queryir.ParseSelection(s)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return tree, nil
	}

	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   field,
			Message: "must be a string or a list of strings",
			Pos:     v.Pos(),
		}
	}

	var tree queryir.SelectionTree
	for iter.Next() {
		item, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		parsed, err := queryir.ParseSelection(item)
		if err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		tree = queryir.Merge(tree, parsed)
	}
	return tree, nil
}

// parseFields extracts declared attribute types.
func parseFields(v cue.Value) (map[string]queryir.FieldType, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil // fields are optional
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	fields := make(map[string]queryir.FieldType)
	for iter.Next() {
		typeName, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "type",
				Message: fmt.Sprintf("field %q: type must be a string", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
		fields[iter.Label()] = queryir.FieldType(typeName)
	}
	return fields, nil
}

// parseAssociations extracts association descriptors in source order.
func parseAssociations(v cue.Value, resource string) ([]queryir.Association, error) {
	assocVal := v.LookupPath(cue.ParsePath("association"))
	if !assocVal.Exists() {
		return nil, nil
	}

	iter, err := assocVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var associations []queryir.Association
	for iter.Next() {
		a, err := parseAssociation(iter.Label(), iter.Value(), resource)
		if err != nil {
			return nil, err
		}
		associations = append(associations, a)
	}
	return associations, nil
}

func parseAssociation(name string, v cue.Value, resource string) (queryir.Association, error) {
	a := queryir.Association{
		PropertyName:   name,
		SourceResource: resource,
	}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return a, &CompileError{
			Field:   "kind",
			Message: fmt.Sprintf("association %q: kind is required", name),
			Pos:     v.Pos(),
		}
	}
	kindName, err := kindVal.String()
	if err != nil {
		return a, formatCUEError(err)
	}
	// Unknown kinds are kept so Validate can report them with the others
	a.Kind, _ = queryir.ParseKind(kindName)

	by, err := stringList(v.LookupPath(cue.ParsePath("by")))
	if err != nil {
		return a, err
	}
	switch a.Kind {
	case queryir.OneToOne, queryir.ManyToOne:
		if len(by) > 0 {
			a.ReferencingKey = by[0]
		}
	case queryir.OneToMany:
		if len(by) > 0 {
			a.ReferencedKey = by[0]
		}
	case queryir.ManyToMany:
		if len(by) > 0 {
			a.JoinKey = by[0]
		}
		if len(by) > 1 {
			a.JoinResource = by[1]
		}
		if len(by) > 2 {
			a.ReferencingKey = by[2]
		}
	}

	targetVal := v.LookupPath(cue.ParsePath("target"))
	if targetVal.Exists() {
		target, err := targetVal.String()
		if err != nil {
			return a, formatCUEError(err)
		}
		a.TargetResource = target
	}

	selectionVal := v.LookupPath(cue.ParsePath("selection"))
	if selectionVal.Exists() {
		a.TargetSelection, err = parseSelection(selectionVal, "association."+name+".selection")
		if err != nil {
			return a, err
		}
	}

	return a, nil
}

// stringList reads a list of strings. A missing value yields nil.
func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	if s, err := v.String(); err == nil {
		return strings.Split(s, ","), nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
