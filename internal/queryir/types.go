package queryir

import (
	"strings"

	"github.com/roach88/flexiq/internal/ir"
)

// Filter represents a predicate tree in the QueryIR.
//
// This is a sealed interface - only Group and Condition implement it.
// The marker method pattern enables exhaustive type switches in the
// filter compiler.
//
// A nil Filter means "no filter": no clause is emitted and the request
// path carries no filter segment.
type Filter interface {
	filterNode() // Marker method - seals interface to this package
}

// Combinator joins the children of a Group.
type Combinator string

const (
	And Combinator = "AND"
	Or  Combinator = "OR"
)

// Group is a list of child filters joined by one combinator.
//
// Semantics:
//
//	(<child1>) <combinator> (<child2>) <combinator> ... (<childN>)
//
// Every child is parenthesized on its own, so a nested group renders as
// ((a) OR (b)) inside its parent. Children are rendered left to right.
// Children that compile to nothing (empty groups, nil) are skipped; a
// group with no remaining children compiles to nothing.
//
// Example:
//
//	Group{Combinator: And, Children: []Filter{
//	  Condition{Field: "age", Operator: NotEqual, Value: ir.Null{}},
//	  Condition{Field: "active", Operator: Equal, Value: ir.Bool(true)},
//	}}
//
// Compiles to:
//
//	(age IS NOT NULL) AND (active IS true)
type Group struct {
	Combinator Combinator
	Children   []Filter
}

func (Group) filterNode() {}

// Condition is a single field comparison.
//
// The runtime variant of Value decides rendering: only ir.String is
// quoted, ir.Bool renders as true/false, ir.Null selects the IS NULL
// forms and ir.List selects the IN / NOT-IN forms.
type Condition struct {
	Field    string
	Operator Operator
	Value    ir.Value
}

func (Condition) filterNode() {}

// AllOf builds an AND group.
func AllOf(children ...Filter) Group {
	return Group{Combinator: And, Children: children}
}

// AnyOf builds an OR group.
func AnyOf(children ...Filter) Group {
	return Group{Combinator: Or, Children: children}
}

// Where builds a Condition.
func Where(field string, op Operator, value ir.Value) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

// Operator is the comparison applied by a Condition.
//
// The named operators below have dedicated renderings. Any other string
// is a pass-through operator emitted verbatim between field and value
// (for example "<", ">=" or "between").
type Operator string

const (
	Equal      Operator = "="
	NotEqual   Operator = "!="
	StartsWith Operator = "start"
	EndsWith   Operator = "end"
	Contains   Operator = "contain"

	// In and NotIn are aliases of Equal and NotEqual with a list value.
	In    Operator = "in"
	NotIn Operator = "notin"
)

// TagListField is the comma-separated tag attribute. Conditions on it are
// rendered as an OR of equalities, one per tag.
const TagListField = "stitky"

// Normalize folds the alias operators onto their canonical form.
func (op Operator) Normalize() Operator {
	switch op {
	case In:
		return Equal
	case NotIn:
		return NotEqual
	default:
		return op
	}
}

// Kind is the relationship type of an Association.
type Kind string

const (
	OneToOne   Kind = "1:1"
	OneToMany  Kind = "1:n"
	ManyToOne  Kind = "n:1"
	ManyToMany Kind = "m:n"
)

// ParseKind maps a relationship spelling to its Kind.
// The directional spellings "m>n" and "m<n" are many-to-many.
// Unknown spellings are returned unchanged with ok=false so the planner
// can report them.
func ParseKind(s string) (kind Kind, ok bool) {
	switch s {
	case "1:1":
		return OneToOne, true
	case "1:n":
		return OneToMany, true
	case "n:1":
		return ManyToOne, true
	case "m:n", "m>n", "m<n":
		return ManyToMany, true
	default:
		return Kind(s), false
	}
}

// Many-to-many link mechanisms, used as Association.JoinKey.
const (
	JoinBuiltinLinks = "vazby"
	JoinCustomLinks  = "uzivatelske-vazby"
)

// Association describes a relationship to resolve in the same round trip
// as the main query.
//
// Which keys are read depends on Kind:
//   - OneToOne, ManyToOne: ReferencingKey is the attribute on the source
//     record holding the related record.
//   - OneToMany: ReferencedKey is the attribute holding the related list.
//   - ManyToMany: JoinKey picks the link mechanism ("vazby" for built-in
//     links, "uzivatelske-vazby" for user-defined links), JoinResource is
//     the link type tag (a comma-separated set for built-in links) and
//     ReferencingKey is the link side to read ("a", "b" or "object").
//
// TargetSelection is the selection applied to the related records.
type Association struct {
	PropertyName    string
	Kind            Kind
	SourceResource  string
	TargetResource  string
	ReferencingKey  string
	ReferencedKey   string
	JoinKey         string
	JoinResource    string
	TargetSelection SelectionTree
}

// Method is the request method of a Query.
type Method string

const (
	MethodGet    Method = "get"
	MethodPut    Method = "put"
	MethodDelete Method = "delete"
)

// HTTP returns the method name as sent on the wire.
func (m Method) HTTP() string {
	switch m {
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	default:
		return "GET"
	}
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderBy is one sort key.
type OrderBy struct {
	Field     string
	Direction Direction
}

// ParseOrder parses a sort key written as "field", "+field" or "-field".
// A leading "-" sorts descending.
func ParseOrder(s string) OrderBy {
	switch {
	case strings.HasPrefix(s, "-"):
		return OrderBy{Field: s[1:], Direction: Desc}
	case strings.HasPrefix(s, "+"):
		return OrderBy{Field: s[1:], Direction: Asc}
	default:
		return OrderBy{Field: s, Direction: Asc}
	}
}

// Page is an offset/limit window. A nil *Page sends no window at all.
type Page struct {
	Offset int
	Limit  int
}

// Option is a raw query parameter passed through unchanged.
type Option struct {
	Name  string
	Value string
}

// Format is the response representation requested by the path suffix.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// Query is a complete request description against one resource.
//
// The caller fills the descriptive fields. Includes, Relations and
// DetailFull are produced by the association planner and only read by
// the request assembler; callers leave them empty.
//
// Example:
//
//	Query{
//	  Resource:  "faktura-vydana",
//	  Method:    MethodGet,
//	  Filter:    Where("kod", StartsWith, ir.String("FV")),
//	  Selection: Select(Leaf("id"), Leaf("kod"), Leaf("firma")),
//	  Page:      &Page{Offset: 0, Limit: 20},
//	  Order:     []OrderBy{{Field: "datVyst", Direction: Desc}},
//	}
//
// Assembles to:
//
//	faktura-vydana/(kod%20BEGINS%20SIMILAR%20%27FV%27).json?start=0&limit=20&order=datVyst@D&detail=custom:id,kod,firma&code-as-id=true
type Query struct {
	Resource string
	ID       string // GET and DELETE only; PUT carries Body
	Method   Method
	Format   Format // empty means FormatJSON

	Filter    Filter
	Selection SelectionTree // nil asks for the service's default fields
	Page      *Page
	Order     []OrderBy // only the first key is sent

	Associations             []Association
	DetailFullOnAssociations bool

	Options []Option
	Body    ir.Value // PUT payload, wrapped in the envelope by the engine

	// Planned by the association planner.
	Includes   []string
	Relations  []string
	DetailFull bool
}

// Clone returns a copy of q that shares no slices with it.
// Filter and Body values are immutable and are shared.
func (q Query) Clone() Query {
	out := q
	out.Selection = q.Selection.Clone()
	if q.Page != nil {
		page := *q.Page
		out.Page = &page
	}
	out.Order = cloneSlice(q.Order)
	if q.Associations != nil {
		out.Associations = make([]Association, len(q.Associations))
		for i, a := range q.Associations {
			a.TargetSelection = a.TargetSelection.Clone()
			out.Associations[i] = a
		}
	}
	out.Options = cloneSlice(q.Options)
	out.Includes = cloneSlice(q.Includes)
	out.Relations = cloneSlice(q.Relations)
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// FieldType is the declared type of a resource attribute. Only the date
// types change how values are written; the rest document the mapping.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldInt      FieldType = "int"
	FieldFloat    FieldType = "float"
	FieldBool     FieldType = "bool"
	FieldDate     FieldType = "date"
	FieldDateTime FieldType = "datetime"
)

// ResourceSpec is a named resource with its association descriptors and
// default selection, as loaded from a mapping file.
type ResourceSpec struct {
	Name string

	// Primary is the attribute identifying a record in insert payloads.
	Primary string

	Selection    SelectionTree
	Fields       map[string]FieldType
	Associations []Association
}

// Association returns the descriptor registered under property name.
func (r ResourceSpec) Association(name string) (Association, bool) {
	for _, a := range r.Associations {
		if a.PropertyName == name {
			return a, true
		}
	}
	return Association{}, false
}
