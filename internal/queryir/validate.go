package queryir

import (
	"fmt"

	"github.com/roach88/flexiq/internal/ir"
)

// ValidationResult contains the findings of a query check.
//
// Warnings describe parts of the query that the wire format will drop or
// that the service is likely to reject. They never stop assembly: the
// assembler sends what it can, and callers decide whether to surface
// them.
type ValidationResult struct {
	// IsClean is true when the query produced no warnings.
	IsClean bool

	// Warnings lists the findings in traversal order.
	Warnings []string
}

// Validate checks a query for fields the wire format ignores or rejects.
//
// Checks:
//  1. A resource name is present
//  2. ID is not combined with PUT (the PUT body carries identity)
//  3. Only the first order key is sent
//  4. Page offset and limit are non-negative
//  5. Filter conditions name a field; list values only appear with
//     Equal/NotEqual and their aliases
//  6. Association kinds and many-to-many join keys are known
//
// Validate is a pure function with no side effects.
func Validate(q Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(q)

	return ValidationResult{
		IsClean:  len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

// addWarning appends a warning message.
func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	if q.Resource == "" {
		v.addWarning("Empty resource - the request path needs a resource name")
	}

	switch q.Method {
	case "", MethodGet, MethodDelete:
	case MethodPut:
		if q.ID != "" {
			v.addWarning("ID %q ignored on put - the body carries record identity", q.ID)
		}
		if ir.IsNull(q.Body) {
			v.addWarning("Put without body")
		}
	default:
		v.addWarning("Unknown method %q - sent as GET", q.Method)
	}

	switch q.Format {
	case "", FormatJSON, FormatXML:
	default:
		v.addWarning("Unknown format %q - sent as json", q.Format)
	}

	if len(q.Order) > 1 {
		v.addWarning("Only the first order key is sent; %d keys ignored", len(q.Order)-1)
	}

	if q.Page != nil {
		if q.Page.Offset < 0 {
			v.addWarning("Negative page offset %d", q.Page.Offset)
		}
		if q.Page.Limit < 0 {
			v.addWarning("Negative page limit %d", q.Page.Limit)
		}
	}

	if q.Filter != nil {
		v.validateFilter(q.Filter)
	}

	for _, a := range q.Associations {
		v.validateAssociation(a)
	}
}

// validateFilter recursively validates a filter node.
func (v *validator) validateFilter(f Filter) {
	switch node := f.(type) {
	case nil:
	case Group:
		v.validateGroup(node)
	case *Group:
		v.validateGroup(*node)
	case Condition:
		v.validateCondition(node)
	case *Condition:
		v.validateCondition(*node)
	default:
		v.addWarning("Unknown filter type: %T", f)
	}
}

func (v *validator) validateGroup(g Group) {
	if g.Combinator != And && g.Combinator != Or {
		v.addWarning("Unknown combinator %q - children joined with AND", g.Combinator)
	}
	for _, child := range g.Children {
		v.validateFilter(child)
	}
}

func (v *validator) validateCondition(c Condition) {
	if c.Field == "" {
		v.addWarning("Condition without field")
	}
	if _, isList := c.Value.(ir.List); isList {
		switch c.Operator.Normalize() {
		case Equal, NotEqual:
		case StartsWith, Contains, EndsWith:
			if c.Field != TagListField {
				v.addWarning("Field '%s': operator %q does not accept a list", c.Field, c.Operator)
			}
		default:
			v.addWarning("Field '%s': operator %q does not accept a list", c.Field, c.Operator)
		}
	}
	if _, isObject := c.Value.(ir.Object); isObject {
		v.addWarning("Field '%s' compared to an object", c.Field)
	}
}

func (v *validator) validateAssociation(a Association) {
	switch a.Kind {
	case OneToOne, ManyToOne:
		if a.ReferencingKey == "" {
			v.addWarning("Association %q: missing referencing key", a.PropertyName)
		}
	case OneToMany:
		if a.ReferencedKey == "" {
			v.addWarning("Association %q: missing referenced key", a.PropertyName)
		}
	case ManyToMany:
		if a.JoinKey != JoinBuiltinLinks && a.JoinKey != JoinCustomLinks {
			v.addWarning("Association %q: unexpected join key %q", a.PropertyName, a.JoinKey)
		}
		if a.JoinResource == "" {
			v.addWarning("Association %q: missing link type", a.PropertyName)
		}
	default:
		v.addWarning("Association %q: unsupported kind %q", a.PropertyName, a.Kind)
	}
}
