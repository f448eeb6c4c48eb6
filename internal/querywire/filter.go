package querywire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

var (
	// ErrUnquotableValue is returned for a textual value containing a
	// single quote. The filter grammar has no escape for it.
	ErrUnquotableValue = errors.New("value contains a single quote")

	// ErrInvalidOperand is returned when a value cannot be used with its
	// operator (an empty list, an object, a list with a pattern operator).
	ErrInvalidOperand = errors.New("invalid operand")
)

// CompileFilter converts a filter tree into the textual filter expression
// placed in the request path.
//
// A nil filter, and a group whose children all compile to nothing,
// produce the empty string. Group children are each wrapped in
// parentheses and joined with the group's combinator; the outermost group
// is not wrapped again.
//
// The output is deterministic for a given filter and dialect.
func (c *Compiler) CompileFilter(f queryir.Filter) (string, error) {
	switch node := f.(type) {
	case nil:
		return "", nil
	case queryir.Group:
		return c.compileGroup(node)
	case *queryir.Group:
		if node == nil {
			return "", nil
		}
		return c.compileGroup(*node)
	case queryir.Condition:
		return c.compileCondition(node)
	case *queryir.Condition:
		if node == nil {
			return "", nil
		}
		return c.compileCondition(*node)
	default:
		return "", fmt.Errorf("unsupported filter type: %T", f)
	}
}

// compileGroup parenthesizes every non-empty child and joins them.
func (c *Compiler) compileGroup(g queryir.Group) (string, error) {
	sep := " AND "
	if g.Combinator == queryir.Or {
		sep = " OR "
	}

	parts := make([]string, 0, len(g.Children))
	for i, child := range g.Children {
		s, err := c.CompileFilter(child)
		if err != nil {
			return "", fmt.Errorf("child %d: %w", i, err)
		}
		if s == "" {
			continue
		}
		parts = append(parts, "("+s+")")
	}

	return strings.Join(parts, sep), nil
}

// compileCondition resolves one comparison. The first matching rule wins:
// tag list, pattern operators, list forms, boolean, null, empty, plain
// equality, pass-through.
func (c *Compiler) compileCondition(cond queryir.Condition) (string, error) {
	op := cond.Operator.Normalize()
	field := cond.Field

	if field == queryir.TagListField && isTagListOperator(op) {
		if tags, ok := tagValues(cond.Value); ok {
			return compileTagList(field, tags)
		}
	}
	if field == queryir.TagListField && op == queryir.NotEqual {
		if text, ok := cond.Value.(ir.String); ok && !isEmptyMarker(text) {
			return compileEquality(field, op, ir.Strings(strings.Split(string(text), ",")...))
		}
	}

	switch op {
	case queryir.StartsWith:
		return c.compilePattern(field, "BEGINS", cond.Value)
	case queryir.EndsWith:
		return c.compilePattern(field, "ENDS", cond.Value)
	case queryir.Contains:
		return c.compilePattern(field, "LIKE", cond.Value)
	}

	if op == queryir.Equal || op == queryir.NotEqual {
		return compileEquality(field, op, cond.Value)
	}

	val, err := renderValue(cond.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	return field + " " + string(op) + " " + val, nil
}

// compileEquality handles Equal and NotEqual, whose rendering depends on
// the runtime variant of the value.
func compileEquality(field string, op queryir.Operator, value ir.Value) (string, error) {
	not := op == queryir.NotEqual

	switch val := value.(type) {
	case ir.List:
		if len(val) == 0 {
			return "", fmt.Errorf("field %q: empty list: %w", field, ErrInvalidOperand)
		}
		items := make([]string, len(val))
		for i, item := range val {
			s, err := renderValue(item)
			if err != nil {
				return "", fmt.Errorf("field %q: list[%d]: %w", field, i, err)
			}
			items[i] = s
		}
		if not {
			// NOT IN is spelled as a conjunction of inequalities
			for i, s := range items {
				items[i] = field + " != " + s
			}
			return "(" + strings.Join(items, " AND ") + ")", nil
		}
		return field + " IN (" + strings.Join(items, ",") + ")", nil

	case ir.Bool:
		// IS NOT is not accepted with booleans, so NotEqual negates the value
		b := bool(val)
		if not {
			b = !b
		}
		return fmt.Sprintf("%s IS %t", field, b), nil

	case nil, ir.Null:
		return field + isKeyword(not) + "NULL", nil

	case ir.String:
		switch val {
		case "":
			return field + isKeyword(not) + "NULL", nil
		case "''", `""`:
			return field + isKeyword(not) + "empty", nil
		}
	}

	val, err := renderValue(value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	if not {
		return field + " != " + val, nil
	}
	return field + " = " + val, nil
}

func isKeyword(not bool) string {
	if not {
		return " IS NOT "
	}
	return " IS "
}

// isEmptyMarker reports whether s is one of the strings that compare as
// NULL or empty rather than as text.
func isEmptyMarker(s ir.String) bool {
	switch s {
	case "", "''", `""`:
		return true
	default:
		return false
	}
}

// compilePattern renders BEGINS, ENDS and LIKE. Pattern operands are
// always quoted, whatever their runtime type.
func (c *Compiler) compilePattern(field, keyword string, value ir.Value) (string, error) {
	if c.Dialect.LikeWithSimilar {
		keyword += " SIMILAR"
	}

	text, ok := ir.Text(value)
	if !ok {
		return "", fmt.Errorf("field %q: %s needs a scalar value, got %T: %w", field, keyword, value, ErrInvalidOperand)
	}
	quoted, err := quote(text)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", field, err)
	}
	return field + " " + keyword + " " + quoted, nil
}

// isTagListOperator reports whether op selects the tag-list rendering.
func isTagListOperator(op queryir.Operator) bool {
	switch op {
	case queryir.Equal, queryir.Contains, queryir.StartsWith, queryir.EndsWith:
		return true
	default:
		return false
	}
}

// tagValues splits a tag operand. A string is split on commas; a list
// contributes its textual elements.
func tagValues(value ir.Value) ([]string, bool) {
	switch val := value.(type) {
	case ir.String:
		return strings.Split(string(val), ","), true
	case ir.List:
		if len(val) == 0 {
			return nil, false
		}
		tags := make([]string, 0, len(val))
		for _, item := range val {
			text, ok := ir.Text(item)
			if !ok {
				return nil, false
			}
			tags = append(tags, text)
		}
		return tags, true
	default:
		return nil, false
	}
}

// compileTagList renders an OR of equalities, one per tag. Tags are
// always quoted.
func compileTagList(field string, tags []string) (string, error) {
	parts := make([]string, len(tags))
	for i, tag := range tags {
		quoted, err := quote(tag)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", field, err)
		}
		parts[i] = field + " = " + quoted
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// renderValue renders a scalar operand: strings quoted, numbers in their
// shortest form, booleans as true/false, null as NULL.
func renderValue(value ir.Value) (string, error) {
	switch val := value.(type) {
	case nil, ir.Null:
		return "NULL", nil
	case ir.String:
		return quote(string(val))
	case ir.Int, ir.Float, ir.Bool:
		text, _ := ir.Text(val)
		return text, nil
	default:
		return "", fmt.Errorf("cannot render %T: %w", value, ErrInvalidOperand)
	}
}

func quote(s string) (string, error) {
	if strings.ContainsRune(s, '\'') {
		return "", fmt.Errorf("%q: %w", s, ErrUnquotableValue)
	}
	return "'" + s + "'", nil
}
