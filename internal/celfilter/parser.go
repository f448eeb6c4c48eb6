package celfilter

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/cel-go/cel"
	exprv1 "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

// ErrUnsupported is wrapped by every error about a CEL construct that has
// no filter equivalent.
var ErrUnsupported = errors.New("unsupported filter expression")

// Parser turns CEL filter text into a queryir.Filter.
//
// Only the syntax is used; expressions are never type-checked or
// evaluated, so identifiers need no declarations. Supported forms:
//
//	a && b, a || b                 groups
//	field == v, field != v         equality (null, bools, strings, numbers)
//	field < v, <=, >, >=           pass-through comparisons
//	field in [v1, v2]              IN
//	!(expr)                        negation pushed down to the conditions
//	field.startsWith("x")          BEGINS
//	field.endsWith("x")            ENDS
//	field.contains("x")            LIKE
//	field                          field == true
//
// Field names may be dotted (firma.kod).
type Parser struct {
	env *cel.Env
}

// NewParser creates a Parser.
func NewParser() (*Parser, error) {
	env, err := cel.NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Parser{env: env}, nil
}

// Parse converts filter text into a filter tree. Empty text yields nil.
func (p *Parser) Parse(text string) (queryir.Filter, error) {
	if text == "" {
		return nil, nil
	}

	ast, issues := p.env.Parse(text)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to parse filter: %w", issues.Err())
	}
	parsed, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to convert AST: %w", err)
	}

	return buildFilter(parsed.GetExpr())
}

// Parse is a convenience wrapper around NewParser and Parser.Parse.
func Parse(text string) (queryir.Filter, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	return p.Parse(text)
}

func buildFilter(expr *exprv1.Expr) (queryir.Filter, error) {
	switch v := expr.ExprKind.(type) {
	case *exprv1.Expr_CallExpr:
		return buildCall(v.CallExpr)
	case *exprv1.Expr_IdentExpr, *exprv1.Expr_SelectExpr:
		field, err := getFieldName(expr)
		if err != nil {
			return nil, err
		}
		return queryir.Where(field, queryir.Equal, ir.Bool(true)), nil
	default:
		return nil, fmt.Errorf("top-level expression must be a condition: %w", ErrUnsupported)
	}
}

func buildCall(call *exprv1.Expr_Call) (queryir.Filter, error) {
	switch call.Function {
	case "_&&_":
		return buildGroup(queryir.And, call)
	case "_||_":
		return buildGroup(queryir.Or, call)
	case "!_":
		if len(call.Args) != 1 {
			return nil, fmt.Errorf("logical NOT expects one argument")
		}
		return buildNegation(call.Args[0])
	case "_==_", "_!=_", "_<_", "_>_", "_<=_", "_>=_":
		return buildComparison(call)
	case "@in":
		return buildIn(call, queryir.In)
	case "startsWith":
		return buildPattern(call, queryir.StartsWith)
	case "endsWith":
		return buildPattern(call, queryir.EndsWith)
	case "contains":
		return buildPattern(call, queryir.Contains)
	default:
		return nil, fmt.Errorf("call %q: %w", call.Function, ErrUnsupported)
	}
}

// buildGroup flattens chains of the same combinator into one group, so
// a && b && c is a single group of three.
func buildGroup(combinator queryir.Combinator, call *exprv1.Expr_Call) (queryir.Filter, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("logical %s expects two arguments", combinator)
	}

	group := queryir.Group{Combinator: combinator}
	for _, arg := range call.Args {
		child, err := buildFilter(arg)
		if err != nil {
			return nil, err
		}
		if nested, ok := child.(queryir.Group); ok && nested.Combinator == combinator {
			group.Children = append(group.Children, nested.Children...)
			continue
		}
		group.Children = append(group.Children, child)
	}
	return group, nil
}

// buildNegation pushes a NOT down to the conditions. Groups swap their
// combinator (De Morgan), comparisons swap their operator and a bare
// field becomes field == false. Pattern operators have no negated form.
func buildNegation(expr *exprv1.Expr) (queryir.Filter, error) {
	if field, err := getFieldName(expr); err == nil {
		return queryir.Where(field, queryir.Equal, ir.Bool(false)), nil
	}
	f, err := buildFilter(expr)
	if err != nil {
		return nil, err
	}
	return negate(f)
}

var negatedOperators = map[queryir.Operator]queryir.Operator{
	queryir.Equal:    queryir.NotEqual,
	queryir.NotEqual: queryir.Equal,
	queryir.In:       queryir.NotIn,
	queryir.NotIn:    queryir.In,
	"<":              ">=",
	">=":             "<",
	">":              "<=",
	"<=":             ">",
}

func negate(f queryir.Filter) (queryir.Filter, error) {
	switch node := f.(type) {
	case queryir.Group:
		out := queryir.Group{Combinator: queryir.And}
		if node.Combinator == queryir.And {
			out.Combinator = queryir.Or
		}
		for _, child := range node.Children {
			n, err := negate(child)
			if err != nil {
				return nil, err
			}
			out.Children = append(out.Children, n)
		}
		return out, nil
	case queryir.Condition:
		if b, ok := node.Value.(ir.Bool); ok && node.Operator == queryir.Equal {
			node.Value = !b
			return node, nil
		}
		op, ok := negatedOperators[node.Operator]
		if !ok {
			return nil, fmt.Errorf("negation of %q on field %q: %w", node.Operator, node.Field, ErrUnsupported)
		}
		node.Operator = op
		return node, nil
	default:
		return nil, fmt.Errorf("negation of %T: %w", f, ErrUnsupported)
	}
}

func buildComparison(call *exprv1.Expr_Call) (queryir.Filter, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("comparison expects two arguments")
	}
	op := toOperator(call.Function)

	field, err := getFieldName(call.Args[0])
	valueExpr := call.Args[1]
	if err != nil {
		// literal on the left: v < field reads as field > v
		field, err = getFieldName(call.Args[1])
		if err != nil {
			return nil, fmt.Errorf("comparison needs a field on one side: %w", ErrUnsupported)
		}
		valueExpr = call.Args[0]
		op = mirror(op)
	}

	value, err := buildValue(valueExpr)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return queryir.Where(field, op, value), nil
}

func buildIn(call *exprv1.Expr_Call, op queryir.Operator) (queryir.Filter, error) {
	if len(call.Args) != 2 {
		return nil, fmt.Errorf("in operator expects two arguments")
	}
	field, err := getFieldName(call.Args[0])
	if err != nil {
		return nil, fmt.Errorf("in: left side must be a field: %w", ErrUnsupported)
	}
	listExpr := call.Args[1].GetListExpr()
	if listExpr == nil {
		return nil, fmt.Errorf("in: right side must be a list literal: %w", ErrUnsupported)
	}

	values := make(ir.List, 0, len(listExpr.Elements))
	for _, element := range listExpr.Elements {
		v, err := buildValue(element)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		values = append(values, v)
	}
	return queryir.Where(field, op, values), nil
}

func buildPattern(call *exprv1.Expr_Call, op queryir.Operator) (queryir.Filter, error) {
	if call.Target == nil {
		return nil, fmt.Errorf("%s requires a target", call.Function)
	}
	field, err := getFieldName(call.Target)
	if err != nil {
		return nil, err
	}
	if len(call.Args) != 1 {
		return nil, fmt.Errorf("%s expects exactly one argument", call.Function)
	}
	value, err := buildValue(call.Args[0])
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	return queryir.Where(field, op, value), nil
}

// buildValue converts a literal (or a list of literals) into an ir.Value.
func buildValue(expr *exprv1.Expr) (ir.Value, error) {
	if listExpr := expr.GetListExpr(); listExpr != nil {
		out := make(ir.List, 0, len(listExpr.Elements))
		for _, element := range listExpr.Elements {
			v, err := buildValue(element)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	// Negative numbers parse as a call to -_
	if call := expr.GetCallExpr(); call != nil && call.Function == "-_" && len(call.Args) == 1 {
		v, err := buildValue(call.Args[0])
		if err != nil {
			return nil, err
		}
		switch n := v.(type) {
		case ir.Int:
			return -n, nil
		case ir.Float:
			return -n, nil
		}
		return nil, fmt.Errorf("negation of a non-number: %w", ErrUnsupported)
	}

	literal, err := getConstValue(expr)
	if err != nil {
		return nil, err
	}
	return ir.FromGo(literal)
}

func toOperator(fn string) queryir.Operator {
	switch fn {
	case "_==_":
		return queryir.Equal
	case "_!=_":
		return queryir.NotEqual
	case "_<_":
		return "<"
	case "_>_":
		return ">"
	case "_<=_":
		return "<="
	default:
		return ">="
	}
}

func mirror(op queryir.Operator) queryir.Operator {
	switch op {
	case "<":
		return ">"
	case ">":
		return "<"
	case "<=":
		return ">="
	case ">=":
		return "<="
	default:
		return op
	}
}

// getFieldName reads an identifier or a dotted select chain (firma.kod).
func getFieldName(expr *exprv1.Expr) (string, error) {
	if ident := expr.GetIdentExpr(); ident != nil {
		return ident.GetName(), nil
	}
	if sel := expr.GetSelectExpr(); sel != nil && !sel.GetTestOnly() {
		operand, err := getFieldName(sel.GetOperand())
		if err != nil {
			return "", err
		}
		return operand + "." + sel.GetField(), nil
	}
	return "", fmt.Errorf("expression is not a field")
}

func getConstValue(expr *exprv1.Expr) (any, error) {
	v, ok := expr.ExprKind.(*exprv1.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("value must be a literal: %w", ErrUnsupported)
	}
	switch x := v.ConstExpr.ConstantKind.(type) {
	case *exprv1.Constant_StringValue:
		return v.ConstExpr.GetStringValue(), nil
	case *exprv1.Constant_Int64Value:
		return v.ConstExpr.GetInt64Value(), nil
	case *exprv1.Constant_Uint64Value:
		u := v.ConstExpr.GetUint64Value()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned value %d out of range: %w", u, ErrUnsupported)
		}
		return int64(u), nil
	case *exprv1.Constant_DoubleValue:
		return v.ConstExpr.GetDoubleValue(), nil
	case *exprv1.Constant_BoolValue:
		return v.ConstExpr.GetBoolValue(), nil
	case *exprv1.Constant_NullValue:
		return nil, nil
	default:
		return nil, fmt.Errorf("constant %T: %w", x, ErrUnsupported)
	}
}
