package querywire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
)

// RequestPlan is the final request description: method, path relative to
// the company base URL, and ordered query parameters.
//
// A plan shares nothing with the Query it was assembled from. Params must
// be cloned before modification if the plan itself is kept.
type RequestPlan struct {
	Method string
	Path   string
	Params Params
}

// URL renders the path and parameters as path?k=v&k2=v2.
func (p RequestPlan) URL() string {
	if len(p.Params) == 0 {
		return p.Path
	}
	return p.Path + "?" + p.Params.Encode()
}

// Hash returns the content-addressed identity of the plan. Two plans with
// the same method, path and ordered parameters share a hash.
func (p RequestPlan) Hash() (string, error) {
	params := make(ir.List, len(p.Params))
	for i, opt := range p.Params {
		params[i] = ir.Strings(opt.Name, opt.Value)
	}
	return ir.ContentHash(ir.DomainPlan, ir.NewObject(
		ir.O("method", ir.String(p.Method)),
		ir.O("path", ir.String(p.Path)),
		ir.O("params", params),
	))
}

// Assemble builds the request plan for q.
//
// Path:
//
//	<resource>[/(<filter>)][/<id>].<format>
//
// The filter segment is only added for GET; the id segment for anything
// but PUT. Both are percent-encoded as RFC 3986 path data.
//
// Parameters, in order: start and limit (when a page is set), order
// (first key only), detail=custom:<selection>, the caller's options,
// code-in-response (PUT) or code-as-id (GET), detail=full when planned,
// includes, relations.
//
// Assemble reads q without modifying it.
func (c *Compiler) Assemble(q queryir.Query) (RequestPlan, error) {
	method := q.Method
	if method == "" {
		method = queryir.MethodGet
	}

	path := q.Resource
	if method == queryir.MethodGet {
		filter, err := c.CompileFilter(q.Filter)
		if err != nil {
			return RequestPlan{}, fmt.Errorf("assemble %s: %w", q.Resource, err)
		}
		if filter != "" {
			path += "/(" + rawURLEncode(filter) + ")"
		}
	}
	if q.ID != "" && method != queryir.MethodPut {
		path += "/" + rawURLEncode(q.ID)
	}
	path += "." + formatSuffix(q.Format)

	var params Params
	if q.Page != nil {
		params.Set("start", strconv.Itoa(q.Page.Offset))
		params.Set("limit", strconv.Itoa(q.Page.Limit))
	}
	if len(q.Order) > 0 {
		params.Set("order", orderParam(q.Order[0]))
	}
	if len(q.Selection) > 0 {
		params.Set("detail", "custom:"+EscapeSelection(q.Selection))
	}
	for _, opt := range q.Options {
		params.Set(opt.Name, opt.Value)
	}

	switch method {
	case queryir.MethodPut:
		params.Set("code-in-response", "true")
	case queryir.MethodGet:
		params.Set("code-as-id", "true")
	}

	if q.DetailFull {
		params.Set("detail", "full")
	}
	if len(q.Includes) > 0 {
		params.Set("includes", strings.Join(q.Includes, ","))
	}
	if len(q.Relations) > 0 {
		params.Set("relations", strings.Join(q.Relations, ","))
	}

	return RequestPlan{
		Method: method.HTTP(),
		Path:   path,
		Params: params,
	}, nil
}

func orderParam(o queryir.OrderBy) string {
	if o.Direction == queryir.Desc {
		return o.Field + "@D"
	}
	return o.Field + "@A"
}

func formatSuffix(f queryir.Format) string {
	if f == queryir.FormatXML {
		return "xml"
	}
	return "json"
}

// rawURLEncode percent-encodes everything outside the RFC 3986 unreserved
// set (ALPHA / DIGIT / "-" / "." / "_" / "~"), spaces included.
func rawURLEncode(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	default:
		return false
	}
}
