package querywire

import (
	"strings"

	"github.com/roach88/flexiq/internal/queryir"
)

// Params is an insertion-ordered list of query parameters.
//
// Setting a name that is already present overwrites its value in the
// original position, so later stages can replace an earlier decision
// (detail=full over detail=custom:...) without reordering the URL.
type Params []queryir.Option

// Set stores value under name.
func (p *Params) Set(name, value string) {
	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Value = value
			return
		}
	}
	*p = append(*p, queryir.Option{Name: name, Value: value})
}

// Get returns the value stored under name.
func (p Params) Get(name string) (string, bool) {
	for _, opt := range p {
		if opt.Name == name {
			return opt.Value, true
		}
	}
	return "", false
}

// Clone returns a copy of p that can be modified independently.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Encode renders p as name=value pairs joined by '&'.
//
// Values are not percent-encoded: they are generated by the assembler
// (selections, include paths, flags) and the service expects them
// verbatim.
func (p Params) Encode() string {
	var b strings.Builder
	for i, opt := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(opt.Name)
		b.WriteByte('=')
		b.WriteString(opt.Value)
	}
	return b.String()
}
