package querywire

// Dialect holds the wire-format toggles of one FlexiBee deployment.
type Dialect struct {
	// LikeWithSimilar appends SIMILAR to BEGINS, ENDS and LIKE, which makes
	// the service match accent- and case-insensitively.
	LikeWithSimilar bool
}

// DefaultDialect returns the dialect the service is usually configured for.
func DefaultDialect() Dialect {
	return Dialect{LikeWithSimilar: true}
}

// Compiler compiles QueryIR filters and queries into the FlexiBee wire
// format.
//
// A Compiler is a plain value holder; it has no mutable state and is safe
// for concurrent use.
type Compiler struct {
	Dialect Dialect
}

// NewCompiler creates a Compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{Dialect: d}
}
