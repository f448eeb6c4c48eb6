// Package queryir provides the abstract query description that flexiq
// compiles into requests for the FlexiBee REST API.
//
// ARCHITECTURE:
//
// QueryIR sits between the callers that describe what they want and the
// wire layer that knows how the service spells it:
//
//	[CEL text / CUE mapping / builders] → [Query IR] → [assoc.Plan] → [querywire.Assemble]
//
// Nothing in this package knows the wire format. The filter grammar,
// selection escaping and URL layout live in querywire; the relationship
// planning lives in assoc.
//
// SEALED INTERFACES:
//
// Filter is a sealed interface using the marker method pattern. Only
// Group and Condition implement it, so compilers can switch exhaustively:
//
//	switch f := filter.(type) {
//	case Group:
//	    // Parenthesize and join children
//	case Condition:
//	    // Render one comparison
//	}
//
// VALUES:
//
// Condition values are ir.Value. The runtime variant carries meaning:
// ir.String is quoted, ir.Bool selects IS true/false, ir.Null selects
// IS NULL and ir.List selects IN / NOT-IN rendering.
//
// SELECTIONS:
//
// SelectionTree is ordered. Merge is a union that keeps first-seen order,
// which makes merging association selections into a caller's selection
// deterministic and idempotent.
package queryir
