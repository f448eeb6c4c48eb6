// Package celfilter reads filter predicates written in CEL syntax, for
// example
//
//	kod.startsWith("FV") && (stavUhrK == null || sumCelkem >= 1000)
//
// and turns them into queryir filter trees. It is the textual front end
// used by the CLI and by conformance scenarios.
package celfilter
