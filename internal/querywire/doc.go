// Package querywire compiles QueryIR into the FlexiBee ("winstrom") wire
// format.
//
// Three pieces live here:
//   - the filter compiler, which turns a Filter tree into the textual
//     expression placed in the URL path: (kod BEGINS SIMILAR 'FV') AND (stav IS NOT NULL)
//   - the selection escaper, which strips write-side annotations
//     (polozky@removeAll, firma@ref ...) and renders detail=custom
//   - the request assembler, which orders path segments and query
//     parameters into a RequestPlan
//
// Nothing in this package performs I/O. The engine hands a RequestPlan to
// a transport.
package querywire
