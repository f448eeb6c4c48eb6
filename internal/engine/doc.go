// Package engine is the FlexiBee adapter: it builds queries for the CRUD
// operations, sends them through a Transport and interprets responses.
//
// Each operation runs the same pipeline:
//
//  1. A Build* method turns operation arguments into a queryir.Query
//  2. assoc.Plan adds includes, relations and association selections
//  3. querywire.Compiler.Assemble renders path and parameters
//  4. PUT bodies are wrapped in the payload envelope; a filter is injected
//     as @filter
//  5. The Transport sends the request; the Journal (optional) records it
//     with a request id and a logical clock value
//  6. The envelope is removed, ids are replaced by "code:" external ids
//     (Options.CodeAsID), and associations are attached to each record
//
// Build* methods are pure and can be used to preview a request without
// sending it; Compile returns the assembled plan.
//
// Status handling:
//   - 200 and 201 are success
//   - 404 on a GET is absence: SelectOne reports found=false, Select an
//     empty result
//   - anything else is a *RemoteError carrying the decoded payload
package engine
