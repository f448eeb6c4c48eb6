// Package harness provides conformance testing for the FlexiBee adapter.
//
// A scenario runs adapter operations against canned server replies and
// checks the requests the adapter sends: their method, URL and body, the
// interpreted results and the journal entries written along the way.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: invoice_with_company
//	description: "Selecting invoices fetches the company in the same request"
//	mapping: mapping/invoices.cue
//	flow:
//	  - operation: select
//	    resource: faktura-vydana
//	    filter: 'kod.startsWith("FV")'
//	    assoc: [company]
//	    limit: 10
//	    replies:
//	      - body:
//	          faktura-vydana:
//	            - {id: 1, kod: FV1, firma: [{id: 7, kod: FIRMA}]}
//	    expect:
//	      result: [{kod: FV1, company: {kod: FIRMA}}]
//	assertions:
//	  - type: request_contains
//	    method: GET
//	    url: "faktura-vydana/(kod%20BEGINS%20SIMILAR%20%27FV%27).json?..."
//	  - type: journal
//	    where: {operation: select}
//	    expect: {status: 200}
//
// # Assertion Types
//
//   - request_contains: a request with the URL (and method, body subset) was sent
//   - request_order: URLs were requested in the given order
//   - request_count: exactly N requests (of a method, if given) were sent
//   - journal: exactly one journal entry matches where and carries expect
//
// # Deterministic Testing
//
// Every scenario runs with a deterministic clock and sequential request ids
// against an in-memory SQLite journal, so traces are identical across runs
// and can be compared with golden files (see RunWithGolden and Snapshot).
package harness
