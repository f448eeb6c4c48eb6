package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a conformance scenario: a flow of adapter operations run
// against canned server replies, with assertions on the requests sent.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Mapping is a CUE mapping file or directory declaring the resources
	// and associations the flow refers to. Relative paths are resolved
	// against the scenario file's directory.
	Mapping string `yaml:"mapping,omitempty"`

	// Options overrides the adapter's wire-format toggles.
	Options *OptionsClause `yaml:"options,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the requests sent and the journal.
	// Supported types: request_contains, request_order, request_count, journal
	Assertions []Assertion `yaml:"assertions"`
}

// OptionsClause overrides individual adapter toggles. Unset fields keep
// engine.DefaultOptions.
type OptionsClause struct {
	CodeAsID                 *bool `yaml:"code_as_id,omitempty"`
	DetailFullOnAssociations *bool `yaml:"detail_full_on_associations,omitempty"`
	LikeWithSimilar          *bool `yaml:"like_with_similar,omitempty"`
}

// FlowStep runs one adapter operation.
type FlowStep struct {
	// Operation is one of select, select-one, count, insert, update,
	// update-one, delete, delete-one and link.
	Operation string `yaml:"operation"`

	// Resource is the target resource.
	Resource string `yaml:"resource"`

	// ID identifies the record for select-one and delete-one.
	ID string `yaml:"id,omitempty"`

	// Filter is a CEL expression, e.g. `kod.startsWith("FV") && !storno`.
	Filter string `yaml:"filter,omitempty"`

	// Select is a selection in wire syntax: "id,kod,polozky(id,cenaMj)".
	// Empty falls back to the mapped default selection.
	Select string `yaml:"select,omitempty"`

	// Order lists sort keys; a leading "-" sorts descending.
	Order []string `yaml:"order,omitempty"`

	Limit  *int `yaml:"limit,omitempty"`
	Offset *int `yaml:"offset,omitempty"`

	// Assoc names mapped associations to fetch with a select.
	Assoc []string `yaml:"assoc,omitempty"`

	// Options are raw query parameters added to a select.
	Options map[string]string `yaml:"options,omitempty"`

	// Values is the record written by insert, update and update-one.
	Values map[string]any `yaml:"values,omitempty"`

	// Records is a batch written by insert.
	Records []map[string]any `yaml:"records,omitempty"`

	// Column and Primary identify the record for update-one; Primary is
	// also the owning record for link.
	Column  string `yaml:"column,omitempty"`
	Primary any    `yaml:"primary,omitempty"`

	// Association, Keys and Action describe a link step.
	Association string `yaml:"association,omitempty"`
	Keys        []any  `yaml:"keys,omitempty"`
	Action      string `yaml:"action,omitempty"`

	// Replies are the canned server answers for this step, in order.
	// A step without replies is answered with 200 and an empty envelope.
	Replies []ReplyClause `yaml:"replies,omitempty"`

	// Expect validates the operation's outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ReplyClause is one canned server answer.
type ReplyClause struct {
	// Status defaults to 200.
	Status int `yaml:"status,omitempty"`

	// Body is the content placed inside the winstrom envelope.
	Body map[string]any `yaml:"body,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected error kind (see ErrorKind). Empty expects success.
	Error string `yaml:"error,omitempty"`

	// Status is the expected HTTP status of a remote error.
	Status int `yaml:"status,omitempty"`

	// Result is matched against the operation's result. Objects use
	// subset semantics; lists must have the same length.
	Result any `yaml:"result,omitempty"`
}

// Assertion validates the request trace or the journal.
type Assertion struct {
	// Type specifies the assertion type:
	// - "request_contains": a request with Method, URL and Body (subset) was sent
	// - "request_order": URLs were requested in order
	// - "request_count": exactly Count requests (with Method, if set) were sent
	// - "journal": exactly one journal entry matches Where and has Expect
	Type string `yaml:"type"`

	Method string         `yaml:"method,omitempty"`
	URL    string         `yaml:"url,omitempty"`
	Body   map[string]any `yaml:"body,omitempty"`

	URLs []string `yaml:"urls,omitempty"`

	Count int `yaml:"count,omitempty"`

	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRequestContains = "request_contains"
	AssertRequestOrder    = "request_order"
	AssertRequestCount    = "request_count"
	AssertJournal         = "journal"
)

// Operation names accepted in flow steps.
const (
	OpSelect    = "select"
	OpSelectOne = "select-one"
	OpCount     = "count"
	OpInsert    = "insert"
	OpUpdate    = "update"
	OpUpdateOne = "update-one"
	OpDelete    = "delete"
	OpDeleteOne = "delete-one"
	OpLink      = "link"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative Mapping path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Mapping != "" && !filepath.IsAbs(scenario.Mapping) {
		scenario.Mapping = filepath.Join(filepath.Dir(path), scenario.Mapping)
	}
	if scenario.Mapping != "" {
		if _, err := os.Stat(scenario.Mapping); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: mapping not found: %s", scenario.Mapping)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. Mapping paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, &step, s.Mapping != ""); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks the fields each operation needs.
func validateStep(index int, step *FlowStep, hasMapping bool) error {
	if step.Resource == "" {
		return fmt.Errorf("flow[%d]: resource is required", index)
	}

	switch step.Operation {
	case OpSelect, OpCount, OpUpdate, OpDelete:
	case OpSelectOne, OpDeleteOne:
		if step.ID == "" {
			return fmt.Errorf("flow[%d]: id is required for %s", index, step.Operation)
		}
	case OpInsert:
		if step.Values == nil && len(step.Records) == 0 {
			return fmt.Errorf("flow[%d]: values or records is required for insert", index)
		}
	case OpUpdateOne:
		if step.Column == "" || step.Primary == nil {
			return fmt.Errorf("flow[%d]: column and primary are required for update-one", index)
		}
	case OpLink:
		if step.Association == "" || step.Primary == nil {
			return fmt.Errorf("flow[%d]: association and primary are required for link", index)
		}
		if !hasMapping {
			return fmt.Errorf("flow[%d]: link requires a mapping", index)
		}
	case "":
		return fmt.Errorf("flow[%d]: operation is required", index)
	default:
		return fmt.Errorf("flow[%d]: unknown operation %q", index, step.Operation)
	}

	if len(step.Assoc) > 0 && !hasMapping {
		return fmt.Errorf("flow[%d]: assoc requires a mapping", index)
	}
	if (step.Operation == OpUpdate || step.Operation == OpUpdateOne) && step.Values == nil {
		return fmt.Errorf("flow[%d]: values is required for %s", index, step.Operation)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRequestContains:
		if a.URL == "" {
			return fmt.Errorf("assertions[%d]: url is required for request_contains", index)
		}
	case AssertRequestOrder:
		if len(a.URLs) == 0 {
			return fmt.Errorf("assertions[%d]: urls list is required for request_order", index)
		}
	case AssertRequestCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for request_count", index)
		}
	case AssertJournal:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for journal", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
