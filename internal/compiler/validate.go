package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/flexiq/internal/queryir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrDuplicateResource = "E100" // resource declared twice

	// ResourceSpec errors (E101-E109)
	ErrResourceNameEmpty  = "E101" // resource name is required
	ErrInvalidFieldType   = "E102" // invalid type string
	ErrPrimaryNotSelected = "E103" // primary attribute missing from a non-empty selection

	// Association errors (E110-E119)
	ErrUnsupportedKind      = "E110" // kind is not 1:1, 1:n, n:1 or m:n
	ErrMissingKey           = "E111" // "by" does not name the keys the kind needs
	ErrUnexpectedJoinKey    = "E112" // m:n join key is neither vazby nor uzivatelske-vazby
	ErrUnknownTarget        = "E113" // target resource is not declared in the mapping
	ErrDuplicateAssociation = "E114" // property declared twice on one resource
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates a compiled mapping against schema rules.
// Returns all errors found (does not fail-fast).
func Validate(specs []queryir.ResourceSpec) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Name != "" && declared[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   "resource." + spec.Name,
				Message: fmt.Sprintf("resource %q declared more than once", spec.Name),
				Code:    ErrDuplicateResource,
			})
		}
		declared[spec.Name] = true
	}

	for i := range specs {
		errs = append(errs, validateResource(&specs[i], declared)...)
	}
	return errs
}

// ValidateResource validates a single resource without cross-resource checks.
func ValidateResource(spec *queryir.ResourceSpec) []ValidationError {
	return validateResource(spec, nil)
}

func validateResource(spec *queryir.ResourceSpec, declared map[string]bool) []ValidationError {
	var errs []ValidationError
	path := "resource." + spec.Name

	// E101: name is required
	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "resource",
			Message: "resource name is required and must be non-empty",
			Code:    ErrResourceNameEmpty,
		})
	}

	// E102: declared field types
	for _, name := range sortedFieldNames(spec.Fields) {
		if !isValidFieldType(spec.Fields[name]) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.fields.%s", path, name),
				Message: fmt.Sprintf("invalid type %q for field %q", spec.Fields[name], name),
				Code:    ErrInvalidFieldType,
			})
		}
	}

	// E103: inserts report the primary attribute, so it must be readable
	if spec.Primary != "" && len(spec.Selection) > 0 {
		if _, ok := spec.Selection.Find(spec.Primary); !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".primary",
				Message: fmt.Sprintf("primary %q is not part of the selection", spec.Primary),
				Code:    ErrPrimaryNotSelected,
			})
		}
	}

	seen := make(map[string]bool, len(spec.Associations))
	for _, a := range spec.Associations {
		field := fmt.Sprintf("%s.association.%s", path, a.PropertyName)
		if seen[a.PropertyName] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("association %q declared more than once", a.PropertyName),
				Code:    ErrDuplicateAssociation,
			})
		}
		seen[a.PropertyName] = true
		errs = append(errs, validateAssociation(a, field, declared)...)
	}

	return errs
}

// validateAssociation checks that an association carries the keys its kind reads.
func validateAssociation(a queryir.Association, field string, declared map[string]bool) []ValidationError {
	var errs []ValidationError

	switch a.Kind {
	case queryir.OneToOne, queryir.ManyToOne:
		if a.ReferencingKey == "" {
			errs = append(errs, missingKey(field, a.Kind, "referencing key"))
		}
	case queryir.OneToMany:
		if a.ReferencedKey == "" {
			errs = append(errs, missingKey(field, a.Kind, "referenced key"))
		}
	case queryir.ManyToMany:
		switch a.JoinKey {
		case "":
			errs = append(errs, missingKey(field, a.Kind, "join key"))
		case queryir.JoinBuiltinLinks, queryir.JoinCustomLinks:
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".by",
				Message: fmt.Sprintf("join key %q must be %q or %q", a.JoinKey, queryir.JoinBuiltinLinks, queryir.JoinCustomLinks),
				Code:    ErrUnexpectedJoinKey,
			})
		}
		if a.JoinResource == "" {
			errs = append(errs, missingKey(field, a.Kind, "link type"))
		}
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("unsupported kind %q, must be \"1:1\", \"1:n\", \"n:1\" or \"m:n\"", a.Kind),
			Code:    ErrUnsupportedKind,
		})
	}

	// E113: only checked when the whole mapping is known
	if declared != nil && a.TargetResource != "" && !declared[a.TargetResource] {
		errs = append(errs, ValidationError{
			Field:   field + ".target",
			Message: fmt.Sprintf("target resource %q is not declared", a.TargetResource),
			Code:    ErrUnknownTarget,
		})
	}

	return errs
}

func missingKey(field string, kind queryir.Kind, key string) ValidationError {
	return ValidationError{
		Field:   field + ".by",
		Message: fmt.Sprintf("%s association requires a %s", kind, key),
		Code:    ErrMissingKey,
	}
}

// isValidFieldType checks if a declared attribute type is known.
func isValidFieldType(t queryir.FieldType) bool {
	switch t {
	case queryir.FieldString, queryir.FieldInt, queryir.FieldFloat,
		queryir.FieldBool, queryir.FieldDate, queryir.FieldDateTime:
		return true
	}
	return false
}

func sortedFieldNames(fields map[string]queryir.FieldType) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
