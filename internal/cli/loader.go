package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/flexiq/internal/compiler"
	"github.com/roach88/flexiq/internal/queryir"
)

// LoadMode controls how errors are handled during mapping loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the resources loaded from a mapping file or directory.
type LoadResult struct {
	Resources []queryir.ResourceSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	Files     []string  // CUE files that were loaded
}

// Mapping returns the loaded resources as a compiler.Mapping.
func (r *LoadResult) Mapping() *compiler.Mapping {
	return &compiler.Mapping{Resources: r.Resources, Files: r.Files}
}

// LoadError represents an error that occurred during mapping loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadMappings loads and compiles the CUE resource mapping at path, a
// single .cue file or a directory loaded as one package.
//
// A nil result means nothing could be compiled; the first error says why.
// With LoadModeCollectAll every resource that compiles is returned along
// with the errors of those that don't.
func LoadMappings(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("mapping not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing mapping: %v", err)}}
	}

	if info.IsDir() {
		files, err := compiler.FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	}

	value, files, err := compiler.LoadValue(path)
	if err != nil {
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: compileErr.Message, Pos: compileErr.Pos}}
		}
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", err)}}
	}

	result := &LoadResult{
		CUEValue: value,
		Files:    files,
	}

	resourcesVal := value.LookupPath(cue.ParsePath("resource"))
	if !resourcesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no resources found in mapping"}}
	}

	iter, err := resourcesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating resources: %v", err)}}
	}

	var errs []error
	for iter.Next() {
		spec, compileErr := compiler.CompileResource(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "resource."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Resources = append(result.Resources, *spec)
	}

	if len(result.Resources) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no resources found in mapping"})
	}
	return result, errs
}

// LoadMapping loads the mapping at path and checks it with
// compiler.Validate. Any load or validation problem is an error.
func LoadMapping(path string) (*compiler.Mapping, error) {
	result, errs := LoadMappings(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	if verrs := compiler.Validate(result.Resources); len(verrs) > 0 {
		return nil, &LoadError{Code: verrs[0].Code, Message: fmt.Sprintf("%s: %s", verrs[0].Field, verrs[0].Message)}
	}
	return result.Mapping(), nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
// Mapping validation codes (E1xx) are defined by the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error

	// Command errors
	ErrCodeConfig      = "E008" // Configuration missing or invalid
	ErrCodeInvalidFlag = "E009" // Flag value cannot be parsed
	ErrCodeRemote      = "E010" // The server rejected a request
	ErrCodeRequest     = "E011" // A request could not be sent or interpreted
	ErrCodeJournal     = "E012" // Journal cannot be opened or read
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "type":
		return compiler.ErrInvalidFieldType
	case "kind":
		return compiler.ErrUnsupportedKind
	case "cue":
		return ErrCodeBuildFailed
	default:
		return ErrCodeGeneric
	}
}
