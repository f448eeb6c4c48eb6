package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/flexiq/internal/queryir"
)

// Mapping is the set of resources declared by one mapping directory or file.
type Mapping struct {
	Resources []queryir.ResourceSpec
	Files     []string
}

// Resource returns the resource registered under name.
func (m *Mapping) Resource(name string) (queryir.ResourceSpec, bool) {
	for _, r := range m.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return queryir.ResourceSpec{}, false
}

// Associations resolves association property names of resource.
// Unknown names are an error.
func (m *Mapping) Associations(resource string, names []string) ([]queryir.Association, error) {
	if len(names) == 0 {
		return nil, nil
	}
	spec, ok := m.Resource(resource)
	if !ok {
		return nil, fmt.Errorf("resource %q is not mapped", resource)
	}
	out := make([]queryir.Association, 0, len(names))
	for _, name := range names {
		a, ok := spec.Association(name)
		if !ok {
			return nil, fmt.Errorf("resource %q has no association %q", resource, name)
		}
		out = append(out, a)
	}
	return out, nil
}

// LoadValue builds the CUE value of path. A directory is loaded as one CUE
// package; a single file is compiled on its own.
func LoadValue(path string) (cue.Value, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, nil, fmt.Errorf("mapping path: %w", err)
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, nil, fmt.Errorf("read mapping: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return cue.Value{}, nil, formatCUEError(err)
		}
		return v, []string{path}, nil
	}

	files, err := FindCUEFiles(path)
	if err != nil {
		return cue.Value{}, nil, fmt.Errorf("scan mapping directory: %w", err)
	}
	if len(files) == 0 {
		return cue.Value{}, nil, fmt.Errorf("no CUE files found in %s", path)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return cue.Value{}, files, fmt.Errorf("no CUE instances loaded from %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, files, formatCUEError(inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, files, formatCUEError(err)
	}
	return v, files, nil
}

// LoadMapping loads and compiles the resources declared at path.
// The result is not validated; call Validate on Resources.
func LoadMapping(path string) (*Mapping, error) {
	v, files, err := LoadValue(path)
	if err != nil {
		return nil, err
	}
	specs, err := CompileMapping(v)
	if err != nil {
		return nil, err
	}
	return &Mapping{Resources: specs, Files: files}, nil
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
