package flow

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Registry maps flow names to compiled specs. It is built once and only
// read afterwards, so it is safe for concurrent use
type Registry struct {
	flows map[string]*Spec
}

// NewRegistry compiles every spec and indexes it by name
func NewRegistry(specs ...*Spec) (*Registry, error) {
	r := &Registry{flows: make(map[string]*Spec, len(specs))}
	for _, s := range specs {
		if _, ok := r.flows[s.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFlow, s.Name)
		}
		if !s.Compiled() {
			if err := s.Compile(); err != nil {
				return nil, err
			}
		}
		r.flows[s.Name] = s
	}
	return r, nil
}

// With returns a new registry holding r's flows plus specs. A spec with the
// name of an existing flow replaces it
func (r *Registry) With(specs ...*Spec) (*Registry, error) {
	res := &Registry{flows: make(map[string]*Spec, len(r.flows)+len(specs))}
	for name, s := range r.flows {
		res.flows[name] = s
	}
	seen := map[string]bool{}
	for _, s := range specs {
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFlow, s.Name)
		}
		seen[s.Name] = true
		if !s.Compiled() {
			if err := s.Compile(); err != nil {
				return nil, err
			}
		}
		res.flows[s.Name] = s
	}
	return res, nil
}

// Get returns the named flow
func (r *Registry) Get(name string) (*Spec, error) {
	s, ok := r.flows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, name)
	}
	return s, nil
}

// Names returns the registered flow names in sorted order
func (r *Registry) Names() []string {
	res := make([]string, 0, len(r.flows))
	for name := range r.flows {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// Specs returns the registered flows sorted by name
func (r *Registry) Specs() []*Spec {
	names := r.Names()
	res := make([]*Spec, len(names))
	for i, name := range names {
		res[i] = r.flows[name]
	}
	return res
}

// LoadFS reads every .yml, .yaml and .json flow definition below dir
func LoadFS(fsys fs.FS, dir string) ([]*Spec, error) {
	var specs []*Spec
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isDefinition(p) {
			return nil
		}
		s, err := loadSpec(fsys, p)
		if err != nil {
			return fmt.Errorf("error loading flow from %s: %w", p, err)
		}
		specs = append(specs, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return specs, nil
}

// LoadDir reads flow definitions from a directory on disk
func LoadDir(dir string) ([]*Spec, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// Parse decodes a single YAML or JSON flow definition
func Parse(data []byte, format string) (*Spec, error) {
	var s Spec
	var err error
	switch format {
	case "json":
		err = json.Unmarshal(data, &s)
	default:
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return &s, nil
}

func loadSpec(fsys fs.FS, p string) (*Spec, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, err
	}
	format := "yaml"
	if path.Ext(p) == ".json" {
		format = "json"
	}
	return Parse(data, format)
}

func isDefinition(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yml", ".yaml", ".json":
		return true
	default:
		return false
	}
}
