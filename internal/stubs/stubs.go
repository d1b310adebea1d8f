// Package stubs loads external type signatures for library functions and
// built-in type methods, in the spirit of typeshed stub files.
package stubs

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/tyinfer/internal/symbols"
	"github.com/funvibe/tyinfer/internal/typesystem"
)

//go:embed prelude.yaml
var preludeSource []byte

// File is one stub document.
type File struct {
	Version   int            `yaml:"version"`
	Functions []FunctionStub `yaml:"functions"`
	Types     []TypeStub     `yaml:"types"`

	name string
}

// FunctionStub declares a top-level function. TypeParams are rigid names
// in Signature that are instantiated afresh at every call site.
type FunctionStub struct {
	Name       string   `yaml:"name"`
	Signature  string   `yaml:"signature"`
	TypeParams []string `yaml:"type_params,omitempty"`
	Requires   string   `yaml:"requires,omitempty"`
}

// TypeStub declares the methods of a built-in type constructor.
type TypeStub struct {
	Name     string                `yaml:"name"`
	Params   []string              `yaml:"params,omitempty"`
	Requires string                `yaml:"requires,omitempty"`
	Methods  map[string]MethodStub `yaml:"methods"`
}

// MethodStub is written either as a bare signature string or as a mapping
// with signature, requires and type_params keys.
type MethodStub struct {
	Signature  string   `yaml:"signature"`
	TypeParams []string `yaml:"type_params,omitempty"`
	Requires   string   `yaml:"requires,omitempty"`
}

func (m *MethodStub) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Signature = node.Value
		return nil
	}
	type plain MethodStub
	return node.Decode((*plain)(m))
}

// Prelude returns the built-in stub file.
func Prelude() *File {
	f, err := Parse(preludeSource, "prelude.yaml")
	if err != nil {
		panic(fmt.Sprintf("invalid embedded prelude: %v", err))
	}
	return f
}

// Load reads and parses a stub file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stubs %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes stub YAML and checks every signature.
func Parse(data []byte, name string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	f.name = name
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	var errs []error
	for i, fn := range f.Functions {
		if fn.Name == "" {
			errs = append(errs, fmt.Errorf("%s: functions[%d]: name is required", f.name, i))
			continue
		}
		if _, err := parseFunc(fn.Signature); err != nil {
			errs = append(errs, fmt.Errorf("%s: function %s: %w", f.name, fn.Name, err))
		}
		if err := checkRequires(fn.Requires); err != nil {
			errs = append(errs, fmt.Errorf("%s: function %s: %w", f.name, fn.Name, err))
		}
	}
	for i, ts := range f.Types {
		if ts.Name == "" {
			errs = append(errs, fmt.Errorf("%s: types[%d]: name is required", f.name, i))
			continue
		}
		if err := checkRequires(ts.Requires); err != nil {
			errs = append(errs, fmt.Errorf("%s: type %s: %w", f.name, ts.Name, err))
		}
		for _, mname := range sortedKeys(ts.Methods) {
			m := ts.Methods[mname]
			if _, err := parseFunc(m.Signature); err != nil {
				errs = append(errs, fmt.Errorf("%s: method %s.%s: %w", f.name, ts.Name, mname, err))
			}
			if err := checkRequires(m.Requires); err != nil {
				errs = append(errs, fmt.Errorf("%s: method %s.%s: %w", f.name, ts.Name, mname, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Register adds every entry admitted by target to the environment.
// It returns the names of skipped entries.
func (f *File) Register(env *symbols.Environment, target *semver.Version) []string {
	var skipped []string
	for _, fn := range f.Functions {
		if !admits(fn.Requires, target) {
			skipped = append(skipped, fn.Name)
			continue
		}
		sig, _ := parseFunc(fn.Signature)
		env.DefineBuiltin(fn.Name, symbols.Scheme{Params: fn.TypeParams, Type: sig})
	}
	for _, ts := range f.Types {
		name := typesystem.CanonicalName(ts.Name)
		if !admits(ts.Requires, target) {
			skipped = append(skipped, name)
			continue
		}
		methods := make(map[string]typesystem.Type)
		methodParams := make(map[string][]string)
		for _, mname := range sortedKeys(ts.Methods) {
			m := ts.Methods[mname]
			if !admits(m.Requires, target) {
				skipped = append(skipped, name+"."+mname)
				continue
			}
			sig, _ := parseFunc(m.Signature)
			methods[mname] = sig
			if len(m.TypeParams) > 0 {
				methodParams[mname] = m.TypeParams
			}
		}
		env.DefineTypeMethods(name, ts.Params, methods, methodParams)
	}
	return skipped
}

func parseFunc(sig string) (typesystem.TFunc, error) {
	t, err := typesystem.Parse(sig)
	if err != nil {
		return typesystem.TFunc{}, err
	}
	fn, ok := t.(typesystem.TFunc)
	if !ok {
		return typesystem.TFunc{}, fmt.Errorf("signature %q is not a function type", sig)
	}
	return fn, nil
}

func checkRequires(req string) error {
	if req == "" {
		return nil
	}
	if _, err := semver.NewConstraint(req); err != nil {
		return fmt.Errorf("requires %q: %w", req, err)
	}
	return nil
}

func admits(req string, target *semver.Version) bool {
	if req == "" || target == nil {
		return true
	}
	c, err := semver.NewConstraint(req)
	if err != nil {
		return false
	}
	return c.Check(target)
}

func sortedKeys(m map[string]MethodStub) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
