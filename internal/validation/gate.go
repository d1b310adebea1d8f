// Package validation matches runtime observations of binding types against
// the environment and turns them into validated constraints.
package validation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/tyinfer/internal/typesystem"
)

// ObservedBinding is one type seen for a name while running the original
// program. Function is the qualified function name, empty for module level.
// Line, when set, selects the version of the name live at that line.
type ObservedBinding struct {
	Function string `yaml:"function,omitempty"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Line     int    `yaml:"line,omitempty"`
}

func (o ObservedBinding) String() string {
	name := o.Name
	if o.Function != "" {
		name = o.Function + "." + o.Name
	}
	if o.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d)", name, o.Type, o.Line)
	}
	return fmt.Sprintf("%s: %s", name, o.Type)
}

// Gate supplies observations. It is optional; inference runs without one.
type Gate interface {
	Observations(ctx context.Context) ([]ObservedBinding, error)
}

// StaticGate is a fixed observation set.
type StaticGate []ObservedBinding

func (g StaticGate) Observations(ctx context.Context) ([]ObservedBinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ObservedBinding, len(g))
	copy(out, g)
	return out, nil
}

// FileGate reads a golden-trace file each time observations are requested.
type FileGate struct {
	Path string
}

func (g FileGate) Observations(ctx context.Context) ([]ObservedBinding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	trace, err := LoadTrace(g.Path)
	if err != nil {
		return nil, err
	}
	return trace.Observations(ctx)
}

type traceFile struct {
	Version      int               `yaml:"version"`
	Observations []ObservedBinding `yaml:"observations"`
}

// LoadTrace reads a YAML golden-trace file:
//
//	version: 1
//	observations:
//	  - function: parse
//	    name: count
//	    type: int
//	    line: 12
func LoadTrace(path string) (StaticGate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return ParseTrace(data, path)
}

// ParseTrace parses trace data; name is used in error messages.
func ParseTrace(data []byte, name string) (StaticGate, error) {
	var tf traceFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing trace %s: %w", name, err)
	}
	var errs []error
	for i, o := range tf.Observations {
		switch {
		case o.Name == "":
			errs = append(errs, fmt.Errorf("%s: observation %d: missing name", name, i))
		case o.Type == "":
			errs = append(errs, fmt.Errorf("%s: observation %d (%s): missing type", name, i, o.Name))
		default:
			if _, err := typesystem.Parse(o.Type); err != nil {
				errs = append(errs, fmt.Errorf("%s: observation %d (%s): %w", name, i, o.Name, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return StaticGate(tf.Observations), nil
}
