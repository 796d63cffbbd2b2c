// Package hcl loads pipeline descriptions written in HCL and
// translates them into the format-agnostic config model. A
// description may be a single file or a directory whose .hcl files
// merge in sorted order.
package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/pwnslinger/revng/internal/config"
	"github.com/pwnslinger/revng/internal/ctxlog"
	"github.com/pwnslinger/revng/internal/fsutil"
	"github.com/pwnslinger/revng/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates an HCL description loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every given path (files, or directories of .hcl files)
// and merges them into one model. Duplicate container or step names
// across files are load errors.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("pipeline description %q: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("scanning %q: %w", path, err)
			}
			files = append(files, found...)
		} else {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no description files found in %v", paths)
	}
	logger.Debug("Loading pipeline description.", "files", files)

	parser := hclparse.NewParser()
	model := &config.Model{}
	seenContainers := make(map[string]string)
	seenSteps := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parsing %s: %w", file, diags)
		}

		var desc schema.Description
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &desc); diags.HasErrors() {
			return nil, fmt.Errorf("decoding %s: %w", file, diags)
		}

		for _, c := range desc.Containers {
			if prev, dup := seenContainers[c.Name]; dup {
				return nil, fmt.Errorf("container %q declared in both %s and %s", c.Name, prev, file)
			}
			seenContainers[c.Name] = file
			model.Containers = append(model.Containers, &config.Container{Name: c.Name, Type: c.Type})
		}

		for _, s := range desc.Steps {
			if prev, dup := seenSteps[s.Name]; dup {
				return nil, fmt.Errorf("step %q declared in both %s and %s", s.Name, prev, file)
			}
			seenSteps[s.Name] = file

			cfgStep := &config.Step{Name: s.Name}
			for _, p := range s.Pipes {
				cfgPipe, err := translatePipe(p)
				if err != nil {
					return nil, fmt.Errorf("%s, step %q: %w", file, s.Name, err)
				}
				cfgStep.Pipes = append(cfgStep.Pipes, cfgPipe)
			}
			model.Steps = append(model.Steps, cfgStep)
		}
	}

	logger.Debug("Pipeline description loaded.",
		"containers", len(model.Containers), "steps", len(model.Steps))
	return model, nil
}

// translatePipe evaluates a pipe block's expressions into the
// agnostic model.
func translatePipe(p *schema.Pipe) (*config.Pipe, error) {
	used, err := stringList(p.UsedContainers, "used_containers")
	if err != nil {
		return nil, fmt.Errorf("pipe %q: %w", p.Type, err)
	}
	if len(used) == 0 {
		return nil, fmt.Errorf("pipe %q: used_containers must not be empty", p.Type)
	}
	passes, err := stringList(p.Passes, "passes")
	if err != nil {
		return nil, fmt.Errorf("pipe %q: %w", p.Type, err)
	}
	enabledWhen, err := stringList(p.EnabledWhen, "enabled_when")
	if err != nil {
		return nil, fmt.Errorf("pipe %q: %w", p.Type, err)
	}
	return &config.Pipe{
		Type:           p.Type,
		UsedContainers: used,
		Passes:         passes,
		EnabledWhen:    enabledWhen,
	}, nil
}

// stringList evaluates an expression into a list of strings,
// converting through cty so tuples and lists are both accepted.
func stringList(expr hcl.Expression, attr string) ([]string, error) {
	if expr == nil {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluating %s: %w", attr, diags)
	}
	if val.IsNull() {
		return nil, nil
	}
	listVal, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("%s must be a list of strings: %w", attr, err)
	}
	var out []string
	for _, el := range listVal.AsValueSlice() {
		if el.IsNull() {
			return nil, fmt.Errorf("%s contains a null element", attr)
		}
		out = append(out, el.AsString())
	}
	return out, nil
}
