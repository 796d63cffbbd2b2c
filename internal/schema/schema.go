// Package schema defines the HCL shape of a pipeline description.
// The loader decodes files into these structs and translates them
// into the format-agnostic config model.
package schema

import "github.com/hashicorp/hcl/v2"

// Container is a `container "<name>" { type = "<registered type>" }`
// block.
type Container struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

// Pipe is a `pipe "<type>" { ... }` block inside a step. List-valued
// attributes stay as expressions so the loader can evaluate and
// type-convert them with useful errors.
type Pipe struct {
	Type           string         `hcl:"type,label"`
	UsedContainers hcl.Expression `hcl:"used_containers"`
	Passes         hcl.Expression `hcl:"passes,optional"`
	EnabledWhen    hcl.Expression `hcl:"enabled_when,optional"`
}

// Step is a `step "<name>" { pipe ... }` block.
type Step struct {
	Name  string  `hcl:"name,label"`
	Pipes []*Pipe `hcl:"pipe,block"`
}

// Description is the top-level structure of one description file.
type Description struct {
	Containers []*Container `hcl:"container,block"`
	Steps      []*Step      `hcl:"step,block"`
	Body       hcl.Body     `hcl:",remain"`
}
