package app

import (
	"fmt"
	"plugin"

	"github.com/pwnslinger/revng/internal/registry"
	"github.com/pwnslinger/revng/modules/llvm"
	"github.com/pwnslinger/revng/modules/model"
	"github.com/pwnslinger/revng/modules/raw"
	"github.com/pwnslinger/revng/modules/text"
)

// coreModules are the built-in modules registered when the caller
// provides none.
var coreModules = []registry.Module{
	text.Module{},
	raw.Module{},
	llvm.Module{},
	model.Module{},
}

// loadPlugins opens each dynamic library and invokes its exported
// Module's Register, the same path built-in modules take.
func loadPlugins(paths []string, reg *registry.Registry) error {
	for _, path := range paths {
		plug, err := plugin.Open(path)
		if err != nil {
			return fmt.Errorf("loading library %q: %w", path, err)
		}
		sym, err := plug.Lookup("Module")
		if err != nil {
			return fmt.Errorf("library %q does not export Module: %w", path, err)
		}
		mod, ok := sym.(registry.Module)
		if !ok {
			if ptr, ok := sym.(*registry.Module); ok {
				mod = *ptr
			} else {
				return fmt.Errorf("library %q: Module has type %T, not registry.Module", path, sym)
			}
		}
		mod.Register(reg)
	}
	return nil
}
