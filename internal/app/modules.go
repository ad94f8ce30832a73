package app

import (
	"github.com/specialistvlad/tempogrid/internal/inmemory"
	"github.com/specialistvlad/tempogrid/internal/operators"
	"github.com/specialistvlad/tempogrid/internal/registry"
)

// coreModules is the list of modules compiled into the tempogrid binary:
// the operator catalogue and the backends that execute it.
var coreModules = []registry.Module{
	&operators.Module{},
	&inmemory.Module{},
}
