package operators

import (
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/registry"
)

// Module registers the definition of every operator in the catalogue.
type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	register(r, CastDefinition, buildCast)
	register(r, CombineDefinition, buildCombine)
	register(r, FilterDefinition, buildFilter)
	register(r, GlueDefinition, buildGlue)
	register(r, PrefixDefinition, buildPrefix)
	register(r, RenameDefinition, buildRename)
	register(r, SelectDefinition, buildSelect)
	register(r, WhereDefinition, buildWhere)
	register(r, BeginDefinition, unaryBuild(BeginDefinition, func(n *node.Node) (operator.Operator, error) { return NewBegin(n) }))
	register(r, EndDefinition, unaryBuild(EndDefinition, func(n *node.Node) (operator.Operator, error) { return NewEnd(n) }))
	register(r, TimestampsDefinition, unaryBuild(TimestampsDefinition, func(n *node.Node) (operator.Operator, error) { return NewTimestamps(n) }))
	register(r, UniqueTimestampsDefinition, unaryBuild(UniqueTimestampsDefinition, func(n *node.Node) (operator.Operator, error) { return NewUniqueTimestamps(n) }))
	for _, u := range CalendarUnits {
		register(r, CalendarDefinition(u), calendarBuild(u))
	}
}

// register wraps build so that undeclared slots are rejected before the
// constructor runs.
func register(r *registry.Registry, def *operator.Definition, build registry.BuildFunc) {
	r.Operators.Register(def, func(inputs map[string]*node.Node, attrs map[string]any) (operator.Operator, error) {
		if err := checkSlots(def, inputs, attrs); err != nil {
			return nil, err
		}
		return build(inputs, attrs)
	})
}
