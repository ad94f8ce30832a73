package inmemory

import (
	"context"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/operators"
	"github.com/specialistvlad/tempogrid/internal/registry"
)

// Backend is the name this backend registers its implementations under.
const Backend = "inmemory"

// Module registers the in-memory implementation of every operator.
type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	im := r.Implementations
	im.Register(operators.CastDefinition.Key, Backend, factory(newCast))
	im.Register(operators.CombineDefinition.Key, Backend, factory(newCombine))
	im.Register(operators.FilterDefinition.Key, Backend, factory(newFilter))
	im.Register(operators.GlueDefinition.Key, Backend, factory(newGlue))
	im.Register(operators.PrefixDefinition.Key, Backend, factory(newProjection))
	im.Register(operators.RenameDefinition.Key, Backend, factory(newProjection))
	im.Register(operators.SelectDefinition.Key, Backend, factory(newProjection))
	im.Register(operators.WhereDefinition.Key, Backend, factory(newWhere))
	im.Register(operators.BeginDefinition.Key, Backend, factory(newResample))
	im.Register(operators.EndDefinition.Key, Backend, factory(newResample))
	im.Register(operators.UniqueTimestampsDefinition.Key, Backend, factory(newResample))
	im.Register(operators.TimestampsDefinition.Key, Backend, factory(newTimestamps))
	for _, u := range operators.CalendarUnits {
		im.Register(u.Key(), Backend, factory(newCalendar))
	}
}

type executeFunc = func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error)

// factory adapts a constructor typed on the concrete operator to a
// registry.ExecutorFactory.
func factory[T operator.Operator](ctor func(op T) executeFunc) registry.ExecutorFactory {
	return func(op operator.Operator) (registry.Executor, error) {
		typed, ok := op.(T)
		if !ok {
			return nil, errdefs.Newf(errdefs.ErrMalformedOperator, op.Key(), "",
				"in-memory executor expects %T, got %T", *new(T), op)
		}
		return registry.ExecutorFunc(ctor(typed)), nil
	}
}

func input(op operator.Operator, inputs map[string]*eventset.EventSet, slot string) (*eventset.EventSet, error) {
	e, ok := inputs[slot]
	if !ok || e == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, op.Key(), slot, "no data for input")
	}
	return e, nil
}

// newOutput returns an empty event set shaped like the operator's output node.
func newOutput(op operator.Operator) *eventset.EventSet {
	n := op.Output("output")
	return eventset.New(n.Schema(), n.SamplingID())
}

func result(out *eventset.EventSet) map[string]*eventset.EventSet {
	return map[string]*eventset.EventSet{"output": out}
}

func missingKey(op operator.Operator, slot string, key eventset.IndexKey) error {
	return errdefs.Newf(errdefs.ErrSamplingMismatch, op.Key(), slot,
		"index key %s is missing although the input should be aligned", key)
}

func wrap(op operator.Operator, err error) error {
	if err == nil {
		return nil
	}
	return errdefs.WithOperator(err, op.Key())
}
