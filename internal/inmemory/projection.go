package inmemory

import (
	"context"

	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operators"
)

// newProjection serves SELECT, RENAME and PREFIX. Arrays and timestamps
// are shared with the input.
func newProjection(op *operators.Projection) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		in, err := input(op, inputs, "input")
		if err != nil {
			return nil, err
		}
		source := op.Source()
		out := newOutput(op)
		err = in.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			features := make([]*eventset.Feature, len(source))
			for i, pos := range source {
				features[i] = d.Feature(pos)
			}
			block, err := eventset.NewIndexData(d.Timestamps(), features, out.Schema())
			if err != nil {
				return err
			}
			return out.Set(key, block)
		})
		if err != nil {
			return nil, wrap(op, err)
		}
		return result(out), nil
	}
}

// newGlue concatenates the features of aligned inputs key by key.
func newGlue(op *operators.Glue) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		sets := make([]*eventset.EventSet, len(op.Args()))
		for i := range sets {
			e, err := input(op, inputs, operators.InputSlot(i))
			if err != nil {
				return nil, err
			}
			sets[i] = e
		}
		out := newOutput(op)
		err := sets[0].Each(func(key eventset.IndexKey, first *eventset.IndexData) error {
			var features []*eventset.Feature
			for i, e := range sets {
				d, ok := e.Get(key)
				if !ok {
					return missingKey(op, operators.InputSlot(i), key)
				}
				if d.Len() != first.Len() {
					return missingKey(op, operators.InputSlot(i), key)
				}
				features = append(features, d.Features()...)
			}
			block, err := eventset.NewIndexData(first.Timestamps(), features, out.Schema())
			if err != nil {
				return err
			}
			return out.Set(key, block)
		})
		if err != nil {
			return nil, wrap(op, err)
		}
		return result(out), nil
	}
}
