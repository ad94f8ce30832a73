package inmemory

import (
	"context"

	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operators"
)

func newWhere(op *operators.Where) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		cond, err := input(op, inputs, "input")
		if err != nil {
			return nil, err
		}
		out := newOutput(op)

		branch := func(slot string, b operators.Branch, key eventset.IndexKey, n int) (*eventset.Feature, error) {
			if b.Node == nil {
				return eventset.Fill(op.DType(), b.Value, n)
			}
			e, err := input(op, inputs, slot)
			if err != nil {
				return nil, err
			}
			d, ok := e.Get(key)
			if !ok {
				return nil, missingKey(op, slot, key)
			}
			return d.Feature(0), nil
		}

		err = cond.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			mask := d.Feature(0).Bools()
			onTrue, err := branch("on_true", op.OnTrue(), key, len(mask))
			if err != nil {
				return err
			}
			onFalse, err := branch("on_false", op.OnFalse(), key, len(mask))
			if err != nil {
				return err
			}
			picked, err := eventset.Select(mask, onTrue, onFalse)
			if err != nil {
				return err
			}
			block, err := eventset.NewIndexData(d.Timestamps(), []*eventset.Feature{picked}, out.Schema())
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
