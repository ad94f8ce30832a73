package inmemory

import (
	"context"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operators"
)

// newCast converts features to their target dtype. Features that keep
// their dtype share the input array, and when no feature changes the input
// event set itself is returned.
func newCast(op *operators.Cast) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		in, err := input(op, inputs, "input")
		if err != nil {
			return nil, err
		}
		if op.IsIdentity() {
			return result(in), nil
		}

		targets := op.TargetDTypes()
		names := in.Schema().FeatureNames()
		out := newOutput(op)

		err = in.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			features := d.Features()
			for i, src := range features {
				dst := targets[i]
				if src.DType() == dst {
					continue
				}
				if op.CheckOverflow() && dtype.CanOverflow(src.DType(), dst) {
					if err := src.CheckRange(dst); err != nil {
						return errdefs.WithSlot(err, names[i])
					}
				}
				converted, err := src.Cast(dst)
				if err != nil {
					return errdefs.WithSlot(err, names[i])
				}
				features[i] = converted
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
