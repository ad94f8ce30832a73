package inmemory

import (
	"context"

	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operators"
)

// newCombine merges the events of every argument per index key. Index keys
// are visited in order of first appearance across arguments. Within a key
// events are ordered by timestamp, ties resolved in argument order.
func newCombine(op *operators.Combine) executeFunc {
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
		s := out.Schema()

		// positions[j][i] is where output feature i lives in argument j.
		positions := make([][]int, len(sets))
		for j, e := range sets {
			positions[j] = make([]int, s.NumFeatures())
			for i, name := range s.FeatureNames() {
				positions[j][i] = e.Schema().FeatureIndex(name)
			}
		}

		seen := make(map[string]bool)
		var keys []eventset.IndexKey
		for _, e := range sets {
			for _, k := range e.Keys() {
				if !seen[k.String()] {
					seen[k.String()] = true
					keys = append(keys, k)
				}
			}
		}

		for _, key := range keys {
			blocks := make([]*eventset.IndexData, len(sets))
			for j, e := range sets {
				if d, ok := e.Get(key); ok {
					blocks[j] = d
				}
			}
			d, err := mergeBlocks(out, blocks, positions)
			if err != nil {
				return nil, wrap(op, err)
			}
			if err := out.Set(key, d); err != nil {
				return nil, wrap(op, err)
			}
		}
		return result(out), nil
	}
}

func mergeBlocks(out *eventset.EventSet, blocks []*eventset.IndexData, positions [][]int) (*eventset.IndexData, error) {
	offsets := make([]int, len(blocks))
	heads := make([]int, len(blocks))
	total := 0
	for j, b := range blocks {
		offsets[j] = total
		if b != nil {
			total += b.Len()
		}
	}

	timestamps := make([]float64, 0, total)
	order := make([]int, 0, total)
	for len(order) < total {
		best := -1
		for j, b := range blocks {
			if b == nil || heads[j] >= b.Len() {
				continue
			}
			if best < 0 || b.Timestamps()[heads[j]] < blocks[best].Timestamps()[heads[best]] {
				best = j
			}
		}
		timestamps = append(timestamps, blocks[best].Timestamps()[heads[best]])
		order = append(order, offsets[best]+heads[best])
		heads[best]++
	}

	s := out.Schema()
	features := make([]*eventset.Feature, s.NumFeatures())
	for i := range features {
		parts := make([]*eventset.Feature, 0, len(blocks))
		for j, b := range blocks {
			if b != nil {
				parts = append(parts, b.Feature(positions[j][i]))
			}
		}
		all, err := eventset.ConcatFeatures(parts...)
		if err != nil {
			return nil, err
		}
		features[i] = all.Take(order)
	}
	return eventset.NewIndexData(timestamps, features, s)
}
