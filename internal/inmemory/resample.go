package inmemory

import (
	"context"
	"math"
	"time"

	"github.com/specialistvlad/tempogrid/internal/eventset"
	"github.com/specialistvlad/tempogrid/internal/operators"
)

// newResample serves BEGIN, END and UNIQUE_TIMESTAMPS.
func newResample(op *operators.Resample) executeFunc {
	pick := func(ts []float64) []float64 {
		if len(ts) == 0 {
			return nil
		}
		switch op.Key() {
		case operators.BeginDefinition.Key:
			return ts[:1:1]
		case operators.EndDefinition.Key:
			return ts[len(ts)-1:]
		}
		out := []float64{ts[0]}
		for _, t := range ts[1:] {
			if t != out[len(out)-1] {
				out = append(out, t)
			}
		}
		return out
	}

	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		in, err := input(op, inputs, "input")
		if err != nil {
			return nil, err
		}
		out := newOutput(op)
		err = in.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			block, err := eventset.NewIndexData(pick(d.Timestamps()), nil, out.Schema())
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

func newTimestamps(op *operators.Timestamps) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		in, err := input(op, inputs, "input")
		if err != nil {
			return nil, err
		}
		out := newOutput(op)
		err = in.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			feature := eventset.NewFeature(d.Timestamps())
			block, err := eventset.NewIndexData(d.Timestamps(), []*eventset.Feature{feature}, out.Schema())
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

// newFilter keeps the events where the condition holds.
func newFilter(op *operators.Filter) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		in, err := input(op, inputs, "input")
		if err != nil {
			return nil, err
		}
		cond, err := input(op, inputs, "condition")
		if err != nil {
			return nil, err
		}
		out := newOutput(op)
		err = in.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			c, ok := cond.Get(key)
			if !ok || c.Len() != d.Len() {
				return missingKey(op, "condition", key)
			}
			var rows []int
			for i, keep := range c.Feature(0).Bools() {
				if keep {
					rows = append(rows, i)
				}
			}
			ts := make([]float64, len(rows))
			for i, r := range rows {
				ts[i] = d.Timestamps()[r]
			}
			features := d.Features()
			for i, f := range features {
				features[i] = f.Take(rows)
			}
			block, err := eventset.NewIndexData(ts, features, out.Schema())
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

func newCalendar(op *operators.Calendar) executeFunc {
	return func(ctx context.Context, inputs map[string]*eventset.EventSet) (map[string]*eventset.EventSet, error) {
		in, err := input(op, inputs, "sampling")
		if err != nil {
			return nil, err
		}
		out := newOutput(op)
		err = in.Each(func(key eventset.IndexKey, d *eventset.IndexData) error {
			values := make([]int32, d.Len())
			for i, ts := range d.Timestamps() {
				values[i] = op.Unit().Extract(unixTime(ts).In(op.Location()))
			}
			block, err := eventset.NewIndexData(d.Timestamps(), []*eventset.Feature{eventset.NewFeature(values)}, out.Schema())
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

func unixTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	if frac < 0 {
		sec--
		frac++
	}
	return time.Unix(int64(sec), int64(frac*1e9))
}
