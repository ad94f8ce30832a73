package api

import (
	"context"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/operators"
)

// Combine merges the events of all arguments. A single argument is returned
// unchanged.
func (r *Runtime) Combine(ctx context.Context, args ...Operand) (Operand, error) {
	if len(args) == 1 {
		if _, err := isSymbolic(args); err != nil {
			return nil, err
		}
		return args[0], nil
	}
	return r.invokeSingle(ctx, args, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewCombine(in...)
	})
}

// Glue concatenates the features of aligned arguments.
func (r *Runtime) Glue(ctx context.Context, args ...Operand) (Operand, error) {
	return r.invokeSingle(ctx, args, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewGlue(in...)
	})
}

// Where selects per event between onTrue and onFalse. Each branch is an
// Operand aligned with input or a scalar.
func (r *Runtime) Where(ctx context.Context, input Operand, onTrue, onFalse any) (Operand, error) {
	args := []Operand{input}
	branches := []any{onTrue, onFalse}
	pos := []int{-1, -1}
	for i, b := range branches {
		if o, ok := b.(Operand); ok {
			pos[i] = len(args)
			args = append(args, o)
		}
	}
	return r.invokeSingle(ctx, args, func(in []*node.Node) (operator.Operator, error) {
		resolved := make([]any, 2)
		for i, b := range branches {
			if pos[i] >= 0 {
				resolved[i] = in[pos[i]]
			} else {
				resolved[i] = b
			}
		}
		return operators.NewWhere(in[0], resolved[0], resolved[1])
	})
}

// Cast converts every feature of input to target.
func (r *Runtime) Cast(ctx context.Context, input Operand, target dtype.DType, checkOverflow bool) (Operand, error) {
	if _, err := isSymbolic([]Operand{input}); err != nil {
		return nil, errdefs.WithOperator(err, operators.CastDefinition.Key)
	}
	targets := make(map[string]dtype.DType)
	for _, name := range input.Schema().FeatureNames() {
		targets[name] = target
	}
	return r.CastFeatures(ctx, input, targets, checkOverflow)
}

// CastFeatures converts the named features of input.
func (r *Runtime) CastFeatures(ctx context.Context, input Operand, targets map[string]dtype.DType, checkOverflow bool) (Operand, error) {
	return r.invokeSingle(ctx, []Operand{input}, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewCast(in[0], targets, checkOverflow)
	})
}

// Select keeps the named features in the given order.
func (r *Runtime) Select(ctx context.Context, input Operand, names ...string) (Operand, error) {
	return r.invokeSingle(ctx, []Operand{input}, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewSelect(in[0], names)
	})
}

// Rename renames features according to mapping.
func (r *Runtime) Rename(ctx context.Context, input Operand, mapping map[string]string) (Operand, error) {
	return r.invokeSingle(ctx, []Operand{input}, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewRename(in[0], mapping)
	})
}

// Prefix prepends prefix to every feature name.
func (r *Runtime) Prefix(ctx context.Context, input Operand, prefix string) (Operand, error) {
	return r.invokeSingle(ctx, []Operand{input}, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewPrefix(in[0], prefix)
	})
}

// Begin keeps the first timestamp of every index key.
func (r *Runtime) Begin(ctx context.Context, input Operand) (Operand, error) {
	return r.unary(ctx, input, func(n *node.Node) (operator.Operator, error) { return operators.NewBegin(n) })
}

// End keeps the last timestamp of every index key.
func (r *Runtime) End(ctx context.Context, input Operand) (Operand, error) {
	return r.unary(ctx, input, func(n *node.Node) (operator.Operator, error) { return operators.NewEnd(n) })
}

// UniqueTimestamps keeps one event per distinct timestamp.
func (r *Runtime) UniqueTimestamps(ctx context.Context, input Operand) (Operand, error) {
	return r.unary(ctx, input, func(n *node.Node) (operator.Operator, error) { return operators.NewUniqueTimestamps(n) })
}

// Timestamps exposes each event's timestamp as a feature.
func (r *Runtime) Timestamps(ctx context.Context, input Operand) (Operand, error) {
	return r.unary(ctx, input, func(n *node.Node) (operator.Operator, error) { return operators.NewTimestamps(n) })
}

// Filter keeps the events of input where condition is true.
func (r *Runtime) Filter(ctx context.Context, input, condition Operand) (Operand, error) {
	return r.invokeSingle(ctx, []Operand{input, condition}, func(in []*node.Node) (operator.Operator, error) {
		return operators.NewFilter(in[0], in[1])
	})
}

// Calendar extracts a calendar unit from unix timestamps in time zone tz.
// An empty tz means UTC.
func (r *Runtime) Calendar(ctx context.Context, unit operators.CalendarUnit, input Operand, tz string) (Operand, error) {
	return r.unary(ctx, input, func(n *node.Node) (operator.Operator, error) { return operators.NewCalendar(unit, n, tz) })
}

func (r *Runtime) unary(ctx context.Context, input Operand, ctor func(*node.Node) (operator.Operator, error)) (Operand, error) {
	return r.invokeSingle(ctx, []Operand{input}, func(in []*node.Node) (operator.Operator, error) {
		return ctor(in[0])
	})
}
