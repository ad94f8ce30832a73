package operators

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
)

// InputSlot returns the name of the i-th variadic input slot.
func InputSlot(i int) string {
	return fmt.Sprintf("input_%d", i)
}

// variadicInputDefs declares input_0..input_{n-1}, the first two required.
func variadicInputDefs(n int) []operator.InputDef {
	defs := make([]operator.InputDef, n)
	for i := range defs {
		defs[i] = operator.InputDef{Key: InputSlot(i), Optional: i >= 2}
	}
	return defs
}

// variadicInputs collects input_0, input_1, ... in order. The slots must
// be contiguous.
func variadicInputs(key string, inputs map[string]*node.Node) ([]*node.Node, error) {
	out := make([]*node.Node, 0, len(inputs))
	for i := 0; i < len(inputs); i++ {
		n, ok := inputs[InputSlot(i)]
		if !ok {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, InputSlot(i),
				"variadic inputs must be numbered contiguously from input_0")
		}
		out = append(out, n)
	}
	return out, nil
}

// checkSlots rejects input slots and attributes the definition does not declare.
func checkSlots(def *operator.Definition, inputs map[string]*node.Node, attrs map[string]any) error {
	for _, slot := range sortedKeys(inputs) {
		if _, ok := def.InputDef(slot); !ok {
			return errdefs.Newf(errdefs.ErrInvalidArgument, def.Key, slot, "unknown input")
		}
	}
	for _, k := range sortedKeys(attrs) {
		if _, ok := def.AttributeDef(k); !ok {
			return errdefs.Newf(errdefs.ErrInvalidArgument, def.Key, k, "unknown attribute")
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func requireInput(key, slot string, inputs map[string]*node.Node) (*node.Node, error) {
	n, ok := inputs[slot]
	if !ok || n == nil {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, slot, "missing input")
	}
	return n, nil
}

func stringAttr(key, name string, attrs map[string]any, optional bool) (string, error) {
	v, ok := attrs[name]
	if !ok {
		if optional {
			return "", nil
		}
		return "", errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "missing attribute")
	}
	s, ok := v.(string)
	if !ok {
		return "", errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "expected a string, got %T", v)
	}
	return s, nil
}

func boolAttr(key, name string, attrs map[string]any) (bool, error) {
	v, ok := attrs[name]
	if !ok {
		return false, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "missing attribute")
	}
	b, ok := v.(bool)
	if !ok {
		return false, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "expected a bool, got %T", v)
	}
	return b, nil
}

func stringListAttr(key, name string, attrs map[string]any) ([]string, error) {
	v, ok := attrs[name]
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "missing attribute")
	}
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, len(l))
		for i, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "element %d is %T, not a string", i, e)
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "expected a list of strings, got %T", v)
}

func stringMapAttr(key, name string, attrs map[string]any) (map[string]string, error) {
	v, ok := attrs[name]
	if !ok {
		return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "missing attribute")
	}
	switch m := v.(type) {
	case map[string]string:
		return m, nil
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, e := range m {
			s, ok := e.(string)
			if !ok {
				return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "value of %q is %T, not a string", k, e)
			}
			out[k] = s
		}
		return out, nil
	}
	return nil, errdefs.Newf(errdefs.ErrInvalidArgument, key, name, "expected a map of strings, got %T", v)
}

// singleFeature returns the only feature dtype of n, failing with
// ErrDTypeConstraint when n does not have exactly one feature.
func singleFeature(key, slot string, n *node.Node) (dtype.DType, error) {
	dtypes := n.Schema().FeatureDTypes()
	if len(dtypes) != 1 {
		return dtype.Invalid, errdefs.Newf(errdefs.ErrDTypeConstraint, key, slot,
			"should have exactly 1 feature but got %d (%s)", len(dtypes), joinDTypes(dtypes))
	}
	return dtypes[0], nil
}

func joinDTypes(dtypes []dtype.DType) string {
	parts := make([]string, len(dtypes))
	for i, d := range dtypes {
		parts[i] = d.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func sameSampling(key, slot string, ref, n *node.Node) error {
	if err := ref.CheckSameSampling(n); err != nil {
		return errdefs.WithSlot(errdefs.WithOperator(err, key), slot)
	}
	return nil
}

func notNil(key, slot string, n *node.Node) error {
	if n == nil {
		return errdefs.Newf(errdefs.ErrInvalidArgument, key, slot, "nil node")
	}
	return nil
}
