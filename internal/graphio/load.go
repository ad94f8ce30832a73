package graphio

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/dag"
	"github.com/specialistvlad/tempogrid/internal/dtype"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/specialistvlad/tempogrid/internal/registry"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// Graph is a loaded graph: its named inputs and named outputs.
type Graph struct {
	Inputs  map[string]*node.Node
	Outputs map[string]*node.Node
}

// InputNames returns the input names, sorted.
func (g *Graph) InputNames() []string {
	return sortedNames(g.Inputs)
}

// OutputNames returns the output names, sorted.
func (g *Graph) OutputNames() []string {
	return sortedNames(g.Outputs)
}

// OutputNodes returns the output nodes in OutputNames order.
func (g *Graph) OutputNodes() []*node.Node {
	names := g.OutputNames()
	out := make([]*node.Node, len(names))
	for i, n := range names {
		out[i] = g.Outputs[n]
	}
	return out
}

// Load reads a graph from in-memory HCL source.
func Load(ctx context.Context, src []byte, filename string, ops *registry.Operators) (*Graph, error) {
	spec, err := decodeSource(ctx, hclparse.NewParser(), src, filename)
	if err != nil {
		return nil, err
	}
	return build(ctx, spec, ops)
}

// LoadPath reads a graph from a file or from every .hcl file below a
// directory. Blocks of all files are merged into one graph.
func LoadPath(ctx context.Context, path string, ops *registry.Operators) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	files, err := ResolveGraphPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve graph path '%s': %w", path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found at %s", fileExtension, path)
	}
	logger.Info("Found graph files to process.", "count", len(files), "path", path)

	parser := hclparse.NewParser()
	merged := &fileSpec{}
	for _, file := range files {
		spec, err := decodeFile(ctx, parser, file)
		if err != nil {
			return nil, fmt.Errorf("failed to load graph file '%s': %w", file, err)
		}
		merged.Inputs = append(merged.Inputs, spec.Inputs...)
		merged.Operators = append(merged.Operators, spec.Operators...)
		merged.Outputs = append(merged.Outputs, spec.Outputs...)
	}
	logger.Debug("Finished merging graph files.", "inputs", len(merged.Inputs), "operators", len(merged.Operators), "outputs", len(merged.Outputs))
	return build(ctx, merged, ops)
}

// build turns decoded blocks into nodes. Operators are constructed in
// dependency order through the registry.
func build(ctx context.Context, spec *fileSpec, ops *registry.Operators) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	g := &Graph{
		Inputs:  make(map[string]*node.Node, len(spec.Inputs)),
		Outputs: make(map[string]*node.Node, len(spec.Outputs)),
	}

	// First pass: inputs.
	for _, in := range spec.Inputs {
		if _, exists := g.Inputs[in.Name]; exists {
			return nil, fmt.Errorf("%s: duplicate input %q", in.DeclRange, in.Name)
		}
		n, err := buildInput(in)
		if err != nil {
			return nil, fmt.Errorf("%s: input %q: %w", in.DeclRange, in.Name, err)
		}
		g.Inputs[in.Name] = n
	}
	logger.Debug("build: Input creation complete.", "input_count", len(g.Inputs))

	// Second pass: order operators by their references.
	byID := make(map[string]*operatorSpec, len(spec.Operators))
	refs := make(map[string]map[string]ref, len(spec.Operators))
	order := dag.New()
	for _, o := range spec.Operators {
		if _, exists := byID[o.ID]; exists {
			return nil, fmt.Errorf("%s: duplicate operator %q", o.DeclRange, o.ID)
		}
		byID[o.ID] = o
		order.AddNode(o.ID)
		slots, err := operatorRefs(o)
		if err != nil {
			return nil, err
		}
		refs[o.ID] = slots
	}
	for _, o := range spec.Operators {
		for _, r := range refs[o.ID] {
			if r.isInput() {
				continue
			}
			if _, ok := byID[r.operator]; !ok {
				return nil, fmt.Errorf("%s: reference to undeclared operator %q", r.rng, r.operator)
			}
			if err := order.AddEdge(r.operator, o.ID); err != nil {
				return nil, fmt.Errorf("%s: %w", r.rng, err)
			}
		}
	}
	sorted, err := order.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("error ordering graph operators: %w", err)
	}
	logger.Debug("build: Operator ordering complete.", "operator_count", len(sorted))

	// Third pass: construct operators.
	built := make(map[string]operator.Operator, len(sorted))
	resolve := func(r ref) (*node.Node, error) {
		if r.isInput() {
			n, ok := g.Inputs[r.name]
			if !ok {
				return nil, fmt.Errorf("%s: reference to undeclared input %q", r.rng, r.name)
			}
			return n, nil
		}
		n := built[r.operator].Output(r.name)
		if n == nil {
			return nil, fmt.Errorf("%s: operator %q has no output %q", r.rng, r.operator, r.name)
		}
		return n, nil
	}
	for _, id := range sorted {
		o := byID[id]
		inputs := make(map[string]*node.Node, len(refs[id]))
		for slot, r := range refs[id] {
			n, err := resolve(r)
			if err != nil {
				return nil, err
			}
			inputs[slot] = n
		}
		attrs, err := operatorAttributes(o)
		if err != nil {
			return nil, err
		}
		op, err := ops.Build(o.Key, inputs, attrs)
		if err != nil {
			return nil, fmt.Errorf("%s: operator %q: %w", o.DeclRange, id, err)
		}
		built[id] = op
		logger.Debug("build: Operator constructed.", "id", id, "key", o.Key)
	}

	// Fourth pass: outputs.
	for _, out := range spec.Outputs {
		if _, exists := g.Outputs[out.Name]; exists {
			return nil, fmt.Errorf("%s: duplicate output %q", out.DeclRange, out.Name)
		}
		r, diags := parseRef(out.Node)
		if diags.HasErrors() {
			return nil, fmt.Errorf("output %q: %s", out.Name, diags.Error())
		}
		n, err := resolve(r)
		if err != nil {
			return nil, err
		}
		g.Outputs[out.Name] = n
	}

	logger.Debug("build: Graph construction successful.", "inputs", len(g.Inputs), "operators", len(built), "outputs", len(g.Outputs))
	return g, nil
}

func buildInput(in *inputSpec) (*node.Node, error) {
	features := make([]schema.FeatureSchema, len(in.Features))
	for i, c := range in.Features {
		d, err := dtype.Parse(c.DType)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", c.Name, "%v", err)
		}
		features[i] = schema.FeatureSchema{Name: c.Name, DType: d}
	}
	indexes := make([]schema.IndexSchema, len(in.Indexes))
	for i, c := range in.Indexes {
		d, err := dtype.Parse(c.DType)
		if err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", c.Name, "%v", err)
		}
		indexes[i] = schema.IndexSchema{Name: c.Name, DType: d}
	}
	s, err := schema.New(features, indexes, in.UnixTimestamp)
	if err != nil {
		return nil, err
	}

	var id sampling.ID
	if in.Sampling != "" {
		if id, err = sampling.Parse(in.Sampling); err != nil {
			return nil, errdefs.Newf(errdefs.ErrInvalidArgument, "", "sampling", "%v", err)
		}
	}
	return node.NewLeaf(in.Name, s, id), nil
}

// operatorRefs parses the inputs block of an operator.
func operatorRefs(o *operatorSpec) (map[string]ref, error) {
	out := make(map[string]ref)
	if o.Inputs == nil {
		return out, nil
	}
	attrs, diags := o.Inputs.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("operator %q: %s", o.ID, diags.Error())
	}
	for slot, attr := range attrs {
		r, diags := parseRef(attr.Expr)
		if diags.HasErrors() {
			return nil, fmt.Errorf("operator %q: %s", o.ID, diags.Error())
		}
		out[slot] = r
	}
	return out, nil
}

func operatorAttributes(o *operatorSpec) (map[string]any, error) {
	out := make(map[string]any, len(o.Attributes))
	for _, a := range o.Attributes {
		if _, exists := out[a.Name]; exists {
			return nil, fmt.Errorf("operator %q: duplicate attribute %q", o.ID, a.Name)
		}
		val, diags := a.Value.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("operator %q: attribute %q: %s", o.ID, a.Name, diags.Error())
		}
		v, err := decodeAttribute(a.Kind, val)
		if err != nil {
			return nil, fmt.Errorf("%s: operator %q: attribute %q: %w", a.Value.Range(), o.ID, a.Name, err)
		}
		out[a.Name] = v
	}
	return out, nil
}

func sortedNames(m map[string]*node.Node) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
