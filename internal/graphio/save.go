package graphio

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/graph"
	"github.com/specialistvlad/tempogrid/internal/node"
	"github.com/specialistvlad/tempogrid/internal/operator"
	"github.com/zclconf/go-cty/cty"
)

// Save writes the graph that computes outputs. Every leaf reached becomes an
// input block named after the leaf; two different leaves with the same name
// are rejected. Operators are written in execution order.
func Save(ctx context.Context, w io.Writer, outputs map[string]*node.Node) error {
	names := sortedNames(outputs)
	nodes := make([]*node.Node, len(names))
	for i, n := range names {
		nodes[i] = outputs[n]
	}

	plan, err := graph.Build(ctx, nodes, (*node.Node).IsLeaf)
	if err != nil {
		return err
	}

	inputs := make(map[string]*node.Node)
	for _, leaf := range plan.Sources() {
		if prev, ok := inputs[leaf.Slot()]; ok && prev != leaf {
			return errdefs.Newf(errdefs.ErrInvalidArgument, "", leaf.Slot(), "two different graph inputs share the name")
		}
		inputs[leaf.Slot()] = leaf
	}

	ids := make(map[operator.Operator]string, plan.Len())
	for _, s := range plan.Steps() {
		ids[s.Operator] = s.ID
	}
	refOf := func(n *node.Node) ref {
		if n.IsLeaf() {
			return ref{name: n.Slot()}
		}
		return ref{operator: ids[n.Creator().(operator.Operator)], name: n.Slot()}
	}

	f := hclwrite.NewEmptyFile()
	body := f.Body()

	for _, name := range sortedNames(inputs) {
		writeInput(body, name, inputs[name])
		body.AppendNewline()
	}
	for _, s := range plan.Steps() {
		if err := writeOperator(body, s.ID, s.Operator, refOf); err != nil {
			return err
		}
		body.AppendNewline()
	}
	for _, name := range names {
		blk := body.AppendNewBlock("output", []string{name})
		blk.Body().SetAttributeTraversal("node", refOf(outputs[name]).traversal())
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Graph saved.", "inputs", len(inputs), "operators", plan.Len(), "outputs", len(names))
	return nil
}

func writeInput(body *hclwrite.Body, name string, leaf *node.Node) {
	s := leaf.Schema()
	b := body.AppendNewBlock("input", []string{name}).Body()
	b.SetAttributeValue("sampling", cty.StringVal(leaf.SamplingID().String()))
	b.SetAttributeValue("unix_timestamp", cty.BoolVal(s.IsUnixTimestamp()))
	for _, f := range s.Features() {
		b.AppendNewBlock("feature", []string{f.Name}).Body().SetAttributeValue("dtype", cty.StringVal(f.DType.String()))
	}
	for _, idx := range s.Indexes() {
		b.AppendNewBlock("index", []string{idx.Name}).Body().SetAttributeValue("dtype", cty.StringVal(idx.DType.String()))
	}
}

func writeOperator(body *hclwrite.Body, id string, op operator.Operator, refOf func(*node.Node) ref) error {
	def := op.Definition()
	b := body.AppendNewBlock("operator", []string{id}).Body()
	b.SetAttributeValue("key", cty.StringVal(def.Key))

	inputs := op.Inputs()
	if len(inputs) > 0 {
		ib := b.AppendNewBlock("inputs", nil).Body()
		for _, in := range def.Inputs {
			if n, ok := inputs[in.Key]; ok {
				ib.SetAttributeTraversal(in.Key, refOf(n).traversal())
			}
		}
	}

	attrs := op.Attributes()
	keys := make([]string, 0, len(attrs))
	for _, a := range def.Attributes {
		if _, ok := attrs[a.Key]; ok {
			keys = append(keys, a.Key)
		}
	}
	for _, k := range keys {
		kind, val, err := encodeAttribute(attrs[k])
		if err != nil {
			return errdefs.Newf(errdefs.ErrInvalidArgument, def.Key, k, "cannot encode attribute: %v", err)
		}
		ab := b.AppendNewBlock("attribute", []string{k}).Body()
		ab.SetAttributeValue("kind", cty.StringVal(kind))
		ab.SetAttributeValue("value", val)
	}
	return nil
}
