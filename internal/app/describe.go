package app

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/specialistvlad/tempogrid/internal/graphio"
	"github.com/specialistvlad/tempogrid/internal/node"
)

// DescribeOperators prints one row per registered operator. Optional
// inputs and attributes carry a trailing "?".
func (a *App) DescribeOperators(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tINPUTS\tOUTPUTS\tATTRIBUTES")
	for _, key := range a.registry.Operators.Keys() {
		entry, err := a.registry.Operators.Lookup(key)
		if err != nil {
			return err
		}
		def := entry.Definition

		var inputs, outputs, attrs []string
		for _, in := range def.Inputs {
			inputs = append(inputs, in.Key+optional(in.Optional))
		}
		for _, out := range def.Outputs {
			outputs = append(outputs, out.Key)
		}
		for _, at := range def.Attributes {
			attrs = append(attrs, fmt.Sprintf("%s%s:%s", at.Key, optional(at.Optional), at.Type))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, list(inputs), list(outputs), list(attrs))
	}
	return tw.Flush()
}

// DescribeGraph prints the schema of every input and output of g.
func DescribeGraph(w io.Writer, g *graphio.Graph) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tSCHEMA")
	for _, name := range g.InputNames() {
		fmt.Fprintf(tw, "input\t%s\t%s\n", name, describeNode(g.Inputs[name]))
	}
	for _, name := range g.OutputNames() {
		fmt.Fprintf(tw, "output\t%s\t%s\n", name, describeNode(g.Outputs[name]))
	}
	return tw.Flush()
}

// describeNode renders a schema on one line, e.g.
// "price:float64,qty:int64 index=user:str unix".
func describeNode(n *node.Node) string {
	s := n.Schema()
	var features, indexes []string
	for _, f := range s.Features() {
		features = append(features, f.Name+":"+f.DType.String())
	}
	for _, idx := range s.Indexes() {
		indexes = append(indexes, idx.Name+":"+idx.DType.String())
	}
	out := list(features)
	if len(indexes) > 0 {
		out += " index=" + list(indexes)
	}
	if s.IsUnixTimestamp() {
		out += " unix"
	}
	return out
}

func optional(ok bool) string {
	if ok {
		return "?"
	}
	return ""
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
