package graphio

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

const (
	inputRoot    = "input"
	operatorRoot = "operator"
)

// ref is a parsed node reference: input.<name> or operator.<id>.<slot>.
type ref struct {
	operator string
	name     string
	rng      hcl.Range
}

func (r ref) isInput() bool {
	return r.operator == ""
}

func (r ref) String() string {
	return traversalKey(r.traversal())
}

func (r ref) traversal() hcl.Traversal {
	if r.isInput() {
		return hcl.Traversal{hcl.TraverseRoot{Name: inputRoot}, hcl.TraverseAttr{Name: r.name}}
	}
	return hcl.Traversal{
		hcl.TraverseRoot{Name: operatorRoot},
		hcl.TraverseAttr{Name: r.operator},
		hcl.TraverseAttr{Name: r.name},
	}
}

// traversalKey generates a stable, canonical string for a traversal,
// e.g. operator.op_1.output.
func traversalKey(t hcl.Traversal) string {
	return string(hclwrite.TokensForTraversal(t).Bytes())
}

// parseRef validates that expr is a plain node reference.
func parseRef(expr hcl.Expression) (ref, hcl.Diagnostics) {
	traversal, diags := hcl.AbsTraversalForExpr(expr)
	if diags.HasErrors() {
		return ref{}, diags
	}
	invalid := func(detail string) (ref, hcl.Diagnostics) {
		return ref{}, hcl.Diagnostics{&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid node reference",
			Detail:   detail,
			Subject:  expr.Range().Ptr(),
		}}
	}

	names := make([]string, 0, len(traversal))
	for _, step := range traversal {
		switch s := step.(type) {
		case hcl.TraverseRoot:
			names = append(names, s.Name)
		case hcl.TraverseAttr:
			names = append(names, s.Name)
		default:
			return invalid("A node reference may only contain attribute names, e.g. input.prices or operator.op_0.output.")
		}
	}

	switch traversal.RootName() {
	case inputRoot:
		if len(names) != 2 {
			return invalid(fmt.Sprintf("An input reference has the form input.<name>, got %s.", traversalKey(traversal)))
		}
		return ref{name: names[1], rng: expr.Range()}, nil
	case operatorRoot:
		if len(names) != 3 {
			return invalid(fmt.Sprintf("An operator reference has the form operator.<id>.<slot>, got %s.", traversalKey(traversal)))
		}
		return ref{operator: names[1], name: names[2], rng: expr.Range()}, nil
	}
	return invalid(fmt.Sprintf("Unknown reference root %q; expected %q or %q.", traversal.RootName(), inputRoot, operatorRoot))
}
