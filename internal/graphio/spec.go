package graphio

import (
	"github.com/hashicorp/hcl/v2"
)

// fileSpec is the decoded form of one graph file.
type fileSpec struct {
	Inputs    []*inputSpec    `hcl:"input,block"`
	Operators []*operatorSpec `hcl:"operator,block"`
	Outputs   []*outputSpec   `hcl:"output,block"`
}

type inputSpec struct {
	Name          string        `hcl:"name,label"`
	Sampling      string        `hcl:"sampling,optional"`
	UnixTimestamp bool          `hcl:"unix_timestamp,optional"`
	Features      []*columnSpec `hcl:"feature,block"`
	Indexes       []*columnSpec `hcl:"index,block"`
	DeclRange     hcl.Range     `hcl:",def_range"`
}

type columnSpec struct {
	Name  string `hcl:"name,label"`
	DType string `hcl:"dtype"`
}

type operatorSpec struct {
	ID         string           `hcl:"id,label"`
	Key        string           `hcl:"key"`
	Inputs     *inputsSpec      `hcl:"inputs,block"`
	Attributes []*attributeSpec `hcl:"attribute,block"`
	DeclRange  hcl.Range        `hcl:",def_range"`
}

// inputsSpec maps input slots to node references. Its attributes are read
// with JustAttributes since slot names depend on the operator.
type inputsSpec struct {
	Body hcl.Body `hcl:",remain"`
}

type attributeSpec struct {
	Name  string         `hcl:"name,label"`
	Kind  string         `hcl:"kind"`
	Value hcl.Expression `hcl:"value"`
}

type outputSpec struct {
	Name      string         `hcl:"name,label"`
	Node      hcl.Expression `hcl:"node"`
	DeclRange hcl.Range      `hcl:",def_range"`
}
