// Package node defines the symbolic handle to a dataset in an operator graph.
//
// A Node is either a graph input (a leaf, created by NewLeaf) or the named
// output of an operator (created by the operator while it is being built).
// Nodes never change once created; edges of the graph are the "is an input
// of" relations recorded by each operator.
package node

import (
	"fmt"

	"github.com/specialistvlad/tempogrid/internal/errdefs"
	"github.com/specialistvlad/tempogrid/internal/sampling"
	"github.com/specialistvlad/tempogrid/internal/schema"
)

// Creator is the part of an operator a node needs to expose the graph
// structure. It is implemented by operator.Base.
type Creator interface {
	Key() string
	Inputs() map[string]*Node
}

// Node is a single vertex in the symbolic graph.
type Node struct {
	// schema is the shape of the data this node stands for.
	schema *schema.Schema
	// sampling is the alignment token shared with every aligned node.
	sampling sampling.ID
	// creator is the operator that outputs this node. Nil for leaves.
	creator Creator
	// slot is the output slot name of creator, or the leaf name.
	slot string
}

// NewLeaf creates a graph input node. A zero sampling ID gets a fresh one.
func NewLeaf(name string, s *schema.Schema, id sampling.ID) *Node {
	if id.IsZero() {
		id = sampling.New()
	}
	return &Node{schema: s, sampling: id, slot: name}
}

// NewOutput creates the node produced by creator on the given output slot.
func NewOutput(s *schema.Schema, id sampling.ID, creator Creator, slot string) *Node {
	if creator == nil {
		panic("node: output node requires a creator")
	}
	if id.IsZero() {
		id = sampling.New()
	}
	return &Node{schema: s, sampling: id, creator: creator, slot: slot}
}

// Schema returns the node's schema.
func (n *Node) Schema() *schema.Schema {
	return n.schema
}

// SamplingID returns the node's alignment token.
func (n *Node) SamplingID() sampling.ID {
	return n.sampling
}

// Creator returns the operator that produced the node, or nil for a leaf.
func (n *Node) Creator() Creator {
	return n.creator
}

// IsLeaf reports whether the node is a graph input.
func (n *Node) IsLeaf() bool {
	return n.creator == nil
}

// Slot returns the output slot name, or the leaf name for graph inputs.
func (n *Node) Slot() string {
	return n.slot
}

// SameSampling reports whether both nodes are aligned.
func (n *Node) SameSampling(other *Node) bool {
	return n.sampling == other.sampling
}

// CheckSameSampling fails with ErrSamplingMismatch unless both nodes are aligned.
func (n *Node) CheckSameSampling(other *Node) error {
	if n.SameSampling(other) {
		return nil
	}
	return errdefs.Newf(errdefs.ErrSamplingMismatch, "", "",
		"arguments should have the same sampling: %s != %s; use resample or a shared source to align them",
		n.sampling, other.sampling)
}

func (n *Node) String() string {
	if n.creator == nil {
		return fmt.Sprintf("input(%s)", n.slot)
	}
	return fmt.Sprintf("%s.%s", n.creator.Key(), n.slot)
}
