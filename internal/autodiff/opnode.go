package autodiff

import (
	"k8s.io/klog/v2"
)

// BackwardFunc maps the gradient of an operation's output to the gradient
// of one of its inputs. graphIDs lists the graphs the backward pass runs on.
// A BackwardFunc must use differentiable operations for the result to be
// differentiable itself.
type BackwardFunc func(gout *Array, graphIDs []GraphID) *Array

// OpNode records one operation on one graph.
type OpNode struct {
	name          string
	graphID       GraphID
	rank          int
	inputs        []*Array
	output        *Array
	backwardFuncs []BackwardFunc
}

// Name returns the operation name.
func (n *OpNode) Name() string { return n.name }

// GraphID returns the graph the node belongs to.
func (n *OpNode) GraphID() GraphID { return n.graphID }

// Rank is one more than the highest rank among the creators of the inputs.
// Leaves feed rank-0 nodes.
func (n *OpNode) Rank() int { return n.rank }

// Inputs returns the operation inputs.
func (n *OpNode) Inputs() []*Array { return n.inputs }

// SetUpOpNodes records the operation that computed output from inputs. One
// node is created for every graph on which some input requires gradient and
// recording is enabled; output then requires gradient on those graphs.
// backwardFuncs[i] computes the gradient of inputs[i]; a nil entry means the
// input receives no gradient from this operation.
func SetUpOpNodes(name string, inputs []*Array, output *Array, backwardFuncs []BackwardFunc) {
	if len(inputs) != len(backwardFuncs) {
		panic("SetUpOpNodes: " + name + ": one backward function per input is required")
	}

	var graphs []GraphID
	seen := make(map[GraphID]bool)
	for _, in := range inputs {
		for id, n := range in.nodes {
			if n.requiresGrad && !seen[id] {
				seen[id] = true
				graphs = append(graphs, id)
			}
		}
	}

	for _, id := range graphs {
		if !IsBackpropRequired(id) {
			continue
		}
		rank := 0
		for _, in := range inputs {
			if c := in.Creator(id); c != nil {
				rank = max(rank, c.rank+1)
			}
		}
		node := &OpNode{
			name:          name,
			graphID:       id,
			rank:          rank,
			inputs:        inputs,
			output:        output,
			backwardFuncs: backwardFuncs,
		}
		on := output.ensureNode(id)
		on.requiresGrad = true
		on.creator = node
		klog.V(4).Infof("record %s on %s (rank %d)", name, id, rank)
	}
}
