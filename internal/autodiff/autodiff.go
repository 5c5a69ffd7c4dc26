// Package autodiff implements reverse-mode automatic differentiation over
// multiple independent graphs.
//
// Every Array carries a lazily created attachment per graph it takes part
// in. Operations register an OpNode on each graph on which one of their
// inputs requires gradient; the node holds one backward closure per input.
// Backward walks the nodes of a single graph from the outputs back to the
// leaves in decreasing rank order, so a node runs only after every node
// consuming its output has contributed to its gradient.
//
// Example:
//
//	x := autodiff.New(raw).RequireGrad()
//	y := ops.Mul(x, x)
//	if err := autodiff.Backward([]*autodiff.Array{y}, autodiff.DefaultGraphID); err != nil {
//		return err
//	}
//	gx := x.Grad(autodiff.DefaultGraphID) // 2x
package autodiff

import (
	"sync"

	"github.com/google/uuid"
)

// GraphID names an independent autograd graph.
type GraphID string

// DefaultGraphID is used when no graph is given.
const DefaultGraphID GraphID = "default"

// NewGraphID returns a fresh graph identifier that collides with no other.
func NewGraphID() GraphID {
	return GraphID("graph-" + uuid.NewString())
}

func graphsOrDefault(ids []GraphID) []GraphID {
	if len(ids) == 0 {
		return []GraphID{DefaultGraphID}
	}
	return ids
}

// noBackpropScope disables recording for ids, or for every graph if all is set.
type noBackpropScope struct {
	all bool
	ids map[GraphID]bool
}

var (
	scopesMu sync.Mutex
	scopes   []*noBackpropScope
)

// NoBackprop disables recording of op nodes on the given graphs (on every
// graph if none is given) until the returned function is called:
//
//	defer autodiff.NoBackprop()()
func NoBackprop(ids ...GraphID) func() {
	s := &noBackpropScope{all: len(ids) == 0, ids: make(map[GraphID]bool, len(ids))}
	for _, id := range ids {
		s.ids[id] = true
	}
	scopesMu.Lock()
	scopes = append(scopes, s)
	scopesMu.Unlock()

	return func() {
		scopesMu.Lock()
		defer scopesMu.Unlock()
		for i := len(scopes) - 1; i >= 0; i-- {
			if scopes[i] == s {
				scopes = append(scopes[:i], scopes[i+1:]...)
				return
			}
		}
	}
}

// IsBackpropRequired reports whether operations currently record on graph id.
func IsBackpropRequired(id GraphID) bool {
	scopesMu.Lock()
	defer scopesMu.Unlock()
	for _, s := range scopes {
		if s.all || s.ids[id] {
			return false
		}
	}
	return true
}
