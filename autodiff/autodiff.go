// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation over
// arrays that may take part in several independent graphs at once.
//
// Each Array records, per GraphID, the operation node that produced it and
// the gradient accumulated into it. Backward walks one graph only, so a
// function can be differentiated in graph "a" while its first-order
// gradients are themselves recorded in graph "b".
//
// Example:
//
//	import (
//	    "github.com/YoshimuraKazumasa/chainer/autodiff"
//	    _ "github.com/YoshimuraKazumasa/chainer/backend/native"
//	    "github.com/YoshimuraKazumasa/chainer/tensor"
//	)
//
//	func main() {
//	    raw, _ := tensor.FromFloat64([]float64{1, 2, 3}, tensor.Shape{3}, tensor.Float32, nil)
//	    x := autodiff.New(raw).RequireGrad(autodiff.DefaultGraphID)
//	    y := autodiff.Sum(autodiff.Square(x))
//
//	    if err := autodiff.Backward([]*autodiff.Array{y}, autodiff.DefaultGraphID); err != nil {
//	        panic(err)
//	    }
//	    fmt.Println(x.Grad(autodiff.DefaultGraphID)) // holds 2, 4, 6
//	}
package autodiff

import (
	"github.com/YoshimuraKazumasa/chainer/internal/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/tensor"
)

// Array is a tensor with per-graph gradient bookkeeping.
type Array = autodiff.Array

// GraphID names an independent computational graph.
type GraphID = autodiff.GraphID

// DefaultGraphID is the graph used when none is given.
const DefaultGraphID = autodiff.DefaultGraphID

// OpNode records one operation in one graph.
type OpNode = autodiff.OpNode

// BackwardFunc maps the upstream gradient of an operation's output to the
// gradient of one of its inputs.
type BackwardFunc = autodiff.BackwardFunc

// BackwardOption configures Backward and Grad.
type BackwardOption = autodiff.BackwardOption

// New wraps raw in an Array that requires no gradient.
func New(raw *tensor.RawTensor) *Array {
	return autodiff.New(raw)
}

// NewGraphID returns a fresh graph id that no other caller holds.
func NewGraphID() GraphID {
	return autodiff.NewGraphID()
}

// WithDoubleBackprop records the backward pass itself so it can be
// differentiated again.
func WithDoubleBackprop() BackwardOption {
	return autodiff.WithDoubleBackprop()
}

// WithRetainGrad keeps the gradients of intermediate arrays.
func WithRetainGrad() BackwardOption {
	return autodiff.WithRetainGrad()
}

// WithStopAtInputs makes Grad treat its inputs as leaves.
func WithStopAtInputs() BackwardOption {
	return autodiff.WithStopAtInputs()
}

// Backward propagates the gradients set on outputs back through graphID.
func Backward(outputs []*Array, graphID GraphID, opts ...BackwardOption) error {
	return autodiff.Backward(outputs, graphID, opts...)
}

// Grad returns the gradients of outputs, seeded with seeds, with respect to
// inputs in graphID. The inputs' stored gradients are left untouched.
func Grad(outputs, inputs, seeds []*Array, graphID GraphID, opts ...BackwardOption) ([]*Array, error) {
	return autodiff.Grad(outputs, inputs, seeds, graphID, opts...)
}

// NoBackprop stops recording for the given graphs, or all graphs if none are
// given, until the returned function is called.
//
//	defer autodiff.NoBackprop()()
func NoBackprop(ids ...GraphID) func() {
	return autodiff.NoBackprop(ids...)
}

// IsBackpropRequired reports whether operations are currently recorded in id.
func IsBackpropRequired(id GraphID) bool {
	return autodiff.IsBackpropRequired(id)
}

// SetUpOpNodes connects output to inputs in every graph one of the inputs
// requires gradients in. backwardFuncs[i] computes the gradient of inputs[i].
func SetUpOpNodes(name string, inputs []*Array, output *Array, backwardFuncs []BackwardFunc) {
	autodiff.SetUpOpNodes(name, inputs, output, backwardFuncs)
}
