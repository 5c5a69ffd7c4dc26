// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gradcheck verifies backward implementations against
// central-difference estimates.
//
// Example:
//
//	square := func(in []*autodiff.Array) []*autodiff.Array {
//	    return []*autodiff.Array{autodiff.Square(in[0])}
//	}
//	x := autodiff.New(xRaw).RequireGrad(autodiff.DefaultGraphID)
//	err := gradcheck.CheckBackward(square,
//	    []*autodiff.Array{x}, []*autodiff.Array{gy}, []*autodiff.Array{eps},
//	    1e-4, 1e-3, autodiff.DefaultGraphID)
//
// A failed comparison is reported as a *GradientCheckError, which matches
// ErrGradientCheck with errors.Is. Every other error means the check could
// not be carried out.
package gradcheck

import (
	"github.com/YoshimuraKazumasa/chainer/autodiff"
	"github.com/YoshimuraKazumasa/chainer/internal/gradcheck"
)

// Forward is the function under test.
type Forward = gradcheck.Forward

// Option configures CheckBackward and CheckDoubleBackward.
type Option = gradcheck.Option

// GradientCheckError describes the first element whose gradients disagree.
type GradientCheckError = gradcheck.GradientCheckError

var (
	// ErrGradientCheck is matched by every *GradientCheckError.
	ErrGradientCheck = gradcheck.ErrGradientCheck
	// ErrNondeterministicForward reports outputs whose count or shapes change
	// between evaluations of the same function.
	ErrNondeterministicForward = gradcheck.ErrNondeterministicForward
)

// WithAbsoluteFallback compares elements whose numerical gradient is below
// threshold in magnitude with an absolute tolerance of threshold.
func WithAbsoluteFallback(threshold float64) Option {
	return gradcheck.WithAbsoluteFallback(threshold)
}

// NumericalGradient estimates the gradients of the inner product of fn's
// outputs with gradOutputs, with respect to each input, by central
// differences with steps eps. Inputs are not modified.
func NumericalGradient(fn Forward, inputs, gradOutputs, eps []*autodiff.Array) ([]*autodiff.Array, error) {
	return gradcheck.NumericalGradient(fn, inputs, gradOutputs, eps)
}

// CheckBackward compares the analytical gradients recorded on graphID with
// numerical estimates. It succeeds when every element satisfies
// |analytical - numerical| <= atol + rtol*|numerical|.
func CheckBackward(fn Forward, inputs, gradOutputs, eps []*autodiff.Array, atol, rtol float64,
	graphID autodiff.GraphID, opts ...Option) error {
	return gradcheck.CheckBackward(fn, inputs, gradOutputs, eps, atol, rtol, graphID, opts...)
}

// CheckDoubleBackward checks the gradients of the first-order gradients of
// fn, seeded with gradGradInputs. eps holds one step per input followed by
// one per upstream gradient.
func CheckDoubleBackward(fn Forward, inputs, gradOutputs, gradGradInputs, eps []*autodiff.Array,
	atol, rtol float64, graphID autodiff.GraphID, opts ...Option) error {
	return gradcheck.CheckDoubleBackward(fn, inputs, gradOutputs, gradGradInputs, eps, atol, rtol, graphID, opts...)
}
